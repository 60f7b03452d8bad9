// Package postmigration applies the organization's repository policy to a
// freshly imported repository: settings, access, environments, webhooks and
// bookkeeping.
package postmigration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v75/github"

	"github.com/ncmuthu/bbs2gh/internal/github"
	"github.com/ncmuthu/bbs2gh/internal/identity"
	"github.com/ncmuthu/bbs2gh/internal/ledger"
)

// Webhook variants selected by the --pipeline-type flag.
const (
	PipelinePlatformJenkins = "Platform_Jenkins"
	PipelineOldJenkins      = "Old_Jenkins"
	PipelineBothJenkins     = "Both_Jenkins"
)

const (
	statusFilePath = "migration_status.txt"
	codeownersPath = "CODEOWNERS"
	productionEnv  = "production"
	addFileMessage = "Add file via migrator"
	dateTimeFormat = "2006-01-02 15:04:05"
)

// webhookEvents are the events every Jenkins webhook subscribes to.
var webhookEvents = []string{"push", "pull_request", "create", "delete"}

// Target identifies the imported repository and the context the steps need.
// Everything here is resolved once by the pipeline controller.
type Target struct {
	Org         string
	Repo        string
	ProjectCode string
	ProjectName string // human-readable name from the registry
	Homepage    string // registry browse URL for the project

	SourceProjectKey string
	SourceRepoSlug   string

	PipelineType string
}

// Config carries the fixed policy the configurator applies.
type Config struct {
	PlatformWebhookURL   string
	OldJenkinsWebhookURL string
	LegacyAdmins         []string
}

// Configurator runs the ordered post-migration steps. Steps marked fatal
// abort the sequence; every other failure is logged and the sequence
// continues, so one broken integration does not strand the repository
// half-configured on the steps that still work.
type Configurator struct {
	client *github.Client
	ledger *ledger.Ledger
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func New(client *github.Client, led *ledger.Ledger, cfg Config, logger *slog.Logger) *Configurator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Configurator{
		client: client,
		ledger: led,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

type step struct {
	name  string
	fatal bool
	run   func(ctx context.Context, t Target) error
}

func (c *Configurator) steps() []step {
	return []step{
		{"repository settings", true, c.applySettings},
		{"status file", false, c.writeStatusFile},
		{"custom properties", false, c.setCustomProperties},
		{"topics", false, c.setTopics},
		{"team access", true, c.grantTeamAccess},
		{"CODEOWNERS", false, c.writeCodeowners},
		{"production environment", false, c.ensureProductionEnvironment},
		{"webhooks", false, c.createWebhooks},
		{"ledger", false, c.recordInLedger},
		{"remove legacy admin", true, c.removeLegacyAdmins},
	}
}

// Apply runs every step in order against the target.
func (c *Configurator) Apply(ctx context.Context, t Target) error {
	for _, s := range c.steps() {
		c.logger.Info("Running post-migration step", "step", s.name, "repo", t.Repo)

		if err := s.run(ctx, t); err != nil {
			if s.fatal {
				return fmt.Errorf("post-migration step %q failed: %w", s.name, err)
			}
			c.logger.Error("Post-migration step failed, continuing",
				"step", s.name, "repo", t.Repo, "error", err)
		}
	}
	return nil
}

func (c *Configurator) applySettings(ctx context.Context, t Target) error {
	// The repository name's last dash segment is the application name.
	segments := strings.Split(t.Repo, "-")
	app := segments[len(segments)-1]

	settings := &gogithub.Repository{
		Name: gogithub.Ptr(t.Repo),
		Description: gogithub.Ptr(fmt.Sprintf(
			"Code repository for application '%s' under project '%s'", app, t.ProjectName)),
		Homepage:            gogithub.Ptr(t.Homepage),
		Private:             gogithub.Ptr(true),
		Visibility:          gogithub.Ptr("private"),
		HasIssues:           gogithub.Ptr(false),
		HasProjects:         gogithub.Ptr(false),
		HasWiki:             gogithub.Ptr(false),
		HasDownloads:        gogithub.Ptr(false),
		IsTemplate:          gogithub.Ptr(false),
		DeleteBranchOnMerge: gogithub.Ptr(true),
		AllowSquashMerge:    gogithub.Ptr(true),
		AllowMergeCommit:    gogithub.Ptr(true),
		AllowAutoMerge:      gogithub.Ptr(true),
		AllowRebaseMerge:    gogithub.Ptr(false),
	}

	_, err := c.client.EditRepository(ctx, t.Org, t.Repo, settings)
	return err
}

func (c *Configurator) writeStatusFile(ctx context.Context, t Target) error {
	content := fmt.Sprintf("Migrated on: %s\nMigrated from: %s/%s",
		c.now().Format(dateTimeFormat), t.SourceProjectKey, t.SourceRepoSlug)

	return c.client.CreateFile(ctx, t.Org, t.Repo, statusFilePath, addFileMessage, []byte(content))
}

func (c *Configurator) setCustomProperties(ctx context.Context, t Target) error {
	props := []github.CustomProperty{
		{PropertyName: "default_branch", Value: "main"},
		{PropertyName: "deployment_type", Value: "others"},
		{PropertyName: "pipeline_type", Value: "Jenkins"},
		{PropertyName: "production_workflow", Value: "null"},
	}
	return c.client.SetCustomProperties(ctx, t.Org, t.Repo, props)
}

func (c *Configurator) setTopics(ctx context.Context, t Target) error {
	return c.client.ReplaceTopics(ctx, t.Org, t.Repo, []string{strings.ToLower(t.ProjectCode)})
}

func (c *Configurator) grantTeamAccess(ctx context.Context, t Target) error {
	for _, role := range identity.Roles() {
		slug := role.TeamSlug(t.ProjectCode)
		if err := c.client.GrantTeamRepoPermission(ctx, t.Org, slug, t.Repo, role.Permission()); err != nil {
			return fmt.Errorf("failed to grant %s to team %s: %w", role.Permission(), slug, err)
		}
	}
	return nil
}

func (c *Configurator) writeCodeowners(ctx context.Context, t Target) error {
	content := fmt.Sprintf("* @%s/%s\n",
		t.Org, identity.RoleManager.TeamSlug(t.ProjectCode))

	return c.client.CreateFile(ctx, t.Org, t.Repo, codeownersPath, addFileMessage, []byte(content))
}

func (c *Configurator) ensureProductionEnvironment(ctx context.Context, t Target) error {
	managers, err := c.client.GetTeamBySlug(ctx, t.Org, identity.RoleManager.TeamSlug(t.ProjectCode))
	if err != nil {
		return fmt.Errorf("failed to resolve manager team: %w", err)
	}

	if err := c.client.EnsureEnvironment(ctx, t.Org, t.Repo, productionEnv, managers.GetID(), true); err != nil {
		return err
	}

	for _, branch := range []string{"main", "master"} {
		if err := c.client.AddDeploymentBranchPolicy(ctx, t.Org, t.Repo, productionEnv, branch); err != nil {
			return fmt.Errorf("failed to allow %s deployments: %w", branch, err)
		}
	}
	return nil
}

func (c *Configurator) createWebhooks(ctx context.Context, t Target) error {
	var urls []string
	switch t.PipelineType {
	case PipelinePlatformJenkins:
		urls = []string{c.cfg.PlatformWebhookURL}
	case PipelineOldJenkins:
		urls = []string{c.cfg.OldJenkinsWebhookURL}
	case PipelineBothJenkins:
		urls = []string{c.cfg.PlatformWebhookURL, c.cfg.OldJenkinsWebhookURL}
	default:
		return fmt.Errorf("unknown pipeline type %q", t.PipelineType)
	}

	for _, u := range urls {
		if err := c.client.CreateWebhook(ctx, t.Org, t.Repo, u, webhookEvents); err != nil {
			return err
		}
	}
	return nil
}

func (c *Configurator) recordInLedger(ctx context.Context, t Target) error {
	return c.ledger.Append(ctx, ledger.Record{
		Date:          c.now(),
		SourceProject: t.SourceProjectKey,
		SourceRepo:    t.SourceRepoSlug,
		DestOrg:       t.Org,
		DestRepo:      t.Repo,
	})
}

func (c *Configurator) removeLegacyAdmins(ctx context.Context, t Target) error {
	for _, admin := range c.cfg.LegacyAdmins {
		if err := c.client.RemoveCollaborator(ctx, t.Org, t.Repo, admin); err != nil {
			return fmt.Errorf("failed to remove %s: %w", admin, err)
		}
	}
	return nil
}
