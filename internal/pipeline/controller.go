// Package pipeline sequences a single repository migration end to end.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ncmuthu/bbs2gh/internal/identity"
	"github.com/ncmuthu/bbs2gh/internal/postmigration"
	"github.com/ncmuthu/bbs2gh/internal/registry"
	"github.com/ncmuthu/bbs2gh/internal/transfer"
)

// Request describes one migration run as collected from the CLI flags.
type Request struct {
	ProjectKey   string // source project key
	RepoName     string // source repository name, as displayed
	ProjectCode  string
	Org          string // destination organization
	PipelineType string // webhook variant
	NameOverride string // user-defined destination name, or the "None" sentinel
}

// Validator gates the run on registry and destination-team state.
type Validator interface {
	Validate(ctx context.Context, projectCode, org string) (*registry.ProjectInfo, error)
}

// Exporter produces the archive on the source server.
type Exporter interface {
	Export(ctx context.Context, projectKey, repoSlug string) (transfer.ArchiveHandle, error)
}

// Downloader pulls the archive into the local working directory.
type Downloader interface {
	Download(ctx context.Context, handle transfer.ArchiveHandle) error
}

// Importer pushes the downloaded archive into the destination organization.
type Importer interface {
	Import(ctx context.Context, handle transfer.ArchiveHandle, projectKey, repoSlug, org, destRepo string) error
}

// Guard suspends and restores organization ruleset enforcement for the
// destination repository.
type Guard interface {
	Acquire(ctx context.Context, org, repo string) error
	Release(ctx context.Context, org, repo string) error
}

// Configurator applies post-migration policy to the imported repository.
type Configurator interface {
	Apply(ctx context.Context, t postmigration.Target) error
}

// Controller owns the run order and is the single authority on what aborts
// a migration. Component errors propagate out of Run unchanged in meaning;
// mapping them to a process exit code is the caller's job.
type Controller struct {
	validator    Validator
	exporter     Exporter
	downloader   Downloader
	importer     Importer
	guard        Guard
	configurator Configurator
	settleDelay  time.Duration
	logger       *slog.Logger
}

// Deps wires the controller's components.
type Deps struct {
	Validator    Validator
	Exporter     Exporter
	Downloader   Downloader
	Importer     Importer
	Guard        Guard
	Configurator Configurator
	SettleDelay  time.Duration
	Logger       *slog.Logger
}

func NewController(deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Controller{
		validator:    deps.Validator,
		exporter:     deps.Exporter,
		downloader:   deps.Downloader,
		importer:     deps.Importer,
		guard:        deps.Guard,
		configurator: deps.Configurator,
		settleDelay:  deps.SettleDelay,
		logger:       deps.Logger,
	}
}

// Run migrates one repository. The destination name is derived exactly once
// and passed to every downstream step so the import, the ruleset guard and
// the configurator cannot disagree about what the repository is called.
func (c *Controller) Run(ctx context.Context, req Request) (err error) {
	logger := c.logger.With("run_id", uuid.New().String(),
		"project", req.ProjectKey, "repo", req.RepoName)

	slug := identity.Normalize(req.RepoName)
	destRepo := identity.DeriveDestinationName(req.Org, slug, req.ProjectCode, req.NameOverride)
	logger.Info("Starting migration", "org", req.Org, "dest_repo", destRepo)

	project, err := c.validator.Validate(ctx, req.ProjectCode, req.Org)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	handle, err := c.exporter.Export(ctx, req.ProjectKey, slug)
	if err != nil {
		return err
	}

	if err := c.downloader.Download(ctx, handle); err != nil {
		return err
	}

	if err := c.guard.Acquire(ctx, req.Org, destRepo); err != nil {
		return fmt.Errorf("failed to suspend ruleset enforcement: %w", err)
	}
	// Enforcement is restored even when a later step fails, so an aborted
	// run never leaves the repository excluded from the org's rulesets.
	defer func() {
		if releaseErr := c.guard.Release(ctx, req.Org, destRepo); releaseErr != nil {
			logger.Error("Failed to restore ruleset enforcement",
				"org", req.Org, "repo", destRepo, "error", releaseErr)
			if err == nil {
				err = fmt.Errorf("failed to restore ruleset enforcement: %w", releaseErr)
			}
		}
	}()

	if err := c.importer.Import(ctx, handle, req.ProjectKey, slug, req.Org, destRepo); err != nil {
		return err
	}

	// The imported repository stays locked briefly while the destination
	// finishes processing; configuration calls made too early 404.
	logger.Info("Waiting for the imported repository to settle", "delay", c.settleDelay)
	select {
	case <-time.After(c.settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	target := postmigration.Target{
		Org:              req.Org,
		Repo:             destRepo,
		ProjectCode:      req.ProjectCode,
		ProjectName:      project.Name,
		Homepage:         project.Homepage,
		SourceProjectKey: req.ProjectKey,
		SourceRepoSlug:   slug,
		PipelineType:     req.PipelineType,
	}
	if err := c.configurator.Apply(ctx, target); err != nil {
		return err
	}

	logger.Info("Migration completed", "org", req.Org, "repo", destRepo)
	return nil
}
