package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"

	"github.com/ncmuthu/bbs2gh/internal/config"
	"github.com/ncmuthu/bbs2gh/internal/github"
	"github.com/ncmuthu/bbs2gh/internal/ledger"
	"github.com/ncmuthu/bbs2gh/internal/logging"
	"github.com/ncmuthu/bbs2gh/internal/pipeline"
	"github.com/ncmuthu/bbs2gh/internal/postmigration"
	"github.com/ncmuthu/bbs2gh/internal/registry"
	"github.com/ncmuthu/bbs2gh/internal/rules"
	"github.com/ncmuthu/bbs2gh/internal/transfer"
)

var (
	flagProjectKey   string
	flagRepoName     string
	flagProjectCode  string
	flagDestOrg      string
	flagToken        string
	flagPipelineType string
	flagNameOverride string
)

var rootCmd = &cobra.Command{
	Use:   "bbs2gh",
	Short: "Migrate a Bitbucket Server repository to GitHub",
	Long: "bbs2gh exports one Bitbucket Server repository, imports it into the " +
		"destination GitHub organization and applies the organization's " +
		"post-migration policy.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&flagProjectKey, "bb-project-key", "", "source Bitbucket project key")
	rootCmd.Flags().StringVar(&flagRepoName, "bb-repo-name", "", "source Bitbucket repository name")
	rootCmd.Flags().StringVar(&flagProjectCode, "project-code", "", "registered project code")
	rootCmd.Flags().StringVar(&flagDestOrg, "gh-dest-org", "", "destination GitHub organization")
	rootCmd.Flags().StringVar(&flagToken, "gh-token", "", "GitHub token for the destination organization")
	rootCmd.Flags().StringVar(&flagPipelineType, "pipeline-type", "",
		"webhook variant: Platform_Jenkins, Old_Jenkins or Both_Jenkins")
	rootCmd.Flags().StringVar(&flagNameOverride, "user-defined-name", "",
		"destination repository name override, or None to derive it")

	for _, name := range []string{
		"bb-project-key", "bb-repo-name", "project-code",
		"gh-dest-org", "gh-token", "pipeline-type", "user-defined-name",
	} {
		cobra.CheckErr(rootCmd.MarkFlagRequired(name))
	}
}

func run(ctx context.Context) error {
	_ = gotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.GitHub.Token = flagToken

	logger := logging.NewLogger(cfg.Logging)

	if err := config.ValidateEnv(); err != nil {
		logger.Error("Environment is not set up for migration", "error", err)
		return err
	}

	client, err := github.NewClient(github.ClientConfig{
		BaseURL: cfg.GitHub.BaseURL,
		Token:   cfg.GitHub.Token,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	registryClient := registry.NewClient(registry.ClientConfig{
		BaseURL:    cfg.Registry.BaseURL,
		OnboardURL: cfg.Registry.OnboardURL,
		Logger:     logger,
	})

	controller := pipeline.NewController(pipeline.Deps{
		Validator: registry.NewValidator(registryClient, client, logger),
		Exporter:  transfer.NewExporter(cfg.Migration.Tool, cfg.Bitbucket.ExportServerURL, logger),
		Downloader: transfer.NewDownloader(transfer.DownloaderConfig{
			Host:         cfg.Bitbucket.SSHHost,
			User:         cfg.Bitbucket.SSHUser,
			IdentityFile: cfg.Bitbucket.IdentityFile,
			SharedHome:   cfg.Bitbucket.SharedHome,
			StagingDir:   cfg.Bitbucket.StagingDir,
			Elevate:      cfg.Bitbucket.ElevateCommand,
			Logger:       logger,
		}),
		Importer: transfer.NewImporter(cfg.Migration.Tool, cfg.Bitbucket.ImportServerURL, logger),
		Guard:    rules.NewGuard(client, cfg.Migration.ManagedRulesets, logger),
		Configurator: postmigration.New(client,
			ledger.New(client, ledger.Config{
				Org:    cfg.Ledger.Org,
				Repo:   cfg.Ledger.Repo,
				Path:   cfg.Ledger.Path,
				Branch: cfg.Ledger.Branch,
			}, logger),
			postmigration.Config{
				PlatformWebhookURL:   cfg.Migration.PlatformWebhookURL,
				OldJenkinsWebhookURL: cfg.Migration.OldJenkinsWebhookURL,
				LegacyAdmins:         cfg.Migration.LegacyAdmins,
			},
			logger),
		SettleDelay: time.Duration(cfg.Migration.SettleDelaySeconds) * time.Second,
		Logger:      logger,
	})

	req := pipeline.Request{
		ProjectKey:   flagProjectKey,
		RepoName:     flagRepoName,
		ProjectCode:  flagProjectCode,
		Org:          flagDestOrg,
		PipelineType: flagPipelineType,
		NameOverride: flagNameOverride,
	}

	if err := controller.Run(ctx, req); err != nil {
		logger.Error("Migration failed", "error", err)
		return err
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
