package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Bitbucket BitbucketConfig `mapstructure:"bitbucket"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Migration MigrationConfig `mapstructure:"migration"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// BitbucketConfig defines the source server and the transfer channel used to
// pull the exported archive off it.
type BitbucketConfig struct {
	ExportServerURL string `mapstructure:"export_server_url"` // server the export tool runs against
	ImportServerURL string `mapstructure:"import_server_url"` // server coordinates passed to the import tool
	SSHHost         string `mapstructure:"ssh_host"`          // bastion host (BB_SERVER)
	SSHUser         string `mapstructure:"ssh_user"`          // bastion identity (BB_SSH_USERNAME)
	IdentityFile    string `mapstructure:"identity_file"`     // private key for ssh/scp
	SharedHome      string `mapstructure:"shared_home"`       // privileged location of exported archives
	StagingDir      string `mapstructure:"staging_dir"`       // staging directory the ssh identity can read
	ElevateCommand  string `mapstructure:"elevate_command"`   // privilege elevation prefix for reading the archive
}

// GitHubConfig defines the destination API endpoint and credentials.
type GitHubConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// RegistryConfig defines the project registry used for validation and
// human-readable project names.
type RegistryConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	OnboardURL string `mapstructure:"onboard_url"` // shown to operators when a project code is unknown
}

// LedgerConfig locates the shared migration tracking file.
type LedgerConfig struct {
	Org    string `mapstructure:"org"`
	Repo   string `mapstructure:"repo"`
	Path   string `mapstructure:"path"`
	Branch string `mapstructure:"branch"`
}

// MigrationConfig carries the pipeline's fixed policy knobs.
type MigrationConfig struct {
	Tool                 string   `mapstructure:"tool"`                    // export/import CLI binary
	SettleDelaySeconds   int      `mapstructure:"settle_delay_seconds"`    // wait after import for the repo lock to clear
	ManagedRulesets      []string `mapstructure:"managed_rulesets"`        // org rulesets the guard is allowed to touch
	LegacyAdmins         []string `mapstructure:"legacy_admins"`           // service accounts removed after import
	PlatformWebhookURL   string   `mapstructure:"platform_webhook_url"`    // Platform_Jenkins variant
	OldJenkinsWebhookURL string   `mapstructure:"old_jenkins_webhook_url"` // Old_Jenkins variant
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"` // "json" or "text"
	OutputFile string `mapstructure:"output_file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// requiredEnvVars must all be present before anything external runs.
var requiredEnvVars = []string{
	"BBS_USERNAME",
	"BBS_PASSWORD",
	"GH_PAT",
	"BB_SERVER",
	"BB_SSH_USERNAME",
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("BBS2GH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// A config file is optional; env vars and defaults cover a normal run.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("bitbucket.export_server_url", "https://code-new.pru.intranet.asia:8443/")
	viper.SetDefault("bitbucket.import_server_url", "https://code.pruconnect.net")
	viper.SetDefault("bitbucket.identity_file", "~/.ssh/id_rsa")
	viper.SetDefault("bitbucket.shared_home", "/apps/bitbucket/bitbucket/shared")
	viper.SetDefault("bitbucket.staging_dir", "/mnt/bbmigration")
	viper.SetDefault("bitbucket.elevate_command", "dzdo")
	viper.SetDefault("github.base_url", "https://api.github.com")
	viper.SetDefault("registry.base_url", "https://core.pru.intranet.asia")
	viper.SetDefault("registry.onboard_url", "https://core.pru.intranet.asia/org/projects/")
	viper.SetDefault("ledger.org", "pru-pss")
	viper.SetDefault("ledger.repo", "pss-eta-bb2gh_migration")
	viper.SetDefault("ledger.path", "migration_tracker.txt")
	viper.SetDefault("ledger.branch", "main")
	viper.SetDefault("migration.tool", "gh")
	viper.SetDefault("migration.settle_delay_seconds", 15)
	viper.SetDefault("migration.managed_rulesets", []string{
		"branch_names",
		"main_and_master",
		"other_protected_branch ", // trailing space matches the ruleset as created in the org
		"restrict_binary_file_upload",
	})
	viper.SetDefault("migration.legacy_admins", []string{"SRVPSSAPRBITBUCKET01_pru"})
	viper.SetDefault("migration.platform_webhook_url", "https://platform-jenkins.pruconnect.net/jenkins/github-webhook/")
	viper.SetDefault("migration.old_jenkins_webhook_url", "https://jenkins.pruconnect.net/github-webhook/")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output_file", "./logs/bbs2gh.log")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
}

// applyEnvOverrides maps the credential env vars used by the surrounding
// tooling onto the config. They predate the BBS2GH_ prefix and keep their
// historical names.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GH_PAT"); v != "" && c.GitHub.Token == "" {
		c.GitHub.Token = v
	}
	if v := os.Getenv("BB_SERVER"); v != "" && c.Bitbucket.SSHHost == "" {
		c.Bitbucket.SSHHost = v
	}
	if v := os.Getenv("BB_SSH_USERNAME"); v != "" && c.Bitbucket.SSHUser == "" {
		c.Bitbucket.SSHUser = v
	}
}

// ValidateEnv confirms every credential the pipeline needs is present,
// reporting the first missing variable so nothing downstream runs half
// configured.
func ValidateEnv() error {
	for _, name := range requiredEnvVars {
		if os.Getenv(name) == "" {
			return fmt.Errorf("environment variable %q is not set", name)
		}
	}
	return nil
}
