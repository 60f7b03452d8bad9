package transfer

import (
	"context"
	"fmt"
	"log/slog"
)

// Downloader pulls an exported archive off the source server through the
// bastion identity: the archive is staged into a directory the ssh identity
// can read, copied locally, and the staged copy removed.
type Downloader struct {
	host         string
	user         string
	identityFile string
	sharedHome   string // privileged prefix the archive path is relative to
	stagingDir   string
	elevate      string // privilege elevation prefix, e.g. dzdo

	sshCommand string
	scpCommand string
	logger     *slog.Logger
}

// DownloaderConfig configures the transfer channel.
type DownloaderConfig struct {
	Host         string
	User         string
	IdentityFile string
	SharedHome   string
	StagingDir   string
	Elevate      string

	// SSHCommand and SCPCommand override the binaries, for tests.
	SSHCommand string
	SCPCommand string

	Logger *slog.Logger
}

func NewDownloader(cfg DownloaderConfig) *Downloader {
	if cfg.SSHCommand == "" {
		cfg.SSHCommand = "ssh"
	}
	if cfg.SCPCommand == "" {
		cfg.SCPCommand = "scp"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Downloader{
		host:         cfg.Host,
		user:         cfg.User,
		identityFile: cfg.IdentityFile,
		sharedHome:   cfg.SharedHome,
		stagingDir:   cfg.StagingDir,
		elevate:      cfg.Elevate,
		sshCommand:   cfg.SSHCommand,
		scpCommand:   cfg.SCPCommand,
		logger:       cfg.Logger,
	}
}

func (d *Downloader) target() string {
	return d.user + "@" + d.host
}

func (d *Downloader) baseArgs() []string {
	return []string{"-o", "StrictHostKeyChecking=no", "-i", d.identityFile}
}

// Download performs the three transfer steps for the archive. Every step is
// fatal on a non-zero exit; none is retried.
func (d *Downloader) Download(ctx context.Context, handle ArchiveHandle) error {
	remotePath := d.sharedHome + handle.RemotePath
	stagedPath := d.stagingDir + "/" + handle.LocalName()

	d.logger.Info("Downloading exported archive",
		"remote_path", remotePath, "staged_path", stagedPath)

	// Stage: the archive sits in a privileged location, so it is read with
	// elevation into the staging directory the ssh identity can access.
	stage := append(d.baseArgs(), d.target(),
		fmt.Sprintf("%s cat %s > %s", d.elevate, remotePath, stagedPath))
	if err := runCommand(ctx, d.logger, d.sshCommand, stage); err != nil {
		return fmt.Errorf("failed to stage archive on %s: %w", d.host, err)
	}

	// Fetch the staged copy into the local working directory.
	fetch := append(d.baseArgs(), d.target()+":"+stagedPath, ".")
	if err := runCommand(ctx, d.logger, d.scpCommand, fetch); err != nil {
		return fmt.Errorf("failed to copy archive from %s: %w", d.host, err)
	}

	// Remove the staged copy.
	cleanup := append(d.baseArgs(), d.target(), "rm "+stagedPath)
	if err := runCommand(ctx, d.logger, d.sshCommand, cleanup); err != nil {
		return fmt.Errorf("failed to remove staged archive on %s: %w", d.host, err)
	}

	d.logger.Info("Archive downloaded", "local_path", handle.LocalName())
	return nil
}
