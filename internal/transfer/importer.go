package transfer

import (
	"context"
	"fmt"
	"log/slog"
)

// Importer drives the external import tool, pushing a downloaded archive
// into its destination organization.
type Importer struct {
	tool      string
	serverURL string
	logger    *slog.Logger
}

func NewImporter(tool, serverURL string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{tool: tool, serverURL: serverURL, logger: logger}
}

// Import runs the import tool for a downloaded archive, streaming its output
// until it exits. Error stream content is fatal even on a clean exit.
func (i *Importer) Import(ctx context.Context, handle ArchiveHandle, projectKey, repoSlug, org, destRepo string) error {
	i.logger.Info("Running the import command",
		"archive", handle.LocalName(), "org", org, "repo", destRepo)

	args := []string{
		"bbs2gh", "migrate-repo",
		"--archive-path", handle.LocalName(),
		"--github-org", org,
		"--github-repo", destRepo,
		"--bbs-server-url", i.serverURL,
		"--bbs-project", projectKey,
		"--bbs-repo", repoSlug,
	}

	err := streamCommand(ctx, i.logger, i.tool, args, func(line string) {
		i.logger.Info(line)
	})
	if err != nil {
		return fmt.Errorf("import failed, see the tool's *.log in the current folder: %w", err)
	}

	i.logger.Info("Import completed", "org", org, "repo", destRepo)
	return nil
}
