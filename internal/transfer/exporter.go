package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
)

// exportCompleteMarker is the line the export tool prints when the archive
// has been written on the source server.
const exportCompleteMarker = "Export completed"

// archivePathPattern extracts the archive path embedded after the source
// server's shared-home variable in the completion line.
var archivePathPattern = regexp.MustCompile(`BITBUCKET_SHARED_HOME(\S+)`)

// ErrNoArchivePath is returned when the export tool exits cleanly without
// ever printing the completion marker, leaving no archive to download.
var ErrNoArchivePath = errors.New("export finished without reporting an archive path")

// ArchiveHandle locates an exported archive on the source server.
type ArchiveHandle struct {
	// RemotePath is the archive path relative to the server's shared home,
	// e.g. /tmp/Bitbucket_export_19.tar.
	RemotePath string
}

// LocalName is the archive's file name, used for the staged and downloaded
// copies.
func (h ArchiveHandle) LocalName() string {
	return path.Base(h.RemotePath)
}

// Exporter drives the external export tool against the source server.
type Exporter struct {
	tool      string
	serverURL string
	logger    *slog.Logger
}

func NewExporter(tool, serverURL string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{tool: tool, serverURL: serverURL, logger: logger}
}

// Export runs the export tool for one repository, streaming its output until
// it exits, and returns the handle parsed from the completion marker. Error
// stream content and a missing marker are both fatal.
func (e *Exporter) Export(ctx context.Context, projectKey, repoSlug string) (ArchiveHandle, error) {
	e.logger.Info("Running the export command", "project", projectKey, "repo", repoSlug)

	args := []string{
		"bbs2gh", "migrate-repo",
		"--bbs-server-url", e.serverURL,
		"--bbs-project", projectKey,
		"--bbs-repo", repoSlug,
	}

	var archivePath string
	err := streamCommand(ctx, e.logger, e.tool, args, func(line string) {
		e.logger.Info(line)
		if strings.Contains(line, exportCompleteMarker) {
			if p, ok := ParseArchivePath(line); ok {
				archivePath = p
				e.logger.Info("Export archive located", "path", archivePath)
			}
		}
	})
	if err != nil {
		return ArchiveHandle{}, fmt.Errorf("export failed, see the tool's *.log in the current folder: %w", err)
	}

	if archivePath == "" {
		return ArchiveHandle{}, ErrNoArchivePath
	}

	return ArchiveHandle{RemotePath: archivePath}, nil
}

// ParseArchivePath extracts the shared-home-relative archive path from an
// export completion line.
func ParseArchivePath(line string) (string, bool) {
	m := archivePathPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}
