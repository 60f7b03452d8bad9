// Package ledger appends completed migrations to the shared tracker file
// kept in a GitHub repository.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ncmuthu/bbs2gh/internal/github"
)

// ErrStale is returned when the tracker file changed between the read and
// the write. The caller decides whether to rerun; the append is never
// retried here, so a concurrent writer's row is never clobbered.
var ErrStale = errors.New("tracker file changed since it was read")

// ContentsAPI is the slice of the GitHub client the ledger needs.
type ContentsAPI interface {
	GetFile(ctx context.Context, org, repo, path, ref string) (content, sha string, err error)
	UpdateFile(ctx context.Context, org, repo, path, branch, message, sha string, content []byte) error
}

// Record is one completed migration.
type Record struct {
	Date          time.Time
	SourceProject string
	SourceRepo    string
	DestOrg       string
	DestRepo      string
}

// Row renders the record as the tracker's comma-separated line, newline
// included.
func (r Record) Row() string {
	return fmt.Sprintf("%s,%s,%s,%s,%s\n",
		r.Date.Format("2006-01-02"),
		r.SourceProject, r.SourceRepo, r.DestOrg, r.DestRepo)
}

// Ledger appends rows to the tracker file on its branch.
type Ledger struct {
	api    ContentsAPI
	org    string
	repo   string
	path   string
	branch string
	logger *slog.Logger
}

// Config locates the tracker file.
type Config struct {
	Org    string
	Repo   string
	Path   string
	Branch string
}

func New(api ContentsAPI, cfg Config, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		api:    api,
		org:    cfg.Org,
		repo:   cfg.Repo,
		path:   cfg.Path,
		branch: cfg.Branch,
		logger: logger,
	}
}

// Append reads the tracker, appends the record's row and writes the file
// back against the SHA it read. A write rejected because the file moved on
// underneath returns ErrStale.
func (l *Ledger) Append(ctx context.Context, rec Record) error {
	content, sha, err := l.api.GetFile(ctx, l.org, l.repo, l.path, l.branch)
	if err != nil {
		return fmt.Errorf("failed to read tracker %s/%s/%s: %w", l.org, l.repo, l.path, err)
	}

	updated := content + rec.Row()
	err = l.api.UpdateFile(ctx, l.org, l.repo, l.path, l.branch,
		"Update file via migrator", sha, []byte(updated))
	if err != nil {
		if github.IsConflictError(err) {
			return fmt.Errorf("failed to append to tracker: %w", ErrStale)
		}
		return fmt.Errorf("failed to append to tracker: %w", err)
	}

	l.logger.Info("Migration recorded in tracker",
		"tracker", l.org+"/"+l.repo, "row", rec.Row())
	return nil
}
