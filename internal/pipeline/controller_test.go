package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/ncmuthu/bbs2gh/internal/postmigration"
	"github.com/ncmuthu/bbs2gh/internal/registry"
	"github.com/ncmuthu/bbs2gh/internal/transfer"
)

// fakeComponents implements every controller dependency and records the
// call order.
type fakeComponents struct {
	calls []string

	validateErr error
	exportErr   error
	downloadErr error
	acquireErr  error
	importErr   error
	applyErr    error
	releaseErr  error

	exportedSlug string
	importedRepo string
	target       postmigration.Target
}

func (f *fakeComponents) Validate(_ context.Context, code, _ string) (*registry.ProjectInfo, error) {
	f.calls = append(f.calls, "validate")
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return &registry.ProjectInfo{Code: code, Name: "Test Project", Homepage: "https://registry.example.com/" + code}, nil
}

func (f *fakeComponents) Export(_ context.Context, _, repoSlug string) (transfer.ArchiveHandle, error) {
	f.calls = append(f.calls, "export")
	f.exportedSlug = repoSlug
	return transfer.ArchiveHandle{RemotePath: "/tmp/export.tar"}, f.exportErr
}

func (f *fakeComponents) Download(_ context.Context, _ transfer.ArchiveHandle) error {
	f.calls = append(f.calls, "download")
	return f.downloadErr
}

func (f *fakeComponents) Import(_ context.Context, _ transfer.ArchiveHandle, _, _, _, destRepo string) error {
	f.calls = append(f.calls, "import")
	f.importedRepo = destRepo
	return f.importErr
}

func (f *fakeComponents) Acquire(_ context.Context, _, _ string) error {
	f.calls = append(f.calls, "acquire")
	return f.acquireErr
}

func (f *fakeComponents) Release(_ context.Context, _, _ string) error {
	f.calls = append(f.calls, "release")
	return f.releaseErr
}

func (f *fakeComponents) Apply(_ context.Context, t postmigration.Target) error {
	f.calls = append(f.calls, "configure")
	f.target = t
	return f.applyErr
}

func newTestController(f *fakeComponents) *Controller {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewController(Deps{
		Validator:    f,
		Exporter:     f,
		Downloader:   f,
		Importer:     f,
		Guard:        f,
		Configurator: f,
		SettleDelay:  0,
		Logger:       logger,
	})
}

func testRequest() Request {
	return Request{
		ProjectKey:   "PROJ",
		RepoName:     "My Repo",
		ProjectCode:  "ux2",
		Org:          "pru-myorg",
		PipelineType: "Platform_Jenkins",
		NameOverride: "None",
	}
}

func assertCalls(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
}

func TestRunSequencesStages(t *testing.T) {
	f := &fakeComponents{}
	c := newTestController(f)

	if err := c.Run(context.Background(), testRequest()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	assertCalls(t, f.calls, []string{
		"validate", "export", "download", "acquire", "import", "configure", "release",
	})

	if f.exportedSlug != "my-repo" {
		t.Errorf("exported slug = %q, want my-repo", f.exportedSlug)
	}
	if f.importedRepo != "myorg-ux2-my-repo" {
		t.Errorf("imported repo = %q, want myorg-ux2-my-repo", f.importedRepo)
	}
	if f.target.Repo != f.importedRepo {
		t.Errorf("configurator repo %q differs from imported repo %q", f.target.Repo, f.importedRepo)
	}
	if f.target.ProjectName != "Test Project" {
		t.Errorf("target ProjectName = %q", f.target.ProjectName)
	}
	if f.target.SourceRepoSlug != "my-repo" {
		t.Errorf("target SourceRepoSlug = %q, want my-repo", f.target.SourceRepoSlug)
	}
}

func TestRunStopsOnValidationFailure(t *testing.T) {
	f := &fakeComponents{validateErr: errors.New("unknown project code")}
	c := newTestController(f)

	if err := c.Run(context.Background(), testRequest()); err == nil {
		t.Fatal("Run() succeeded despite a validation failure")
	}
	assertCalls(t, f.calls, []string{"validate"})
}

func TestRunReleasesGuardWhenImportFails(t *testing.T) {
	f := &fakeComponents{importErr: errors.New("import blew up")}
	c := newTestController(f)

	err := c.Run(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Run() succeeded despite an import failure")
	}

	assertCalls(t, f.calls, []string{
		"validate", "export", "download", "acquire", "import", "release",
	})
}

func TestRunDoesNotReleaseBeforeAcquire(t *testing.T) {
	f := &fakeComponents{downloadErr: errors.New("scp failed")}
	c := newTestController(f)

	if err := c.Run(context.Background(), testRequest()); err == nil {
		t.Fatal("Run() succeeded despite a download failure")
	}
	assertCalls(t, f.calls, []string{"validate", "export", "download"})
}

func TestRunSurfacesReleaseFailure(t *testing.T) {
	f := &fakeComponents{releaseErr: errors.New("ruleset write denied")}
	c := newTestController(f)

	err := c.Run(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Run() succeeded despite a failed enforcement restore")
	}
}

func TestRunUsesNameOverride(t *testing.T) {
	f := &fakeComponents{}
	c := newTestController(f)

	req := testRequest()
	req.NameOverride = "Custom Name"
	if err := c.Run(context.Background(), req); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if f.importedRepo != "myorg-ux2-custom-name" {
		t.Errorf("imported repo = %q, want myorg-ux2-custom-name", f.importedRepo)
	}
}
