package postmigration

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ncmuthu/bbs2gh/internal/github"
	"github.com/ncmuthu/bbs2gh/internal/ledger"
)

// fakeAPI records every request the configurator makes, in order, and
// answers with the minimal bodies the client needs.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	failPatchRepo  bool
	failStatusFile bool
}

func (f *fakeAPI) record(r *http.Request) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := r.Method + " " + r.URL.Path
	f.calls = append(f.calls, call)
	return call
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := f.record(r)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case f.failPatchRepo && r.Method == http.MethodPatch && strings.HasSuffix(r.URL.Path, "/repos/pru-myorg/myorg-ux2-app"):
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message": "boom"}`)
	case f.failStatusFile && strings.Contains(call, "contents/migration_status.txt"):
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "exists"}`)
	case strings.HasSuffix(r.URL.Path, "/teams/Project-UX2-Managers") && r.Method == http.MethodGet:
		fmt.Fprint(w, `{"id": 77, "slug": "project-ux2-managers"}`)
	case strings.Contains(r.URL.Path, "/contents/migration_tracker.txt") && r.Method == http.MethodGet:
		content := base64.StdEncoding.EncodeToString([]byte("2025-01-01,OLD,r,o,d\n"))
		fmt.Fprintf(w, `{"type": "file", "encoding": "base64", "sha": "abc123", "content": "%s"}`, content)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		fmt.Fprint(w, `{}`)
	}
}

func newTestConfigurator(t *testing.T, api *fakeAPI) *Configurator {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	client, err := github.NewClient(github.ClientConfig{
		BaseURL: server.URL,
		Token:   "test-token",
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	led := ledger.New(client, ledger.Config{
		Org: "pru-pss", Repo: "tracker", Path: "migration_tracker.txt", Branch: "main",
	}, logger)

	c := New(client, led, Config{
		PlatformWebhookURL:   "https://platform-jenkins.example.com/github-webhook/",
		OldJenkinsWebhookURL: "https://jenkins.example.com/github-webhook/",
		LegacyAdmins:         []string{"SRVPSSAPRBITBUCKET01_pru"},
	}, logger)
	c.now = func() time.Time { return time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC) }
	return c
}

func testTarget() Target {
	return Target{
		Org:              "pru-myorg",
		Repo:             "myorg-ux2-app",
		ProjectCode:      "ux2",
		ProjectName:      "User Experience",
		Homepage:         "https://registry.example.com/org/projects/ux2",
		SourceProjectKey: "PROJ",
		SourceRepoSlug:   "app",
		PipelineType:     PipelinePlatformJenkins,
	}
}

func TestApplyRunsEveryStepInOrder(t *testing.T) {
	api := &fakeAPI{}
	c := newTestConfigurator(t, api)

	if err := c.Apply(context.Background(), testTarget()); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	expected := []string{
		"PATCH /api/v3/repos/pru-myorg/myorg-ux2-app",
		"PUT /api/v3/repos/pru-myorg/myorg-ux2-app/contents/migration_status.txt",
		"PATCH /api/v3/repos/pru-myorg/myorg-ux2-app/properties/values",
		"PUT /api/v3/repos/pru-myorg/myorg-ux2-app/topics",
		"PUT /api/v3/orgs/pru-myorg/teams/Project-UX2-Viewers/repos/pru-myorg/myorg-ux2-app",
		"PUT /api/v3/orgs/pru-myorg/teams/Project-UX2-Contributors/repos/pru-myorg/myorg-ux2-app",
		"PUT /api/v3/orgs/pru-myorg/teams/Project-UX2-Managers/repos/pru-myorg/myorg-ux2-app",
		"PUT /api/v3/repos/pru-myorg/myorg-ux2-app/contents/CODEOWNERS",
		"GET /api/v3/orgs/pru-myorg/teams/Project-UX2-Managers",
		"PUT /api/v3/repos/pru-myorg/myorg-ux2-app/environments/production",
		"POST /api/v3/repos/pru-myorg/myorg-ux2-app/environments/production/deployment-branch-policies",
		"POST /api/v3/repos/pru-myorg/myorg-ux2-app/environments/production/deployment-branch-policies",
		"POST /api/v3/repos/pru-myorg/myorg-ux2-app/hooks",
		"GET /api/v3/repos/pru-pss/tracker/contents/migration_tracker.txt",
		"PUT /api/v3/repos/pru-pss/tracker/contents/migration_tracker.txt",
		"DELETE /api/v3/repos/pru-myorg/myorg-ux2-app/collaborators/SRVPSSAPRBITBUCKET01_pru",
	}

	if len(api.calls) != len(expected) {
		t.Fatalf("made %d calls, want %d:\n%s", len(api.calls), len(expected), strings.Join(api.calls, "\n"))
	}
	for i, want := range expected {
		if api.calls[i] != want {
			t.Errorf("call %d = %q, want %q", i, api.calls[i], want)
		}
	}
}

func TestApplyAbortsOnFatalStep(t *testing.T) {
	api := &fakeAPI{failPatchRepo: true}
	c := newTestConfigurator(t, api)

	if err := c.Apply(context.Background(), testTarget()); err == nil {
		t.Fatal("Apply() succeeded despite a fatal settings failure")
	}
	if len(api.calls) != 1 {
		t.Errorf("made %d calls after a fatal failure, want 1:\n%s",
			len(api.calls), strings.Join(api.calls, "\n"))
	}
}

func TestApplyContinuesPastNonFatalStep(t *testing.T) {
	api := &fakeAPI{failStatusFile: true}
	c := newTestConfigurator(t, api)

	if err := c.Apply(context.Background(), testTarget()); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	var sawRemoval bool
	for _, call := range api.calls {
		if strings.Contains(call, "collaborators/SRVPSSAPRBITBUCKET01_pru") {
			sawRemoval = true
		}
	}
	if !sawRemoval {
		t.Error("sequence stopped before the legacy admin removal")
	}
}

func TestBothJenkinsRegistersTwoWebhooks(t *testing.T) {
	api := &fakeAPI{}
	c := newTestConfigurator(t, api)

	target := testTarget()
	target.PipelineType = PipelineBothJenkins
	if err := c.Apply(context.Background(), target); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	var hooks int
	for _, call := range api.calls {
		if strings.HasSuffix(call, "/hooks") {
			hooks++
		}
	}
	if hooks != 2 {
		t.Errorf("created %d webhooks, want 2", hooks)
	}
}
