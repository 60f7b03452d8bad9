package github

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL: server.URL,
		Token:   "test-token",
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestRulesetConditionsRoundTrip(t *testing.T) {
	// Conditions the pipeline does not own must survive a decode/encode
	// cycle so a write-back never drops them.
	raw := `{
		"ref_name": {"include": ["~DEFAULT_BRANCH"], "exclude": []},
		"repository_name": {"include": ["~ALL"], "exclude": ["repo-a"]}
	}`

	var conditions RulesetConditions
	if err := json.Unmarshal([]byte(raw), &conditions); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if conditions.RepositoryName == nil {
		t.Fatal("repository_name condition missing after decode")
	}
	if got := conditions.RepositoryName.Exclude; len(got) != 1 || got[0] != "repo-a" {
		t.Errorf("Exclude = %v, want [repo-a]", got)
	}
	if _, ok := conditions.Extra["ref_name"]; !ok {
		t.Fatal("ref_name condition not preserved in Extra")
	}

	encoded, err := json.Marshal(conditions)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal(encoded) error = %v", err)
	}
	if _, ok := decoded["ref_name"]; !ok {
		t.Error("ref_name dropped on encode")
	}
	if _, ok := decoded["repository_name"]; !ok {
		t.Error("repository_name dropped on encode")
	}
}

func TestGetOrgRuleset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/test-org/rulesets/42", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 42,
			"name": "main_and_master",
			"conditions": {
				"ref_name": {"include": ["refs/heads/main"], "exclude": []},
				"repository_name": {"include": ["~ALL"], "exclude": []}
			}
		}`))
	})

	client := testClient(t, mux)

	ruleset, err := client.GetOrgRuleset(context.Background(), "test-org", 42)
	if err != nil {
		t.Fatalf("GetOrgRuleset() error = %v", err)
	}
	if ruleset.Name != "main_and_master" {
		t.Errorf("Name = %q, want main_and_master", ruleset.Name)
	}
	if ruleset.Conditions == nil || ruleset.Conditions.RepositoryName == nil {
		t.Fatal("expected a repository_name condition")
	}
	if got := ruleset.Conditions.RepositoryName.Include; len(got) != 1 || got[0] != "~ALL" {
		t.Errorf("Include = %v, want [~ALL]", got)
	}
}

func TestUpdateOrgRulesetConditions(t *testing.T) {
	var body map[string]json.RawMessage
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/test-org/rulesets/42", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("Method = %s, want PUT", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 42}`))
	})

	client := testClient(t, mux)

	conditions := &RulesetConditions{
		RepositoryName: &RepositoryNameCondition{
			Include: []string{"~ALL"},
			Exclude: []string{"new-repo"},
		},
		Extra: map[string]json.RawMessage{
			"ref_name": json.RawMessage(`{"include":["refs/heads/main"],"exclude":[]}`),
		},
	}

	if err := client.UpdateOrgRulesetConditions(context.Background(), "test-org", 42, conditions); err != nil {
		t.Fatalf("UpdateOrgRulesetConditions() error = %v", err)
	}

	raw, ok := body["conditions"]
	if !ok {
		t.Fatal("request body missing conditions")
	}
	var sent RulesetConditions
	if err := json.Unmarshal(raw, &sent); err != nil {
		t.Fatalf("failed to decode sent conditions: %v", err)
	}
	if got := sent.RepositoryName.Exclude; len(got) != 1 || got[0] != "new-repo" {
		t.Errorf("sent Exclude = %v, want [new-repo]", got)
	}
	if _, ok := sent.Extra["ref_name"]; !ok {
		t.Error("ref_name was not written back")
	}
}
