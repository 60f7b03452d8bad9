// Package rules suspends organization ruleset enforcement for a repository
// while its history is imported, and restores enforcement afterwards.
package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ncmuthu/bbs2gh/internal/github"
)

// allPattern matches every repository in the organization. A ruleset whose
// repository_name condition ends up with no include and no exclude patterns
// is rejected by the API, so the include list falls back to this.
const allPattern = "~ALL"

// RulesetAPI is the slice of the GitHub client the guard needs.
type RulesetAPI interface {
	ListOrgRulesets(ctx context.Context, org string) ([]*github.OrgRuleset, error)
	GetOrgRuleset(ctx context.Context, org string, id int64) (*github.OrgRuleset, error)
	UpdateOrgRulesetConditions(ctx context.Context, org string, id int64, conditions *github.RulesetConditions) error
}

// Guard excludes a repository from the organization's managed rulesets for
// the duration of an import. Only rulesets whose names appear in the managed
// list are touched; anything else in the organization is left alone.
type Guard struct {
	api     RulesetAPI
	managed map[string]bool
	logger  *slog.Logger
}

func NewGuard(api RulesetAPI, managedNames []string, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	managed := make(map[string]bool, len(managedNames))
	for _, name := range managedNames {
		managed[name] = true
	}
	return &Guard{api: api, managed: managed, logger: logger}
}

// Acquire adds the repository to the exclude list of every managed ruleset
// so the import can rewrite history unhindered. A repository already
// excluded is left as is.
func (g *Guard) Acquire(ctx context.Context, org, repo string) error {
	return g.each(ctx, org, func(ruleset *github.OrgRuleset) (bool, error) {
		cond := ruleset.Conditions.RepositoryName
		if contains(cond.Exclude, repo) {
			g.logger.Info("Repository already excluded from ruleset",
				"ruleset", ruleset.Name, "repo", repo)
			return false, nil
		}
		cond.Exclude = append(cond.Exclude, repo)
		return true, nil
	})
}

// Release removes the repository from the exclude list of every managed
// ruleset, restoring enforcement. A ruleset that no longer excludes the
// repository is skipped rather than treated as an error, so Release is safe
// to call on a pipeline that failed before Acquire finished.
func (g *Guard) Release(ctx context.Context, org, repo string) error {
	return g.each(ctx, org, func(ruleset *github.OrgRuleset) (bool, error) {
		cond := ruleset.Conditions.RepositoryName
		if !contains(cond.Exclude, repo) {
			return false, nil
		}
		cond.Exclude = remove(cond.Exclude, repo)
		if len(cond.Exclude) == 0 && len(cond.Include) == 0 {
			cond.Include = []string{allPattern}
		}
		return true, nil
	})
}

// each applies mutate to the full condition object of every managed ruleset,
// writing back the rulesets it reports as changed.
func (g *Guard) each(ctx context.Context, org string, mutate func(*github.OrgRuleset) (bool, error)) error {
	rulesets, err := g.api.ListOrgRulesets(ctx, org)
	if err != nil {
		return fmt.Errorf("failed to list rulesets for %s: %w", org, err)
	}

	for _, summary := range rulesets {
		if !g.managed[summary.Name] {
			continue
		}

		// The list endpoint omits conditions; fetch the full object.
		ruleset, err := g.api.GetOrgRuleset(ctx, org, summary.ID)
		if err != nil {
			return fmt.Errorf("failed to get ruleset %q: %w", summary.Name, err)
		}
		if ruleset.Conditions == nil || ruleset.Conditions.RepositoryName == nil {
			g.logger.Warn("Ruleset has no repository name condition, skipping",
				"ruleset", ruleset.Name)
			continue
		}

		changed, err := mutate(ruleset)
		if err != nil {
			return err
		}
		if !changed {
			continue
		}

		if err := g.api.UpdateOrgRulesetConditions(ctx, org, ruleset.ID, ruleset.Conditions); err != nil {
			return fmt.Errorf("failed to update ruleset %q: %w", ruleset.Name, err)
		}
		g.logger.Info("Ruleset conditions updated", "ruleset", ruleset.Name,
			"exclude", ruleset.Conditions.RepositoryName.Exclude)
	}

	return nil
}

func contains(patterns []string, repo string) bool {
	for _, p := range patterns {
		if p == repo {
			return true
		}
	}
	return false
}

func remove(patterns []string, repo string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p != repo {
			out = append(out, p)
		}
	}
	return out
}
