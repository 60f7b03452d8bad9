package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ncmuthu/bbs2gh/internal/identity"
)

// TeamChecker reports whether a team slug exists in the destination
// organization.
type TeamChecker interface {
	TeamExists(ctx context.Context, org, slug string) (bool, error)
}

// Validator is the pipeline's validation gate: the project code must be
// registered and every role team must already exist in the destination
// organization before anything mutates.
type Validator struct {
	registry *Client
	teams    TeamChecker
	logger   *slog.Logger
}

func NewValidator(registry *Client, teams TeamChecker, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{registry: registry, teams: teams, logger: logger}
}

// ProjectInfo is what a successful validation resolves for the rest of the
// pipeline.
type ProjectInfo struct {
	Code     string
	Name     string
	Homepage string
}

// Validate fails on an unknown project code or on the first missing role
// team. Nothing downstream may run after a validation failure.
func (v *Validator) Validate(ctx context.Context, projectCode, org string) (*ProjectInfo, error) {
	project, err := v.registry.GetProject(ctx, projectCode)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project code %q is invalid, please onboard to %s", projectCode, v.registry.OnboardURL())
	}
	v.logger.Info("Project code is valid", "code", projectCode, "name", project.Name)

	for _, role := range identity.Roles() {
		slug := role.TeamSlug(projectCode)
		exists, err := v.teams.TeamExists(ctx, org, slug)
		if err != nil {
			return nil, fmt.Errorf("failed to check team %q in %q: %w", slug, org, err)
		}
		if !exists {
			return nil, fmt.Errorf("team %q does not exist in organization %q: update project %s in the registry to include this organization",
				slug, org, projectCode)
		}
		v.logger.Debug("Destination team present", "org", org, "team", slug)
	}

	return &ProjectInfo{
		Code:     projectCode,
		Name:     project.Name,
		Homepage: v.registry.ProjectURL(projectCode),
	}, nil
}
