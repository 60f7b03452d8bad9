package github

import (
	"context"

	"github.com/google/go-github/v75/github"
)

// GetTeamBySlug fetches a team within an organization.
func (c *Client) GetTeamBySlug(ctx context.Context, org, slug string) (*github.Team, error) {
	team, _, err := c.rest.Teams.GetTeamBySlug(ctx, org, slug)
	if err != nil {
		return nil, WrapError(err, "GetTeamBySlug", c.baseURL)
	}
	return team, nil
}

// TeamExists reports whether the team slug resolves in the organization.
func (c *Client) TeamExists(ctx context.Context, org, slug string) (bool, error) {
	_, err := c.GetTeamBySlug(ctx, org, slug)
	if err != nil {
		if IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GrantTeamRepoPermission grants the team the given permission on the
// repository. Permission is one of the GitHub role literals (pull, push,
// admin, maintain, triage).
func (c *Client) GrantTeamRepoPermission(ctx context.Context, org, slug, repo, permission string) error {
	opts := &github.TeamAddTeamRepoOptions{Permission: permission}

	_, err := c.rest.Teams.AddTeamRepoBySlug(ctx, org, slug, org, repo, opts)
	if err != nil {
		return WrapError(err, "GrantTeamRepoPermission", c.baseURL)
	}

	c.logger.Info("Team access granted",
		"org", org, "team", slug, "repo", repo, "permission", permission)
	return nil
}
