package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v75/github"
)

// EditRepository applies the full settings object to an existing repository.
func (c *Client) EditRepository(ctx context.Context, org, repo string, settings *github.Repository) (*github.Repository, error) {
	updated, _, err := c.rest.Repositories.Edit(ctx, org, repo, settings)
	if err != nil {
		return nil, WrapError(err, "EditRepository", c.baseURL)
	}

	c.logger.Info("Repository settings updated", "org", org, "repo", repo, "id", updated.GetID())
	return updated, nil
}

// ReplaceTopics replaces the repository's topic list.
func (c *Client) ReplaceTopics(ctx context.Context, org, repo string, topics []string) error {
	_, _, err := c.rest.Repositories.ReplaceAllTopics(ctx, org, repo, topics)
	if err != nil {
		return WrapError(err, "ReplaceTopics", c.baseURL)
	}

	c.logger.Info("Repository topics replaced", "org", org, "repo", repo, "topics", topics)
	return nil
}

// CustomProperty is a single org-defined repository property value.
type CustomProperty struct {
	PropertyName string `json:"property_name"`
	Value        string `json:"value"`
}

// SetCustomProperties patches org-defined custom property values on the
// repository. The endpoint accepts only the full property list, so callers
// supply every property they own.
func (c *Client) SetCustomProperties(ctx context.Context, org, repo string, props []CustomProperty) error {
	u := fmt.Sprintf("repos/%s/%s/properties/values", org, repo)
	body := struct {
		Properties []CustomProperty `json:"properties"`
	}{Properties: props}

	req, err := c.rest.NewRequest("PATCH", u, body)
	if err != nil {
		return WrapError(err, "SetCustomProperties", c.baseURL)
	}
	if _, err := c.rest.Do(ctx, req, nil); err != nil {
		return WrapError(err, "SetCustomProperties", c.baseURL)
	}

	c.logger.Info("Repository custom properties updated", "org", org, "repo", repo)
	return nil
}

// CreateWebhook registers a push/PR/branch webhook on the repository.
func (c *Client) CreateWebhook(ctx context.Context, org, repo, url string, events []string) error {
	hook := &github.Hook{
		Name:   github.Ptr("web"),
		Active: github.Ptr(true),
		Events: events,
		Config: &github.HookConfig{
			URL:         github.Ptr(url),
			ContentType: github.Ptr("json"),
			InsecureSSL: github.Ptr("0"),
		},
	}

	_, _, err := c.rest.Repositories.CreateHook(ctx, org, repo, hook)
	if err != nil {
		return WrapError(err, "CreateWebhook", c.baseURL)
	}

	c.logger.Info("Webhook created", "org", org, "repo", repo, "url", url)
	return nil
}

// RemoveCollaborator revokes a collaborator's access to the repository.
func (c *Client) RemoveCollaborator(ctx context.Context, org, repo, user string) error {
	_, err := c.rest.Repositories.RemoveCollaborator(ctx, org, repo, user)
	if err != nil {
		return WrapError(err, "RemoveCollaborator", c.baseURL)
	}

	c.logger.Info("Collaborator removed", "org", org, "repo", repo, "user", user)
	return nil
}

// EnsureEnvironment creates or updates a deployment environment with the
// given required-reviewer team and custom branch policies enabled.
func (c *Client) EnsureEnvironment(ctx context.Context, org, repo, name string, reviewerTeamID int64, preventSelfReview bool) error {
	env := &github.CreateUpdateEnvironment{
		DeploymentBranchPolicy: &github.BranchPolicy{
			ProtectedBranches:    github.Ptr(false),
			CustomBranchPolicies: github.Ptr(true),
		},
	}
	if reviewerTeamID != 0 {
		env.PreventSelfReview = github.Ptr(preventSelfReview)
		env.Reviewers = []*github.EnvReviewers{
			{Type: github.Ptr("Team"), ID: github.Ptr(reviewerTeamID)},
		}
	}

	_, _, err := c.rest.Repositories.CreateUpdateEnvironment(ctx, org, repo, name, env)
	if err != nil {
		return WrapError(err, "EnsureEnvironment", c.baseURL)
	}

	c.logger.Info("Environment ensured", "org", org, "repo", repo, "environment", name)
	return nil
}

// AddDeploymentBranchPolicy allows a named branch to deploy to the
// environment.
func (c *Client) AddDeploymentBranchPolicy(ctx context.Context, org, repo, environment, branch string) error {
	req := &github.DeploymentBranchPolicyRequest{
		Name: github.Ptr(branch),
		Type: github.Ptr("branch"),
	}

	_, _, err := c.rest.Repositories.CreateDeploymentBranchPolicy(ctx, org, repo, environment, req)
	if err != nil {
		return WrapError(err, "AddDeploymentBranchPolicy", c.baseURL)
	}

	c.logger.Info("Deployment branch policy added",
		"org", org, "repo", repo, "environment", environment, "branch", branch)
	return nil
}
