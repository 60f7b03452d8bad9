package github

import (
	"context"

	"github.com/google/go-github/v75/github"
)

// CreateFile commits a new file to the repository's default branch.
func (c *Client) CreateFile(ctx context.Context, org, repo, path, message string, content []byte) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
	}

	_, _, err := c.rest.Repositories.CreateFile(ctx, org, repo, path, opts)
	if err != nil {
		return WrapError(err, "CreateFile", c.baseURL)
	}

	c.logger.Info("File created", "org", org, "repo", repo, "path", path)
	return nil
}

// GetFile fetches a file's decoded content and its content SHA. The SHA is
// the optimistic-concurrency token a later UpdateFile must present.
func (c *Client) GetFile(ctx context.Context, org, repo, path, ref string) (content, sha string, err error) {
	fileContent, _, _, err := c.rest.Repositories.GetContents(ctx, org, repo, path, &github.RepositoryContentGetOptions{
		Ref: ref,
	})
	if err != nil {
		return "", "", WrapError(err, "GetFile", c.baseURL)
	}

	decoded, err := fileContent.GetContent()
	if err != nil {
		return "", "", WrapError(err, "GetFile", c.baseURL)
	}

	return decoded, fileContent.GetSHA(), nil
}

// UpdateFile rewrites a file on the given branch. The write is rejected with
// ErrConflict when sha no longer matches the file's current content, so a
// concurrent writer is surfaced instead of silently clobbered.
func (c *Client) UpdateFile(ctx context.Context, org, repo, path, branch, message, sha string, content []byte) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
		SHA:     github.Ptr(sha),
		Branch:  github.Ptr(branch),
	}

	_, _, err := c.rest.Repositories.UpdateFile(ctx, org, repo, path, opts)
	if err != nil {
		return WrapError(err, "UpdateFile", c.baseURL)
	}

	c.logger.Info("File updated", "org", org, "repo", repo, "path", path)
	return nil
}
