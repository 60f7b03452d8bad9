package github

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"
)

// Client wraps the GitHub REST client with the single static credential set
// every destination call shares.
type Client struct {
	rest    *github.Client
	baseURL string
	token   string
	logger  *slog.Logger
}

// ClientConfig configures the GitHub client
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *slog.Logger
}

const (
	// GitHubAPIURL is the standard GitHub.com API URL
	GitHubAPIURL = "https://api.github.com"
)

// NewClient creates a new GitHub client authenticated with a personal access
// token.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	)
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = cfg.Timeout

	var restClient *github.Client
	if cfg.BaseURL == "" || cfg.BaseURL == GitHubAPIURL {
		restClient = github.NewClient(httpClient)
	} else {
		var err error
		restClient, err = github.NewClient(httpClient).WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, WrapError(err, "NewClient", cfg.BaseURL)
		}
	}

	return &Client{
		rest:    restClient,
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		logger:  cfg.Logger,
	}, nil
}

// REST returns the underlying GitHub REST client
func (c *Client) REST() *github.Client {
	return c.rest
}

// BaseURL returns the base URL of the GitHub instance
func (c *Client) BaseURL() string {
	return c.baseURL
}
