// Package registry talks to the project registry, the source of truth for
// project codes and their organization association.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Project is a registry entry for a project code.
type Project struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type projectsResponse struct {
	Count   int       `json:"count"`
	Results []Project `json:"results"`
}

// Client queries the project registry. Lookups are by code only and carry no
// credentials.
type Client struct {
	baseURL    string
	onboardURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientConfig configures the registry client.
type ClientConfig struct {
	BaseURL    string
	OnboardURL string
	Timeout    time.Duration
	Logger     *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		onboardURL: cfg.OnboardURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

// OnboardURL is where operators register unknown project codes.
func (c *Client) OnboardURL() string {
	return c.onboardURL
}

// ProjectURL returns the registry's browse URL for a project code, used as
// the repository homepage.
func (c *Client) ProjectURL(code string) string {
	return c.onboardURL + code
}

// GetProject looks a project code up. Returns nil when the code is unknown.
func (c *Client) GetProject(ctx context.Context, code string) (*Project, error) {
	u := fmt.Sprintf("%s/rest/projects/?code=%s", c.baseURL, url.QueryEscape(code))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry lookup failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry lookup failed: status %d", resp.StatusCode)
	}

	var decoded projectsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode registry response: %w", err)
	}

	if decoded.Count == 0 || len(decoded.Results) == 0 {
		c.logger.Debug("Project code not found in registry", "code", code)
		return nil, nil
	}

	return &decoded.Results[0], nil
}
