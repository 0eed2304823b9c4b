// Package pwc looks up code repositories linked to a paper in the
// Papers with Code index.
package pwc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paperwire/arxiv-digest/internal/domain"
	"github.com/paperwire/arxiv-digest/internal/sources"
)

const (
	// DefaultBaseURL is the default base URL for the papers index API.
	DefaultBaseURL = "https://paperswithcode.com/api/v1"

	// DefaultRateLimit is the default rate limit.
	DefaultRateLimit = 2.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 2

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// sourceName is the human-readable name for this source.
	sourceName = "Papers with Code"
)

// Config contains configuration options for the index client.
type Config struct {
	// BaseURL is the base URL for the API.
	BaseURL string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int
}

// Client resolves arXiv ids to linked code repositories.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// New creates a new index client with the given configuration.
// If httpClient is nil, one is created from the configuration settings.
func New(cfg Config, httpClient *sources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}

	if httpClient == nil {
		httpClient = sources.NewHTTPClient(sources.HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
		})
	}

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// RepositoryURL resolves an arXiv id to the URL of its first linked code
// repository. Two chained lookups: id -> index paper record, then record ->
// repository list. Absence at either step is domain.ErrNotFound, the normal
// "paper has no code" outcome.
func (c *Client) RepositoryURL(ctx context.Context, arxivID string) (string, error) {
	query := url.Values{}
	query.Set("arxiv_id", arxivID)

	var papers paperList
	if err := c.getJSON(ctx, "/papers/?"+query.Encode(), &papers); err != nil {
		return "", err
	}
	if papers.Count == 0 || len(papers.Results) == 0 {
		return "", domain.NewNotFoundError("indexed paper", arxivID)
	}

	paperID := papers.Results[0].ID

	var repos repositoryList
	if err := c.getJSON(ctx, "/papers/"+url.PathEscape(paperID)+"/repositories/", &repos); err != nil {
		return "", err
	}
	if repos.Count == 0 || len(repos.Results) == 0 {
		return "", domain.NewNotFoundError("code repository", arxivID)
	}

	return repos.Results[0].URL, nil
}

// getJSON performs a GET against the API and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewExternalAPIError(sourceName, 0, fmt.Sprintf("request failed: %v", err), nil)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
