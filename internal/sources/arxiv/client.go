// Package arxiv provides clients for the arXiv query API, the e-print
// source-archive endpoint, and the rendered HTML page URL scheme.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/paperwire/arxiv-digest/internal/domain"
	"github.com/paperwire/arxiv-digest/internal/sources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultEPrintBaseURL is the default base URL for source archives.
	DefaultEPrintBaseURL = "https://arxiv.org/e-print"

	// DefaultHTMLBaseURL is the default base URL for rendered paper pages.
	DefaultHTMLBaseURL = "https://arxiv.org/html"

	// DefaultRateLimit is the default rate limit. arXiv asks bulk clients
	// to stay around one request every three seconds.
	DefaultRateLimit = 0.5

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per feed request.
	DefaultMaxResults = 100

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// arxivIDRegex extracts the arXiv ID from the full entry URL.
// Matches "http://arxiv.org/abs/2301.12345v1" and "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+)$`)

// whitespaceRun collapses the newline-indented wrapping the Atom feed uses.
var whitespaceRun = regexp.MustCompile(`\s+`)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv query API base URL.
	BaseURL string

	// EPrintBaseURL is the base URL for source archive downloads.
	EPrintBaseURL string

	// HTMLBaseURL is the base URL for rendered paper pages.
	HTMLBaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum results to return per feed request.
	MaxResults int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.EPrintBaseURL == "" {
		c.EPrintBaseURL = DefaultEPrintBaseURL
	}
	if c.HTMLBaseURL == "" {
		c.HTMLBaseURL = DefaultHTMLBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client talks to the arXiv query API and e-print endpoint.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// New creates a new arXiv client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// FetchRecent queries the feed for the most recent submissions in the given
// categories (e.g. "cs.CL", "cs.LG"), newest first.
func (c *Client) FetchRecent(ctx context.Context, categories []string, maxResults int) ([]domain.SourceRecord, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: no categories given", domain.ErrInvalidInput)
	}
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}

	terms := make([]string, 0, len(categories))
	for _, cat := range categories {
		terms = append(terms, "cat:"+cat)
	}

	query := url.Values{}
	query.Set("search_query", strings.Join(terms, " OR "))
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	feed, err := c.query(ctx, query)
	if err != nil {
		return nil, err
	}

	records := make([]domain.SourceRecord, 0, len(feed.Entries))
	for i := range feed.Entries {
		if rec, ok := entryToRecord(&feed.Entries[i]); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// GetByID retrieves a single record by its arXiv id.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.SourceRecord, error) {
	query := url.Values{}
	query.Set("id_list", id)

	feed, err := c.query(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(feed.Entries) == 0 {
		return nil, domain.NewNotFoundError("paper", id)
	}

	rec, ok := entryToRecord(&feed.Entries[0])
	if !ok {
		return nil, domain.NewNotFoundError("paper", id)
	}
	return &rec, nil
}

// PageURL returns the rendered HTML page URL for the given id.
func (c *Client) PageURL(id string) string {
	return strings.TrimRight(c.config.HTMLBaseURL, "/") + "/" + id
}

// query performs a single request against the query endpoint and decodes
// the Atom feed.
func (c *Client) query(ctx context.Context, params url.Values) (*Feed, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// Parse the Atom XML response (limit body to 10MB).
	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &feed, nil
}

// entryToRecord converts an arXiv Atom entry to a SourceRecord.
func entryToRecord(entry *Entry) (domain.SourceRecord, bool) {
	arxivID := extractArxivID(entry.ID)
	if arxivID == "" {
		return domain.SourceRecord{}, false
	}

	rec := domain.SourceRecord{
		ArxivID:  domain.NormalizeArxivID(arxivID),
		Title:    collapseWhitespace(entry.Title),
		Abstract: collapseWhitespace(entry.Summary),
	}

	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			rec.Authors = append(rec.Authors, domain.Author{Name: name})
		}
	}

	for _, link := range entry.Links {
		switch {
		case link.Rel == "alternate":
			rec.AbsURL = link.Href
		case link.Title == "pdf":
			rec.PDFURL = link.Href
		}
	}
	if rec.AbsURL == "" {
		rec.AbsURL = entry.ID
	}

	return rec, true
}

// extractArxivID pulls the id (possibly versioned) out of an abs URL.
func extractArxivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// collapseWhitespace folds the feed's hard-wrapped text onto one line.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
