// Package shopfront fetches raw product records from the upstream paginated
// catalog endpoint and normalizes them into catalog products.
package shopfront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultPageSize is the fixed page size of the upstream contract.
	DefaultPageSize = 250

	// DefaultTimeout is the default per-page HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (page requests per second).
	DefaultRateLimit = 4
)

// NewHTTPClient creates a simple HTTP client with a timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// RawImage is one image reference as the upstream delivers it.
type RawImage struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
}

// RawVariant is one variant record as the upstream delivers it.
// FeaturedImage carries the id of the variant's own image, or null.
type RawVariant struct {
	Title         string `json:"title"`
	Price         string `json:"price"`
	Available     bool   `json:"available"`
	FeaturedImage *int64 `json:"featured_image"`
}

// RawProduct is one product record as the upstream delivers it, before SKU
// extraction and normalization.
type RawProduct struct {
	Title    string       `json:"title"`
	Handle   string       `json:"handle"`
	Vendor   string       `json:"vendor"`
	Tags     []string     `json:"tags"`
	BodyHTML string       `json:"body_html"`
	Images   []RawImage   `json:"images"`
	Variants []RawVariant `json:"variants"`
}

// productsPage is the envelope of one page response.
type productsPage struct {
	Products []json.RawMessage `json:"products"`
}

// Client is a stateless client for the upstream catalog endpoint.
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithPageSize overrides the upstream page size. Used in tests; the
// production contract is DefaultPageSize.
func WithPageSize(pageSize int) ClientOption {
	return func(c *Client) {
		c.pageSize = pageSize
	}
}

// NewClient creates a new shopfront client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  baseURL,
		pageSize: DefaultPageSize,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the configured upstream base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PageSize returns the page size used for the offset cursor.
func (c *Client) PageSize() int {
	return c.pageSize
}

// FetchPage fetches one page of raw product records at the given offset. The
// offset must be non-negative and advance by PageSize between calls. An empty
// result signals end-of-catalog, not an error. Failures are reported as
// *TransportError or *FormatError.
func (c *Client) FetchPage(ctx context.Context, offset int) ([]RawProduct, error) {
	page := offset/c.pageSize + 1

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Page: page, Err: err}
	}

	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("size", fmt.Sprintf("%d", c.pageSize))
	reqURL := fmt.Sprintf("%s/products.json?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &TransportError{Page: page, Err: err}
	}

	if c.logger != nil {
		c.logger.Debug().
			Int("page", page).
			Int("size", c.pageSize).
			Msg("Fetching catalog page")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Page: page, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Page: page, StatusCode: resp.StatusCode}
	}

	var envelope productsPage
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &FormatError{Page: page, Err: err}
	}

	// Records are decoded individually so one malformed record degrades to a
	// skipped entry instead of aborting the whole refresh.
	records := make([]RawProduct, 0, len(envelope.Products))
	for i, raw := range envelope.Products {
		var record RawProduct
		if err := json.Unmarshal(raw, &record); err != nil {
			if c.logger != nil {
				c.logger.Warn().
					Err(err).
					Int("page", page).
					Int("index", i).
					Msg("Skipping malformed product record")
			}
			continue
		}
		records = append(records, record)
	}

	if c.logger != nil {
		c.logger.Debug().
			Int("page", page).
			Int("count", len(records)).
			Msg("Fetched catalog page")
	}

	return records, nil
}
