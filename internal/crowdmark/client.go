package crowdmark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production Crowdmark host.
const DefaultBaseURL = "https://app.crowdmark.com"

// DefaultMaxPages bounds the course listing walk.
const DefaultMaxPages = 100

// ErrTooManyPages is returned when a paginated listing never reports its last page.
var ErrTooManyPages = errors.New("pagination did not terminate")

// ErrNotFound matches an *APIError with status 404.
var ErrNotFound = errors.New("not found")

// APIError is returned for any non-2xx response.
type APIError struct {
	Status int
	URL    string
	Body   string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("crowdmark API %s: status %d: %s", e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("crowdmark API %s: status %d", e.URL, e.Status)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client calls the student-facing Crowdmark JSON API using an existing
// browser session cookie.
type Client struct {
	baseURL  string
	cookie   string
	maxPages int
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets a per-request timeout. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithMaxPages caps how many pages a paginated listing may walk.
func WithMaxPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// New creates a new API client. The cookie is sent verbatim as the Cookie header.
func New(baseURL, cookie string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		cookie:   cookie,
		maxPages: DefaultMaxPages,
		http:     &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the host the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ScoreLink builds the public share link for an assignment uuid.
func ScoreLink(baseURL, uuid string) string {
	return strings.TrimRight(baseURL, "/") + "/score/" + url.PathEscape(uuid)
}

// getJSON issues a GET against path (relative to the base URL) and decodes
// the body into v.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	slog.Debug("crowdmark request", "url", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Status: resp.StatusCode, URL: u, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
