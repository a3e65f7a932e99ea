package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/notionsync/internal/model"
)

const (
	// DefaultBaseURL is the root of the public API.
	DefaultBaseURL = "https://api.notion.com/v1/"

	// DefaultAPIVersion is sent as the Notion-Version header.
	DefaultAPIVersion = "2022-06-28"

	// DefaultTimeout bounds a single HTTP round trip.
	DefaultTimeout = 60 * time.Second

	// maxRetryAfter is the largest Retry-After, in seconds, that fits in a
	// time.Duration.
	maxRetryAfter = uint64(math.MaxInt64 / int64(time.Second))

	// maxErrorBody caps how much of an error body is kept in ResponseError.
	maxErrorBody = 4096
)

// Client issues authenticated requests to the Notion API.
// It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	token      string
	apiVersion string
	userAgent  string
	pageSize   int
	httpClient *http.Client
	logger     *slog.Logger

	// options collected before NewClient resolves them
	rawBaseURL string
	proxyURL   string
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, e.g. for an httptest server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.rawBaseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client.
// WithProxy and WithTimeout are ignored when this is set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithProxy routes every request through the given proxy,
// e.g. "socks5://127.0.0.1:1080" or "http://proxy:3128".
func WithProxy(proxyURL string) Option {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithTimeout sets the timeout of a single HTTP round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithAPIVersion overrides the Notion-Version header.
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithPageSize sets page_size on listing requests. Zero leaves it to the
// server (100 at the time of writing).
func WithPageSize(n int) Option {
	return func(c *Client) {
		c.pageSize = n
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client authenticated with an integration token.
// It fails with ErrInvalidRequest when the token is empty or contains
// anything but visible ASCII, or when an option is malformed.
func NewClient(token string, opts ...Option) (*Client, error) {
	c := &Client{
		token:      token,
		apiVersion: DefaultAPIVersion,
		userAgent:  "notionsync",
		logger:     slog.Default(),
		rawBaseURL: DefaultBaseURL,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := validateToken(token); err != nil {
		return nil, err
	}
	if c.pageSize < 0 || c.pageSize > 100 {
		return nil, fmt.Errorf("%w: page size %d out of range 1-100", ErrInvalidRequest, c.pageSize)
	}

	base, err := parseBaseURL(c.rawBaseURL)
	if err != nil {
		return nil, err
	}
	c.baseURL = base

	if c.httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if c.proxyURL != "" {
			if err := applyProxy(transport, c.proxyURL); err != nil {
				return nil, err
			}
		}
		c.httpClient = &http.Client{
			Transport: transport,
			Timeout:   c.timeout,
		}
	}

	return c, nil
}

func validateToken(token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidRequest)
	}
	for i := 0; i < len(token); i++ {
		if token[i] < 0x21 || token[i] > 0x7e {
			return fmt.Errorf("%w: token contains non-printable or non-ASCII characters", ErrInvalidRequest)
		}
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed base URL %q: %w", ErrInvalidRequest, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q must be an absolute http(s) URL", ErrInvalidRequest, raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// BaseURL returns the API root requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// resolve turns an endpoint relative to the API root into an absolute URL.
func (c *Client) resolve(endpoint string) (*url.URL, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed endpoint %q: %w", ErrInvalidRequest, endpoint, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// do sends one request and returns the body of a 2xx response.
// body is JSON-encoded when non-nil.
func (c *Client) do(ctx context.Context, method string, u *url.URL, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode body: %w", ErrInvalidRequest, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.apiVersion)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, u, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		"method", method,
		"url", u.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body of %s: %w", ErrRequestFailed, u, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, throttled(resp, u)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, newResponseError(resp.StatusCode, data, u)
	}
	return data, nil
}

// throttled classifies a 429. Retry-After must be a whole number of seconds;
// anything else (missing, HTTP date, garbage, too large to wait for) is an
// invalid response.
func throttled(resp *http.Response, u *url.URL) error {
	header := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if header == "" {
		return fmt.Errorf("%w: status 429 without Retry-After from %s", ErrInvalidResponse, u)
	}
	secs, err := strconv.ParseUint(header, 10, 64)
	if err != nil || secs > maxRetryAfter {
		return fmt.Errorf("%w: status 429 with unusable Retry-After %q from %s", ErrInvalidResponse, header, u)
	}
	return &ThrottledError{RetryAfter: secs, URL: u.String()}
}

func newResponseError(status int, body []byte, u *url.URL) error {
	e := &ResponseError{
		StatusCode: status,
		URL:        u.String(),
	}

	var apiErr struct {
		Object  string `json:"object"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Object == "error" {
		e.Code = apiErr.Code
		e.Message = apiErr.Message
	}

	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	e.Body = string(body)
	return e
}

// Retrieve fetches a single block, page, database or user.
func (c *Client) Retrieve(ctx context.Context, kind model.Kind, id string) (model.Object, error) {
	var collection string
	switch kind {
	case model.KindBlock:
		collection = "blocks"
	case model.KindPage:
		collection = "pages"
	case model.KindDatabase:
		collection = "databases"
	case model.KindUser:
		collection = "users"
	default:
		return nil, fmt.Errorf("%w: %q objects cannot be retrieved by id", ErrInvalidRequest, kind)
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	u, err := c.resolve(collection + "/" + url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	obj, err := model.DecodeAs(data, kind)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidResponse, u, err)
	}
	return obj, nil
}
