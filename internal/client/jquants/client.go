// Package jquants is the market-data client: token refresh, trading calendar
// and paginated daily quotes.
package jquants

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL      = "https://api.jquants.com/v1"
	defaultDayMaxPages  = 300
	defaultCodeMaxPages = 200
	maxErrorBody        = 512
)

// TokenSource hands out bearer tokens. Invalidate is called when the API
// rejects a token so the next call refreshes it.
type TokenSource interface {
	IDToken(ctx context.Context) (string, error)
	Invalidate(ctx context.Context) error
}

type Client struct {
	host           string
	httpClient     *http.Client
	tokens         TokenSource
	requestTimeout time.Duration
	dayMaxPages    int
	codeMaxPages   int
}

type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Tokens         TokenSource
	RequestTimeout time.Duration
	DayMaxPages    int
	CodeMaxPages   int
}

type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jquants %s: http %d: %s", e.Path, e.Status, e.Body)
}

// ErrPaginationLimit aborts a fetch that keeps returning pagination keys.
var ErrPaginationLimit = errors.New("jquants: pagination limit exceeded")

func NewClient(opts Options) *Client {
	host := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if host == "" {
		host = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	c := &Client{
		host:           host,
		httpClient:     httpClient,
		tokens:         opts.Tokens,
		requestTimeout: opts.RequestTimeout,
		dayMaxPages:    opts.DayMaxPages,
		codeMaxPages:   opts.CodeMaxPages,
	}
	if c.dayMaxPages <= 0 {
		c.dayMaxPages = defaultDayMaxPages
	}
	if c.codeMaxPages <= 0 {
		c.codeMaxPages = defaultCodeMaxPages
	}
	return c
}

// doRequest issues an authenticated GET. A 401 invalidates the token and the
// request is replayed once with a fresh one.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.tokens == nil {
		return nil, &AuthError{Message: "no token source configured"}
	}
	body, err := c.get(ctx, path, query)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		if ierr := c.tokens.Invalidate(ctx); ierr != nil {
			return nil, err
		}
		return c.get(ctx, path, query)
	}
	return body, err
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	token, err := c.tokens.IDToken(ctx)
	if err != nil {
		return nil, err
	}
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jquants %s: request failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jquants %s: failed to read response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Path: path, Body: truncate(string(body), maxErrorBody)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
