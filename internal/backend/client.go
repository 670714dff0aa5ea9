// Package backend wraps outbound calls to the kiosk backend with the static
// bearer credential and uniform error classification. It never retries; the
// retry/backoff loops live with the callers.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Status     int
	StatusText string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed: %d %s", e.Status, e.StatusText)
}

// IsAuthError reports whether err is a 401/403-class failure, used to tell
// an expired session apart from a generic network problem.
func IsAuthError(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status == http.StatusUnauthorized || he.Status == http.StatusForbidden
	}
	return false
}

// TokenSource yields the current session token, when one exists. The session
// manager is the single writer; this client only reads.
type TokenSource interface {
	CurrentToken(ctx context.Context) (string, bool)
}

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	tokens  TokenSource
}

func New(baseURL, apiKey string) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SetTokenSource attaches a session-token provider; the token rides along on
// every subsequent request.
func (c *Client) SetTokenSource(ts TokenSource) { c.tokens = ts }

// URL resolves a path against the backend base URL.
func (c *Client) URL(path string) string {
	return c.baseURL + strings.TrimPrefix(path, "/")
}

// GetJSON performs an authenticated GET. Non-2xx responses come back as
// *HTTPError. A 2xx JSON body is decoded into out; a 2xx body of any other
// content type is treated as a bodyless success (auth pings and the like).
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.tokens != nil {
		if token, ok := c.tokens.CurrentToken(ctx); ok {
			req.Header.Set("X-Session-Token", token)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &HTTPError{Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
	}

	if out != nil && strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return nil
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

// Get is GetJSON without a body expectation.
func (c *Client) Get(ctx context.Context, path string) error {
	return c.GetJSON(ctx, path, nil)
}
