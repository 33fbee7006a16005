// Package client is a Go client for the proof archive REST API.
//
// Session state is held in a *Session value owned by the caller. Every call
// that needs authentication takes the session explicitly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/campusdocs/proof-archive/internal/models"
)

// ErrNoSession is returned by authenticated calls made without a session
var ErrNoSession = errors.New("not logged in")

// Session is the result of a successful login
type Session struct {
	Token     string            `json:"token"`
	User      models.PublicUser `json:"user"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Expired reports whether the session token has passed its expiry
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string          `json:"error"`
	Details    json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 && string(e.Details) != "null" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status of an *APIError, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return http.NewRequestWithContext(ctx, method, u, body)
}

// do sends req and decodes a JSON response into out when out is not nil
func (c *Client) do(req *http.Request, s *Session, out interface{}) error {
	resp, err := c.send(req, s)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// send returns the response of a 2xx request. The caller closes the body.
func (c *Client) send(req *http.Request, s *Session) (*http.Response, error) {
	if s != nil {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return nil, apiErr
}

func (c *Client) getJSON(ctx context.Context, s *Session, path string, query url.Values, out interface{}) error {
	if s == nil {
		return ErrNoSession
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, s, out)
}

func (c *Client) sendJSON(ctx context.Context, s *Session, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, s, out)
}

// Ping calls the unauthenticated test endpoint
func (c *Client) Ping(ctx context.Context) error {
	return c.sendJSON(ctx, nil, http.MethodGet, "/api/test", nil, nil)
}
