// Package remote is the HTTP client of the users REST API the dashboard
// proxies. It performs single attempts; retrying belongs to the cache.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-dash/pkg/schema"
)

// DefaultBaseURL is the public mock API serving the users collection.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// UsersAPI is the set of remote operations on the users collection.
type UsersAPI interface {
	ListUsers(ctx context.Context) ([]schema.User, error)
	GetUser(ctx context.Context, id int) (schema.User, error)
	UpdateUser(ctx context.Context, id int, patch schema.UserPatch) (schema.User, error)
	DeleteUser(ctx context.Context, id int) error
}

// Client talks to the users API at BaseURL.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

var _ UsersAPI = (*Client)(nil)

// NewClient returns a client for baseURL. A zero timeout selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// BaseURL returns the API root the client was built for.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListUsers(ctx context.Context) ([]schema.User, error) {
	var users []schema.User
	if err := c.do(ctx, "list users", http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) GetUser(ctx context.Context, id int) (schema.User, error) {
	var u schema.User
	if err := c.do(ctx, "get user "+strconv.Itoa(id), http.MethodGet, userPath(id), nil, &u); err != nil {
		return schema.User{}, err
	}
	return u, nil
}

// UpdateUser sends a PATCH with the non-nil fields of patch and returns the
// user as the server echoes it.
func (c *Client) UpdateUser(ctx context.Context, id int, patch schema.UserPatch) (schema.User, error) {
	var u schema.User
	if err := c.do(ctx, "update user "+strconv.Itoa(id), http.MethodPatch, userPath(id), patch, &u); err != nil {
		return schema.User{}, err
	}
	return u, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.do(ctx, "delete user "+strconv.Itoa(id), http.MethodDelete, userPath(id), nil, nil)
}

func userPath(id int) string {
	return "/users/" + strconv.Itoa(id)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("op", op), zap.Error(err))
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return &Error{Op: op, Status: resp.StatusCode, Err: ErrNotFound}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("unexpected response %q", strings.TrimSpace(string(msg)))}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
