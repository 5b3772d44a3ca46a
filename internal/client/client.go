// Package client talks to the draft server's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

// ErrUnauthorized is returned when the server rejects the caller's credentials
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a non-2xx response from the server
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Is matches ErrUnauthorized for 401 and 403 responses
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden)
}

// Client is a draft server client. It satisfies draft.Persistence.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *Breaker
	token   string
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBreaker replaces the default circuit breaker
func WithBreaker(b *Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithToken sets a bearer token obtained elsewhere
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: NewBreaker(3, 10*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges the admin password for a bearer token used on later calls
func (c *Client) Login(ctx context.Context, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"password": password}, &resp); err != nil {
		return errors.Wrap(err, "login")
	}
	c.token = resp.Token
	return nil
}

func (c *Client) ListTeams(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	if err := c.do(ctx, http.MethodGet, "/api/draft/teams", nil, &teams); err != nil {
		return nil, errors.Wrap(err, "list teams")
	}
	return teams, nil
}

func (c *Client) ListStandby(ctx context.Context) ([]models.Player, error) {
	var players []models.Player
	if err := c.do(ctx, http.MethodGet, "/api/draft/standby", nil, &players); err != nil {
		return nil, errors.Wrap(err, "list standby")
	}
	return players, nil
}

func (c *Client) Assign(ctx context.Context, req models.AssignRequest) error {
	return errors.Wrap(c.do(ctx, http.MethodPost, "/api/draft/assign", req, nil), "assign")
}

func (c *Client) AssignAll(ctx context.Context, batch []models.AssignRequest) error {
	return errors.Wrap(c.do(ctx, http.MethodPost, "/api/draft/assign/all", batch, nil), "assign all")
}

// State reports the circuit breaker state
func (c *Client) State() BreakerState {
	return c.breaker.State()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.breaker.Allow(); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.Failure()
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.breaker.Failure()
		return statusError(resp)
	}
	c.breaker.Success()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	logger.Debug("Draft server rejected request", "status", resp.StatusCode, "error", body.Error)
	return &StatusError{Code: resp.StatusCode, Message: body.Error}
}
