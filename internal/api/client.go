// Package api is a typed client for the shopping-list REST service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/idilsaglam/shoplist/internal/model"
)

const maxErrorBody = 512

// Client talks to the REST service. It never retries and sets no
// timeout of its own; callers bound calls through the context.
type Client struct {
	base   *url.URL
	http   *http.Client
	token  string
	logger *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends the token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client rooted at baseURL, e.g. "http://localhost:3000/".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{base: u, http: http.DefaultClient, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ListItems fetches every item (GET /items).
func (c *Client) ListItems(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, "list items", http.MethodGet, c.path("items"), nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// CreateItem posts a draft (POST /items). The returned item carries the
// server-assigned id and timestamp.
func (c *Client) CreateItem(ctx context.Context, draft model.Item) (model.Item, error) {
	draft.ID = 0
	draft.CreatedAt = ""
	var created model.Item
	if err := c.do(ctx, "create item", http.MethodPost, c.path("items"), draft, &created); err != nil {
		return model.Item{}, err
	}
	return created, nil
}

type checkBody struct {
	Checked bool `json:"is_checked"`
}

// SetChecked sets the checked flag (PUT /items/{id}/check).
func (c *Client) SetChecked(ctx context.Context, id int, checked bool) error {
	return c.do(ctx, "set checked", http.MethodPut, c.path("items", strconv.Itoa(id), "check"), checkBody{checked}, nil)
}

// UpdateDetails sends a partial update (PUT /items/{id}).
func (c *Client) UpdateDetails(ctx context.Context, id int, u model.DetailsUpdate) error {
	return c.do(ctx, "update details", http.MethodPut, c.path("items", strconv.Itoa(id)), u, nil)
}

// DeleteItem removes an item (DELETE /items/{id}).
func (c *Client) DeleteItem(ctx context.Context, id int) error {
	return c.do(ctx, "delete item", http.MethodDelete, c.path("items", strconv.Itoa(id)), nil, nil)
}

func (c *Client) path(elem ...string) string {
	return c.base.JoinPath(elem...).String()
}

// do performs one exchange. in is JSON-encoded when non-nil; out is
// decoded from the response when non-nil, otherwise the body is drained.
func (c *Client) do(ctx context.Context, op, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		"op", op, "method", method, "url", target,
		"status", resp.StatusCode, "request_id", reqID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}
