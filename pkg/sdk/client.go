// Package sdk provides the client-side library for the Celerix Records daemon.
// Every entity of the daemon is reached through a Resource scope.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const maxAttempts = 3

// APIError is a non-2xx answer of the daemon.
type APIError struct {
	Status  int
	Message string
	Field   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("celerix-records: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 answer.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

// IsValidation reports whether err is a 422 answer.
func IsValidation(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusUnprocessableEntity
}

// Item is one record as returned by the daemon, identity included.
type Item map[string]any

// ID returns the identity of the item, or 0 when absent.
func (i Item) ID() int64 {
	switch v := i["id"].(type) {
	case json.Number:
		n, _ := v.Int64()
		return n
	case float64:
		return int64(v)
	}
	return 0
}

// Client talks to a remote daemon over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Connect returns a client for the daemon at addr. addr may omit the scheme.
func Connect(addr string, opts ...Option) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	c := &Client{
		baseURL: strings.TrimRight(addr, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks the daemon health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Resource returns a scope bound to the entity served under prefix.
func (c *Client) Resource(prefix string) *Resource {
	return &Resource{client: c, prefix: "/" + strings.Trim(prefix, "/")}
}

// do sends one request. Transport failures on idempotent methods are retried
// with a linear backoff; HTTP answers are never retried.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	attempts := 1
	if method != http.MethodPost {
		attempts = maxAttempts
	}

	var err error
	for i := 0; i < attempts; i++ {
		var resp *http.Response
		resp, err = c.send(ctx, method, path, payload)
		if err == nil {
			defer resp.Body.Close()
			return decode(resp, out)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i+1 < attempts {
			fmt.Fprintf(os.Stderr, "[Celerix SDK] Attempt %d failed: %v. Retrying...\n", i+1, err)
			time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
		}
	}
	return fmt.Errorf("failed after %d attempts. last error: %w", attempts, err)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func decode(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
			Field string `json:"field"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: body.Error, Field: body.Field}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Resource is a scoped client that remembers its entity prefix.
type Resource struct {
	client *Client
	prefix string
}

// Create stores a new item and returns it with its assigned identity.
func (r *Resource) Create(ctx context.Context, values any) (Item, error) {
	var out Item
	err := r.client.do(ctx, http.MethodPost, r.prefix+"/", values, &out)
	return out, err
}

// List returns every item of the entity.
func (r *Resource) List(ctx context.Context) ([]Item, error) {
	var out []Item
	err := r.client.do(ctx, http.MethodGet, r.prefix+"/", nil, &out)
	return out, err
}

// Get returns the item with the given identity.
func (r *Resource) Get(ctx context.Context, id int64) (Item, error) {
	var out Item
	err := r.client.do(ctx, http.MethodGet, r.itemPath(id), nil, &out)
	return out, err
}

// Update replaces every field of an item.
func (r *Resource) Update(ctx context.Context, id int64, values any) (Item, error) {
	var out Item
	err := r.client.do(ctx, http.MethodPut, r.itemPath(id), values, &out)
	return out, err
}

// Delete removes an item.
func (r *Resource) Delete(ctx context.Context, id int64) error {
	return r.client.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

func (r *Resource) itemPath(id int64) string {
	return r.prefix + "/" + strconv.FormatInt(id, 10)
}

// --- Generics Support ---

// Get retrieves an item decoded into T.
func Get[T any](ctx context.Context, r *Resource, id int64) (T, error) {
	var target T
	err := r.client.do(ctx, http.MethodGet, r.itemPath(id), nil, &target)
	return target, err
}

// List retrieves every item decoded into T.
func List[T any](ctx context.Context, r *Resource) ([]T, error) {
	var target []T
	err := r.client.do(ctx, http.MethodGet, r.prefix+"/", nil, &target)
	return target, err
}
