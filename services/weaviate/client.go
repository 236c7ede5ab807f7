package weaviate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	readyPath = "/v1/.well-known/ready"
	livePath  = "/v1/.well-known/live"
	metaPath  = "/v1/meta"
)

// ErrUnauthorized is returned when the vector store refuses a request that
// carries no credentials.
var ErrUnauthorized = errors.New("anonymous access refused")

// Meta is the subset of the vector store's /v1/meta document we read.
type Meta struct {
	Hostname string                     `json:"hostname"`
	Version  string                     `json:"version"`
	Modules  map[string]json.RawMessage `json:"modules"`
}

// HasModule reports whether the store loaded the named module.
func (m *Meta) HasModule(name string) bool {
	_, ok := m.Modules[name]
	return ok
}

// Client queries the vector store's HTTP API without credentials.
type Client struct {
	http *http.Client
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

func (c *Client) expectOK(ctx context.Context, baseURL, path string) error {
	url := strings.TrimRight(baseURL, "/") + path
	resp, err := c.get(ctx, url)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("get %s: %w (%d)", url, ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}
	return nil
}

// Ready asks the readiness endpoint once.
func (c *Client) Ready(ctx context.Context, baseURL string) error {
	return c.expectOK(ctx, baseURL, readyPath)
}

// Live asks the liveness endpoint once.
func (c *Client) Live(ctx context.Context, baseURL string) error {
	return c.expectOK(ctx, baseURL, livePath)
}

// Meta fetches the store's metadata anonymously.
func (c *Client) Meta(ctx context.Context, baseURL string) (*Meta, error) {
	url := strings.TrimRight(baseURL, "/") + metaPath
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("get %s: %w (%d)", url, ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("get %s failed (%d): %s", url, resp.StatusCode, string(b))
	}

	var meta Meta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return &meta, nil
}

// WaitReady polls the readiness endpoint until it answers or timeout
// elapses. A refused anonymous request stops the wait at once.
func (c *Client) WaitReady(ctx context.Context, baseURL string, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	b := retry.WithMaxDuration(timeout, retry.NewConstant(interval))

	var last error
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := c.Ready(ctx, baseURL)
		if err == nil || errors.Is(err, ErrUnauthorized) {
			return err
		}
		last = err
		return retry.RetryableError(err)
	})
	if err != nil && last != nil && errors.Is(err, last) {
		return fmt.Errorf("vector store not ready after %s: %w", timeout, last)
	}
	return err
}
