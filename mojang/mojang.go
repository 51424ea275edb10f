// Package mojang is the rate-limited HTTP collaborator the core talks to
// for session-server lookups (UUID/skin resolution). Authentication
// itself, and everything downstream of a lookup, is out of scope; this
// package only enforces the shared rate limit and gives callers a place
// to hang real HTTP calls behind.
package mojang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Profile is the subset of a session-server response the core cares
// about: identity and the signed skin/cape texture blob.
type Profile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Properties []struct {
		Name      string `json:"name"`
		Value     string `json:"value"`
		Signature string `json:"signature"`
	} `json:"properties"`
}

// Client rate-limits requests to the Mojang session server with a
// semaphore refilled on a fixed interval by a background ticker: a
// permit acquired for a request is not returned to the pool when the
// request finishes (that would make this a concurrency limiter, not a
// rate limiter) — only the ticker hands permits back, and only as many
// as were actually acquired since the last tick, so Release can never
// exceed what Acquire has handed out. No additional per-request timeout
// is imposed; callers wrap ctx with their own deadline if they need one.
type Client struct {
	http     *http.Client
	sem      *semaphore.Weighted
	burst    int64
	interval time.Duration
	baseURL  string

	acquiredSinceRefill atomic.Int64
	stop                chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client (default
// http.DefaultClient).
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithBaseURL overrides the session-server base URL, for tests.
func WithBaseURL(url string) Option { return func(c *Client) { c.baseURL = url } }

// NewClient returns a Client allowing burst requests per interval,
// starting the refill ticker immediately. Call Close to stop it.
func NewClient(burst int, interval time.Duration, opts ...Option) *Client {
	c := &Client{
		http:     http.DefaultClient,
		sem:      semaphore.NewWeighted(int64(burst)),
		burst:    int64(burst),
		interval: interval,
		baseURL:  "https://sessionserver.mojang.com",
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.refillLoop()
	return c
}

func (c *Client) refillLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := c.acquiredSinceRefill.Swap(0); n > 0 {
				c.sem.Release(n)
			}
		case <-c.stop:
			return
		}
	}
}

// Close stops the refill ticker. It does not cancel in-flight requests.
func (c *Client) Close() { close(c.stop) }

// ProfileByUUID fetches the signed profile for uuid (dashless), blocking
// until a rate-limit permit is available or ctx is canceled.
func (c *Client) ProfileByUUID(ctx context.Context, uuid string) (*Profile, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("mojang: acquire rate limit permit: %w", err)
	}
	c.acquiredSinceRefill.Add(1)

	url := fmt.Sprintf("%s/session/minecraft/profile/%s?unsigned=false", c.baseURL, uuid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mojang: request profile %s: %w", uuid, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mojang: session server returned %s for %s", resp.Status, uuid)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mojang: read profile body: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("mojang: decode profile: %w", err)
	}
	return &profile, nil
}
