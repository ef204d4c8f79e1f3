// Package api is the HTTP client for the CivicWatch backend. It covers
// the push-subscription endpoints and the engagement summary, with a
// short-lived response cache so repeated badge checks do not hammer
// the backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/civicwatch/herald/internal/badge"
	"github.com/civicwatch/herald/internal/logging"
	"github.com/civicwatch/herald/internal/platform"
)

const (
	// DefaultBaseURL is the production CivicWatch API.
	DefaultBaseURL = "https://api.civicwatch.org"
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 15 * time.Second
	// cacheTTL is the freshness window for cached responses.
	cacheTTL = 60 * time.Second
)

// EngagementPrefix covers every engagement endpoint, for cache
// invalidation.
const EngagementPrefix = "/api/v1/engagement"

const (
	vapidKeyPath  = "/api/v1/push/vapid-key"
	subscribePath = "/api/v1/push/subscribe"
	locationPath  = "/api/v1/push/location"
	summaryPath   = EngagementPrefix + "/summary"
)

// HTTPError is a non-2xx backend response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Client is a CivicWatch API client. The device ID identifies the
// anonymous client identity to the backend.
type Client struct {
	BaseURL    string
	DeviceID   string
	HTTPClient *http.Client

	log *logging.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	data      []byte
	fetchedAt time.Time
}

// NewClient creates a client for the given backend.
func NewClient(baseURL, deviceID string, log *logging.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		DeviceID: deviceID,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log:   log,
		cache: make(map[string]cacheEntry),
	}
}

// VapidKeyResponse is the body of GET /api/v1/push/vapid-key.
type VapidKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

// VapidKey fetches the server's public key material for push
// subscriptions, base64url-encoded.
func (c *Client) VapidKey(ctx context.Context) (string, error) {
	var out VapidKeyResponse
	if err := c.doJSON(ctx, http.MethodGet, vapidKeyPath, nil, &out); err != nil {
		return "", err
	}
	return out.PublicKey, nil
}

// subscribeRequest is the push-subscribe body. Location stays null when
// no position fix was available.
type subscribeRequest struct {
	Subscription *platform.Subscription `json:"subscription"`
	Location     *platform.Coords       `json:"location"`
}

// SubscribePush registers (or re-links) the subscription with the
// backend. loc may be nil.
func (c *Client) SubscribePush(ctx context.Context, sub *platform.Subscription, loc *platform.Coords) error {
	return c.doJSON(ctx, http.MethodPost, subscribePath, subscribeRequest{Subscription: sub, Location: loc}, nil)
}

// UnsubscribePush deactivates the subscription on the backend.
func (c *Client) UnsubscribePush(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, subscribePath, nil, nil)
}

// UpdatePushLocation PATCHes a new position onto the subscription.
func (c *Client) UpdatePushLocation(ctx context.Context, lat, lng float64) error {
	return c.doJSON(ctx, http.MethodPatch, locationPath, platform.Coords{Latitude: lat, Longitude: lng}, nil)
}

// EngagementSummary fetches the user's engagement summary. A copy
// fetched within the last cacheTTL is served from cache instead.
func (c *Client) EngagementSummary(ctx context.Context) (*badge.Summary, error) {
	if data, ok := c.cached(summaryPath); ok {
		var summary badge.Summary
		if err := json.Unmarshal(data, &summary); err == nil {
			c.log.Debug("engagement summary served from cache")
			return &summary, nil
		}
	}

	data, err := c.do(ctx, http.MethodGet, summaryPath, nil)
	if err != nil {
		return nil, err
	}
	var summary badge.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	c.store(summaryPath, data)
	return &summary, nil
}

// InvalidatePrefix drops every cached response whose path starts with
// the given prefix.
func (c *Client) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path := range c.cache {
		if strings.HasPrefix(path, prefix) {
			delete(c.cache, path)
		}
	}
}

func (c *Client) cached(path string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[path]
	if !ok || time.Since(entry.fetchedAt) >= cacheTTL {
		return nil, false
	}
	return entry.data, true
}

func (c *Client) store(path string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[path] = cacheEntry{data: data, fetchedAt: time.Now()}
}

// doJSON runs a request and decodes the response into out, which may
// be nil for endpoints whose body does not matter.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	data, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.DeviceID != "" {
		req.Header.Set("X-Device-ID", c.DeviceID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(payload))}
	}
	return payload, nil
}
