package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Ztola/shopify-ai-seo/internal/domain"
	"github.com/Ztola/shopify-ai-seo/internal/logger"
	"github.com/Ztola/shopify-ai-seo/pkg/httpclient"
)

const (
	// APIVersion pins the Shopify Admin REST API version used for all calls.
	APIVersion = "2024-01"

	// MaxPageSize is the platform's hard pagination limit.
	MaxPageSize = 250

	defaultMinInterval = 500 * time.Millisecond
	defaultMaxAttempts = 3
	defaultTimeout     = 30 * time.Second
	backoffBase        = 500 * time.Millisecond
	backoffMax         = 10 * time.Second
)

// Options tunes the paging client.
type Options struct {
	Timeout     time.Duration
	MinInterval time.Duration
	MaxAttempts int

	// BaseURL overrides the per-shop Admin API URL. Used by tests to point
	// the client at a local server.
	BaseURL string
}

// RawResponse is the undecoded result of a catalog API call.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client wraps outbound Shopify Admin API calls with a minimum inter-call
// interval and a single in-flight call per shop, cursor-following
// pagination, and retry with backoff for transient failures. Calls for
// different shops proceed independently.
type Client struct {
	http        *resty.Client
	creds       *CredentialResolver
	minInterval time.Duration
	maxAttempts int
	baseURL     string
	log         logger.Logger

	mu    sync.Mutex
	gates map[string]*shopGate
}

// shopGate serializes calls for one shop and tracks its last call time.
type shopGate struct {
	mu       sync.Mutex
	lastCall time.Time
}

// NewClient builds a rate-limited paging client over the given credential resolver.
func NewClient(creds *CredentialResolver, opts Options, log logger.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = defaultMinInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Client{
		http:        httpclient.NewRestyHTTPClient(opts.Timeout),
		creds:       creds,
		minInterval: opts.MinInterval,
		maxAttempts: opts.MaxAttempts,
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		log:         log,
	}
}

// Do performs a single API call for the shop. path is API-relative, e.g.
// "/products/1.json". A non-nil body is sent as JSON.
func (c *Client) Do(ctx context.Context, shop domain.Shop, method, path string, body any) (*RawResponse, error) {
	shop, err := c.creds.Resolve(shop)
	if err != nil {
		return nil, err
	}

	gate := c.gateFor(shop.Domain)
	gate.mu.Lock()
	defer gate.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := gate.waitInterval(ctx, c.minInterval); err != nil {
			return nil, err
		}

		resp, err := c.execute(ctx, shop, method, path, body)
		gate.lastCall = time.Now()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == c.maxAttempts {
			break
		}

		c.log.WarnObj("shopify call retrying", "shopify_retry", map[string]any{
			"shop":    shop.Domain,
			"method":  method,
			"path":    path,
			"attempt": attempt,
			"error":   err.Error(),
		})
		if err := sleepBackoff(ctx, attempt, retryAfterHint(err)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// execute issues one HTTP request and classifies its outcome.
func (c *Client) execute(ctx context.Context, shop domain.Shop, method, path string, body any) (*RawResponse, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Shopify-Access-Token", shop.AccessToken).
		SetHeader("Content-Type", "application/json")
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, c.urlFor(shop, path))
	if err != nil {
		return nil, fmt.Errorf("shopify %s %s: %w", method, path, err)
	}

	raw := &RawResponse{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.IsError() {
		return nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode(),
			Header:     resp.Header(),
			Body:       resp.Body(),
		}
	}
	return raw, nil
}

// FetchAll follows the Link header continuation cursor from firstPath until
// no next page remains, collecting the items under envelopeKey from every
// page. A repeated cursor aborts with ErrPaginationLoop rather than looping.
func (c *Client) FetchAll(ctx context.Context, shop domain.Shop, firstPath, envelopeKey string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	seen := map[string]bool{firstPath: true}

	path := firstPath
	for path != "" {
		resp, err := c.Do(ctx, shop, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		page, err := decodeEnvelopeList(resp.Body, envelopeKey)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", path, err)
		}
		items = append(items, page...)

		next, err := nextPagePath(resp.Header.Get("Link"))
		if err != nil {
			return nil, err
		}
		if next != "" && seen[next] {
			return nil, fmt.Errorf("cursor %q: %w", next, ErrPaginationLoop)
		}
		if next != "" {
			seen[next] = true
		}
		path = next
	}
	return items, nil
}

// gateFor returns the per-shop serialization gate, creating it on first use.
func (c *Client) gateFor(shopDomain string) *shopGate {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gates == nil {
		c.gates = make(map[string]*shopGate)
	}
	g, ok := c.gates[shopDomain]
	if !ok {
		g = &shopGate{}
		c.gates[shopDomain] = g
	}
	return g
}

// urlFor builds the absolute Admin API URL for an API-relative path.
func (c *Client) urlFor(shop domain.Shop, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if c.baseURL != "" {
		return c.baseURL + path
	}
	return fmt.Sprintf("https://%s/admin/api/%s%s", shop.Domain, APIVersion, path)
}

// waitInterval blocks until the minimum inter-call interval has elapsed.
func (g *shopGate) waitInterval(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || g.lastCall.IsZero() {
		return nil
	}
	wait := interval - time.Since(g.lastCall)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// sleepBackoff waits before a retry, honoring a Retry-After hint when present.
func sleepBackoff(ctx context.Context, attempt int, retryAfter time.Duration) error {
	sleep := retryAfter
	if sleep <= 0 {
		sleep = backoffBase * time.Duration(1<<(attempt-1))
		if sleep > backoffMax {
			sleep = backoffMax
		}
	}
	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryAfterHint extracts a Retry-After duration from a throttled response, if any.
func retryAfterHint(err error) time.Duration {
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Header == nil {
		return 0
	}
	v := strings.TrimSpace(apiErr.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	secs, err2 := strconv.ParseFloat(v, 64)
	if err2 != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// nextPagePath extracts the rel="next" target from a Link header and strips
// it down to the API-relative path, so pagination keeps flowing through the
// per-shop base URL.
func nextPagePath(linkHeader string) (string, error) {
	if linkHeader == "" {
		return "", nil
	}
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end <= start {
			return "", fmt.Errorf("malformed Link header %q", linkHeader)
		}
		raw := part[start+1 : end]
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parse next page url %q: %w", raw, err)
		}
		path := u.Path
		if idx := strings.Index(path, "/admin/api/"); idx >= 0 {
			rest := path[idx+len("/admin/api/"):]
			if slash := strings.Index(rest, "/"); slash >= 0 {
				path = rest[slash:]
			}
		}
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		return path, nil
	}
	return "", nil
}

// decodeEnvelopeList unwraps a JSON envelope ({"products": [...]}) into its
// item list. A missing key is a malformed body, fatal for the call.
func decodeEnvelopeList(body []byte, key string) ([]json.RawMessage, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	raw, ok := env[key]
	if !ok {
		return nil, fmt.Errorf("response missing %q envelope", key)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %q list: %w", key, err)
	}
	return items, nil
}

// decodeEnvelopeObject unwraps a single-object JSON envelope ({"product": {...}}).
func decodeEnvelopeObject(body []byte, key string, out any) error {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	raw, ok := env[key]
	if !ok {
		return fmt.Errorf("response missing %q envelope", key)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %q object: %w", key, err)
	}
	return nil
}

// queryInt formats an int64 query parameter value.
func queryInt(v int64) string { return strconv.FormatInt(v, 10) }
