package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gorecipe/internal/cache"
	"github.com/hyperifyio/gorecipe/internal/recipe"
)

const (
	// DefaultTimeout bounds each request when PerRequestTimeout is zero.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps response bodies when MaxBodyBytes is zero.
	DefaultMaxBodyBytes = 8 << 20
	DefaultUserAgent    = "gorecipe/1.0 (+https://github.com/hyperifyio/gorecipe)"
)

// Getter retrieves a URL. Adapters depend on this instead of *Client so
// tests can serve fixtures without a network.
type Getter interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// Response is a fetched resource. StatusCode is reported as-is; judging it
// is the caller's job.
type Response struct {
	// URL is the final URL after redirects.
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client wraps http.Client with a per-request timeout, a redirect policy,
// an optional concurrency gate, and an optional conditional-GET cache.
// It never retries. A Client is safe for concurrent use once configured.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// PerRequestTimeout bounds each request including reading the body.
	// Zero means DefaultTimeout.
	PerRequestTimeout time.Duration
	// Optional on-disk cache for GET bodies and validators.
	Cache *cache.HTTPCache
	// If true, skip revalidation against the cache but still save fresh
	// responses to it.
	BypassCache bool

	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// MaxConcurrent limits in-flight requests per client. Zero means unlimited.
	MaxConcurrent int
	// MaxBodyBytes caps the response body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	httpOnce sync.Once
	http     *http.Client

	// internal limiter initialized on first use when MaxConcurrent > 0
	limiter     chan struct{}
	limiterOnce sync.Once
}

func (c *Client) getHTTPClient() *http.Client {
	c.httpOnce.Do(func() {
		if c.HTTPClient != nil {
			// Copy to attach our redirect policy without mutating the caller's client
			base := *c.HTTPClient
			base.CheckRedirect = c.checkRedirectFunc()
			c.http = &base
			return
		}
		c.http = &http.Client{
			Transport:     newTransport(),
			CheckRedirect: c.checkRedirectFunc(),
		}
	})
	return c.http
}

// CloseIdleConnections closes idle keep-alive connections of the
// underlying transport.
func (c *Client) CloseIdleConnections() {
	c.getHTTPClient().CloseIdleConnections()
}

func (c *Client) timeout() time.Duration {
	if c.PerRequestTimeout > 0 {
		return c.PerRequestTimeout
	}
	return DefaultTimeout
}

// Get issues a single GET. Transport failures, timeouts, rejected schemes
// and oversized bodies are returned as *recipe.FetchError.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	start := time.Now()
	var meta *cache.HTTPEntry
	if c.Cache != nil && !c.BypassCache {
		if m, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && m != nil {
			meta = m
		}
	}
	resp, err := c.tryOnce(ctx, rawURL, meta)
	if err != nil {
		log.Debug().Err(err).Str("url", rawURL).Dur("duration", time.Since(start)).Msg("fetch failed")
		return nil, &recipe.FetchError{URL: rawURL, Err: err}
	}
	if resp.StatusCode == http.StatusNotModified && meta != nil {
		body, err := c.Cache.LoadBody(ctx, rawURL)
		if err == nil {
			log.Debug().Str("url", rawURL).Int("bytes", len(body)).Msg("fetch served from cache")
			return &Response{URL: resp.URL, StatusCode: http.StatusOK, ContentType: meta.ContentType, Body: body}, nil
		}
		// The validators point at a body we no longer have. Drop the entry
		// and ask again unconditionally.
		log.Warn().Err(err).Str("url", rawURL).Msg("cached body unusable after 304, refetching")
		if derr := c.Cache.Delete(ctx, rawURL); derr != nil {
			log.Warn().Err(derr).Str("url", rawURL).Msg("cache delete failed")
		}
		resp, err = c.tryOnce(ctx, rawURL, nil)
		if err != nil {
			log.Debug().Err(err).Str("url", rawURL).Dur("duration", time.Since(start)).Msg("fetch failed")
			return nil, &recipe.FetchError{URL: rawURL, Err: err}
		}
	}
	if c.Cache != nil && resp.StatusCode == http.StatusOK {
		if err := c.Cache.Save(ctx, rawURL, resp.ContentType, resp.etag, resp.lastModified, resp.Body); err != nil {
			log.Warn().Err(err).Str("url", rawURL).Msg("cache save failed")
		}
	}
	log.Debug().
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Int("bytes", len(resp.Body)).
		Dur("duration", time.Since(start)).
		Msg("fetched")
	return &resp.Response, nil
}

type rawResponse struct {
	Response
	etag         string
	lastModified string
}

func (c *Client) tryOnce(ctx context.Context, rawURL string, meta *cache.HTTPEntry) (*rawResponse, error) {
	// Concurrency gate per client instance
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	// Reject non-HTTP(S) schemes early
	if !isHTTPScheme(req.URL) {
		return nil, fmt.Errorf("unsupported URL scheme: %q", req.URL.Scheme)
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if meta != nil {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &rawResponse{
		Response: Response{
			URL:         resp.Request.URL.String(),
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
		},
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}
	if resp.StatusCode == http.StatusNotModified {
		return out, nil
	}
	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	out.Body = b
	return out, nil
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func (c *Client) acquire(ctx context.Context) error {
	if c.MaxConcurrent <= 0 {
		return nil
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	select {
	case c.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
