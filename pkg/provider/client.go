// Package provider fetches delivery records from the messaging provider's
// history API.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmespath/go-jmespath"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/cache"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/metrics"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/models"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/tracing"
)

// ErrStatus is returned when the provider answers with a non-retryable status
var ErrStatus = errors.New("provider returned an error status")

type compiledPaths struct {
	items     *jmespath.JMESPath
	cursor    *jmespath.JMESPath
	text      *jmespath.JMESPath
	timestamp *jmespath.JMESPath
	phone     *jmespath.JMESPath
	direction *jmespath.JMESPath
	hasMedia  *jmespath.JMESPath
}

// Client wraps the HTTP client with pagination, retries and caching
type Client struct {
	client *http.Client
	config Config
	paths  compiledPaths
	cache  cache.Cache
	logger ectologger.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

// NewClient creates a provider client. A nil cache disables caching.
func NewClient(cfg Config, c cache.Cache, logger ectologger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("provider base url is required")
	}
	defaults := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaults.RetryBaseDelay
	}
	cfg.Paths = withDefaultPaths(cfg.Paths)

	paths, err := compilePaths(cfg.Paths)
	if err != nil {
		return nil, err
	}

	if c == nil {
		c = cache.Noop{}
	}

	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		paths:  paths,
		cache:  c,
		logger: logger,
		sleep:  sleepContext,
		now:    time.Now,
	}, nil
}

func withDefaultPaths(p Paths) Paths {
	d := DefaultPaths()
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return Paths{
		Items:     pick(p.Items, d.Items),
		Cursor:    pick(p.Cursor, d.Cursor),
		Text:      pick(p.Text, d.Text),
		Timestamp: pick(p.Timestamp, d.Timestamp),
		Phone:     pick(p.Phone, d.Phone),
		Direction: pick(p.Direction, d.Direction),
		HasMedia:  pick(p.HasMedia, d.HasMedia),
	}
}

func compilePaths(p Paths) (compiledPaths, error) {
	var out compiledPaths
	targets := []struct {
		name string
		expr string
		dst  **jmespath.JMESPath
	}{
		{"items", p.Items, &out.items},
		{"cursor", p.Cursor, &out.cursor},
		{"text", p.Text, &out.text},
		{"timestamp", p.Timestamp, &out.timestamp},
		{"phone", p.Phone, &out.phone},
		{"direction", p.Direction, &out.direction},
		{"has_media", p.HasMedia, &out.hasMedia},
	}
	for _, t := range targets {
		compiled, err := jmespath.Compile(t.expr)
		if err != nil {
			return out, fmt.Errorf("invalid %s path %q: %w", t.name, t.expr, err)
		}
		*t.dst = compiled
	}
	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchIdentifier returns every provider record for one phone number in the window
func (c *Client) FetchIdentifier(ctx context.Context, phoneNumber string, start, end time.Time) ([]models.ExternalMessageRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "provider.Client.FetchIdentifier")
	defer span.End()

	log := c.logger.WithContext(ctx).WithField("phone_number", phoneNumber)
	key := cache.Key(phoneNumber, start, end)

	if c.config.CacheTTL > 0 {
		cached, ok, err := c.cache.Fetch(ctx, key)
		if err != nil {
			log.WithError(err).Warn("Provider cache lookup failed")
		}
		if ok {
			var records []models.ExternalMessageRecord
			if err := json.Unmarshal(cached, &records); err == nil {
				metrics.CacheLookupsTotal.WithLabelValues(c.cache.Name(), metrics.CacheHit).Inc()
				log.Debugf("Loaded %d provider records from cache", len(records))
				return records, nil
			}
			log.Warn("Discarding undecodable cache entry")
		}
		metrics.CacheLookupsTotal.WithLabelValues(c.cache.Name(), metrics.CacheMiss).Inc()
	}

	records := make([]models.ExternalMessageRecord, 0)
	cursor := ""
	for page := 0; c.config.MaxPages == 0 || page < c.config.MaxPages; page++ {
		body, err := c.getPage(ctx, phoneNumber, start, end, cursor)
		if err != nil {
			return nil, err
		}

		pageRecords, next, err := c.parsePage(body, phoneNumber)
		if err != nil {
			return nil, err
		}
		records = append(records, pageRecords...)

		if next == "" || next == cursor {
			break
		}
		cursor = next
	}

	if c.config.CacheTTL > 0 {
		if encoded, err := json.Marshal(records); err == nil {
			if err := c.cache.Store(ctx, key, encoded, c.config.CacheTTL); err != nil {
				log.WithError(err).Warn("Failed to cache provider records")
			}
		}
	}

	log.Debugf("Fetched %d provider records", len(records))
	return records, nil
}

func (c *Client) pageURL(phoneNumber string, start, end time.Time, cursor string) (string, error) {
	base, err := url.Parse(strings.TrimRight(c.config.BaseURL, "/") + "/messages")
	if err != nil {
		return "", fmt.Errorf("invalid provider base url: %w", err)
	}
	q := base.Query()
	q.Set("phone", phoneNumber)
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	q.Set("limit", strconv.Itoa(c.config.PageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// getPage performs one page request, retrying transient failures
func (c *Client) getPage(ctx context.Context, phoneNumber string, start, end time.Time, cursor string) ([]byte, error) {
	target, err := c.pageURL(phoneNumber, start, end, cursor)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(fibonacci(attempt-1)) * c.config.RetryBaseDelay
			var retryAfter *retryAfterError
			if errors.As(lastErr, &retryAfter) {
				wait = retryAfter.wait
			}
			c.logger.WithContext(ctx).WithError(lastErr).Warnf("Retrying provider request in %s (attempt %d/%d)", wait, attempt, c.config.MaxRetries)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		body, retry, err := c.do(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}
	return nil, fmt.Errorf("provider request failed after %d retries: %w", c.config.MaxRetries, lastErr)
}

type retryAfterError struct {
	status int
	wait   time.Duration
}

func (e *retryAfterError) Error() string {
	return fmt.Sprintf("provider rate limited with status %d", e.status)
}

// do executes a single request and reports whether a failure is worth retrying
func (c *Client) do(ctx context.Context, target string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ProviderRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("error").Inc()
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.ProviderRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.WithContext(ctx).Debugf("HTTP GET %s -> %d (%s)", req.URL.Path, resp.StatusCode, time.Since(start))

	if !IsSuccessStatus(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))
		if IsRateLimitStatus(resp.StatusCode) {
			if wait, ok := ParseRetryAfter(resp.Header.Get("Retry-After"), c.now()); ok {
				return nil, true, &retryAfterError{status: resp.StatusCode, wait: wait}
			}
		}
		if IsRetryableStatus(resp.StatusCode) {
			return nil, true, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
		}
		return nil, false, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, false, fmt.Errorf("response too large: %d bytes (max %d)", resp.ContentLength, MaxResponseSize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, false, fmt.Errorf("response body too large: %d bytes (max %d)", len(body), MaxResponseSize)
	}
	return body, false, nil
}
