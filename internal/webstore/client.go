package webstore

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ClientConfig controls the transport session and its retry budget.
type ClientConfig struct {
	Endpoint   string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	DelayMin   time.Duration
	DelayMax   time.Duration
}

// Client owns the long-lived HTTP session used for one whole crawl. The
// session is reused across pages for header and connection-pool efficiency
// and must be released with Close when the crawl ends.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	origin     string
	logger     *zap.Logger

	// sleep is swappable so tests do not wait out real backoff.
	sleep func(ctx context.Context, d time.Duration)
}

// NewClient builds a Client from config. MaxRetries must be >= 1.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.MaxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be >= 1")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q is not an absolute URL", cfg.Endpoint)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		origin:     u.Scheme + "://" + u.Host,
		logger:     logger,
		sleep:      sleepContext,
	}, nil
}

// Send issues the POST with the browser header set and retries on any
// transport failure or non-success status. The wait before attempt k
// (0-indexed) is 2^k seconds plus a uniformly random sub-second jitter.
// Exhausting the budget returns *TransportError wrapping the last failure.
func (c *Client) Send(ctx context.Context, body string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt - 1)
			c.logger.Info("retrying request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", c.cfg.MaxRetries),
				zap.Duration("wait", wait))
			TotalRetries.Inc()
			c.sleep(ctx, wait)
		}

		text, err := c.post(ctx, body)
		if err == nil {
			c.logger.Debug("request succeeded", zap.Int("response_length", len(text)))
			return text, nil
		}
		lastErr = err
		TotalRequestErrors.Inc()
		c.logger.Warn("request attempt failed",
			zap.Int("attempt", attempt+1), zap.Error(err))

		if ctx.Err() != nil {
			break
		}
	}
	return "", &TransportError{Attempts: c.cfg.MaxRetries, Err: lastErr}
}

func (c *Client) post(ctx context.Context, body string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	TotalRequests.Inc()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("close response body", zap.Error(closeErr))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return string(data), nil
}

// setHeaders applies the realistic desktop-browser header set the endpoint's
// minimal bot filtering expects.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.Header.Set("Origin", c.origin)
	req.Header.Set("Referer", c.origin+"/")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
}

// Delay blocks for a uniformly random duration within the configured
// inter-page range. It throttles request rate between completed pages and is
// independent of retry backoff.
func (c *Client) Delay(ctx context.Context) {
	span := c.cfg.DelayMax - c.cfg.DelayMin
	wait := c.cfg.DelayMin
	if span > 0 {
		wait += randomDuration(span)
	}
	if wait <= 0 {
		return
	}
	c.logger.Debug("inter-page delay", zap.Duration("wait", wait))
	c.sleep(ctx, wait)
}

// Close releases the session's idle connections. Safe to call on every exit
// path, including after failures.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// backoff returns 2^k seconds plus sub-second jitter for 0-indexed k.
func backoff(k int) time.Duration {
	if k > 10 {
		k = 10
	}
	return time.Duration(1<<uint(k))*time.Second + randomDuration(time.Second)
}

func randomDuration(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
