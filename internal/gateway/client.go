package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clawchat/internal/domain"
)

const defaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is kept for the error.
const maxErrorBody = 512

// StatusError is returned for any non-2xx gateway answer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Client implements domain.Gateway over the gateway's REST API.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
	limiter *limiter
	logger  *slog.Logger
}

var _ domain.Gateway = (*Client)(nil)

type ClientConfig struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration // per request; streams are only bounded while waiting for headers
	RateLimitPerMin int           // 0 = unlimited
	RateBurst       int
	Logger          *slog.Logger
	HTTPClient      *http.Client // optional override, mainly for tests
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newHTTPClient(cfg.Timeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: cfg.Timeout,
		http:    cfg.HTTPClient,
		limiter: newLimiter(cfg.RateLimitPerMin, cfg.RateBurst),
		logger:  cfg.Logger,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// send waits for the rate limiter, performs the request, and turns non-2xx
// answers into a *StatusError. On success the caller closes the body.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway %s %s: %w", req.Method, req.URL.Path, err)
	}
	c.logger.Debug("gateway request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// getJSON fetches path and decodes the JSON answer into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
