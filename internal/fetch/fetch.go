// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package fetch implements the resilient HTTP fetcher shared by every provider
adapter.

Failure policy:

  - A non-2xx status, a transport error, a per-request timeout or an undecodable
    body is one failed attempt.
  - Attempts are retried with a linear backoff (attempt * base delay).
  - After the last attempt the fetcher reports absence (false), never an error.
    Callers treat absence as "skip this unit of work".

The backoff policy lives here only; adapters never sleep-loop on their own.
*/
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"time"

	"github.com/taibuivan/ikusare/internal/platform/constants"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultBaseDelay   = 1 * time.Second
	defaultHTMLRetries = 3

	// maxBodyBytes caps a single response body.
	maxBodyBytes = 16 << 20
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client performs retrying GET requests.
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	timeout     time.Duration
	baseDelay   time.Duration
	htmlRetries int
	sleep       Sleeper
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the per-request timeout (defaults to 15s).
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithBackoff overrides the linear backoff unit (defaults to 1s).
func WithBackoff(baseDelay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = baseDelay
	}
}

// WithHTMLRetries overrides the attempt count of [Client.FetchHTML].
func WithHTMLRetries(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.htmlRetries = attempts
		}
	}
}

// WithSleeper overrides how backoff sleeps are performed (useful for tests).
func WithSleeper(sleeper Sleeper) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleep = sleeper
		}
	}
}

// WithLogger sets the logger used for attempt failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a fetch client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient:  &http.Client{},
		logger:      slog.Default(),
		timeout:     defaultTimeout,
		baseDelay:   defaultBaseDelay,
		htmlRetries: defaultHTMLRetries,
		sleep:       SleepWithContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// FetchJSON GETs url and decodes the JSON body into out.
//
// It performs at most maxRetries attempts and reports whether out was filled.
// It never returns an error: exhausting the attempts, or ctx ending, yields false.
// Each attempt decodes into a fresh value, so out is only written on success.
func (c *Client) FetchJSON(ctx context.Context, url string, maxRetries int, out any) bool {
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		c.logger.Error("fetch_invalid_target", slog.String("url", redact(url)), slog.String("type", fmt.Sprintf("%T", out)))
		return false
	}

	return c.retry(ctx, url, maxRetries, func(body []byte) error {
		fresh := reflect.New(target.Type().Elem())
		if err := json.Unmarshal(body, fresh.Interface()); err != nil {
			return err
		}
		target.Elem().Set(fresh.Elem())
		return nil
	})
}

// FetchHTML GETs url and returns the body as text.
//
// timeout overrides the client's per-request timeout when positive. The second
// result is false when every attempt failed.
func (c *Client) FetchHTML(ctx context.Context, url string, timeout time.Duration) (string, bool) {
	var text string
	ok := c.retryWithTimeout(ctx, url, c.htmlRetries, timeout, func(body []byte) error {
		text = string(body)
		return nil
	})
	return text, ok
}

func (c *Client) retry(ctx context.Context, url string, maxRetries int, accept func([]byte) error) bool {
	return c.retryWithTimeout(ctx, url, maxRetries, c.timeout, accept)
}

func (c *Client) retryWithTimeout(ctx context.Context, url string, maxRetries int, timeout time.Duration, accept func([]byte) error) bool {
	if timeout <= 0 {
		timeout = c.timeout
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		body, err := c.get(ctx, url, timeout)
		if err == nil {
			err = accept(body)
			if err == nil {
				return true
			}
			err = fmt.Errorf("fetch: decode body: %w", err)
		}

		if ctx.Err() != nil {
			c.logger.Warn("fetch_cancelled",
				slog.String("url", redact(url)),
				slog.Int("attempt", attempt),
				slog.Any("error", ctx.Err()),
			)
			return false
		}

		c.logger.Warn("fetch_attempt_failed",
			slog.String("url", redact(url)),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxRetries),
			slog.Any("error", err),
		)

		if attempt == maxRetries {
			break
		}
		if err := c.sleep(ctx, time.Duration(attempt)*c.baseDelay); err != nil {
			return false
		}
	}

	c.logger.Error("fetch_gave_up", slog.String("url", redact(url)), slog.Int("attempts", maxRetries))
	return false
}

// get performs one bounded attempt.
func (c *Client) get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	request.Header.Set("User-Agent", constants.UserAgent)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("fetch: request: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &StatusError{StatusCode: response.StatusCode}
	}

	return body, nil
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: http %d", e.StatusCode)
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
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
