// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package fetch

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces successive upstream calls by at least a fixed interval.
//
// It is a courtesy towards upstream rate limits, not a correctness guarantee.
// A zero interval disables it.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a throttle that admits one call per interval.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call is admitted or ctx ends.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return ctx.Err()
	}
	return t.limiter.Wait(ctx)
}

// redactedParams are query parameters never written to logs.
var redactedParams = []string{"api_key", "apikey", "token"}

// redact hides credentials embedded in a URL.
func redact(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	query := parsed.Query()
	changed := false
	for _, name := range redactedParams {
		if query.Has(name) {
			query.Set(name, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return raw
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}
