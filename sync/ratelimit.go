package sync

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/homemade/nbsync/logging"
	"github.com/homemade/nbsync/metrics"
)

const (
	// HeaderRateRemaining is the remaining requests header.
	HeaderRateRemaining = "X-Ratelimit-Remaining"

	// HeaderRateReset is the reset timestamp header (Unix seconds).
	HeaderRateReset = "X-Ratelimit-Reset"

	// HeaderExpires is the server's response expiry, used as its clock.
	HeaderExpires = "Expires"

	// DefaultLowWater is the remaining quota under which requests pause.
	DefaultLowWater = 10
)

// RateLimiter throttles requests to NationBuilder two ways: a proactive
// token bucket before every request, and a reactive pause after any response
// reporting a remaining quota under the low-water mark.
type RateLimiter struct {
	bucket   *rate.Limiter
	lowWater int
}

// NewRateLimiter creates a limiter; requestsPerSecond <= 0 disables the token bucket.
func NewRateLimiter(requestsPerSecond float64, lowWater int) *RateLimiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if lowWater <= 0 {
		lowWater = DefaultLowWater
	}
	return &RateLimiter{
		bucket:   rate.NewLimiter(limit, 1),
		lowWater: lowWater,
	}
}

// Wait blocks until the token bucket allows another request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.bucket.Wait(ctx)
}

// CheckRateLimit returns the pause required by the response headers, or nil.
// The pause lasts from the server's Expires time until the reset time, so
// it does not depend on the local clock. Missing, unparseable or already
// elapsed values never cause a pause.
func CheckRateLimit(header http.Header, lowWater int) *RateLimitPause {
	remaining, err := strconv.Atoi(header.Get(HeaderRateRemaining))
	if err != nil || remaining >= lowWater {
		return nil
	}
	reset, err := strconv.ParseInt(header.Get(HeaderRateReset), 10, 64)
	if err != nil {
		return nil
	}
	expires, err := http.ParseTime(header.Get(HeaderExpires))
	if err != nil {
		return nil
	}
	delay := time.Duration(reset*1000-expires.UnixMilli()) * time.Millisecond
	if delay <= 0 {
		return nil
	}
	return &RateLimitPause{Remaining: remaining, Delay: delay}
}

// Throttle blocks for the pause the response headers require, if any.
func (r *RateLimiter) Throttle(ctx context.Context, header http.Header) error {
	pause := CheckRateLimit(header, r.lowWater)
	if pause == nil {
		return nil
	}
	metrics.RateLimitPauses.Inc()
	logging.Info().Int("remaining", pause.Remaining).Dur("delay", pause.Delay).Msg("Pause during rate limit reset")
	if err := sleep(ctx, pause.Delay); err != nil {
		return err
	}
	logging.Info().Msg("Pause end")
	return nil
}
