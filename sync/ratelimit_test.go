package sync

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"
)

func TestCheckRateLimit(t *testing.T) {
	expires := time.Date(2017, 3, 18, 15, 0, 0, 0, time.UTC)
	header := func(remaining, reset string, expires string) http.Header {
		h := http.Header{}
		h.Set(HeaderRateRemaining, remaining)
		h.Set(HeaderRateReset, reset)
		h.Set(HeaderExpires, expires)
		return h
	}
	at := expires.Format(http.TimeFormat)
	reset := func(d time.Duration) string {
		return strconv.FormatInt(expires.Add(d).Unix(), 10)
	}

	tests := []struct {
		name   string
		header http.Header
		want   time.Duration
	}{
		{"quota left", header("10", reset(5*time.Second), at), 0},
		{"low quota", header("9", reset(5*time.Second), at), 5 * time.Second},
		{"empty quota", header("0", reset(90*time.Second), at), 90 * time.Second},
		{"reset elapsed", header("0", reset(-time.Second), at), 0},
		{"no headers", http.Header{}, 0},
		{"unparseable expires", header("0", reset(5*time.Second), "yesterday"), 0},
		{"unparseable reset", header("0", "soon", at), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pause := CheckRateLimit(tt.header, DefaultLowWater)
			var have time.Duration
			if pause != nil {
				have = pause.Delay
			}
			if have != tt.want {
				t.Errorf("Expected pause: %s but have: %s", tt.want, have)
			}
		})
	}
}

func TestRateLimiter_Throttle(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	h := http.Header{}
	h.Set(HeaderRateRemaining, "100")
	if err := limiter.Throttle(context.Background(), h); err != nil {
		t.Error(err)
	}

	expires := time.Now().Truncate(time.Second)
	h.Set(HeaderRateRemaining, "1")
	h.Set(HeaderRateReset, strconv.FormatInt(expires.Unix()+60, 10))
	h.Set(HeaderExpires, expires.UTC().Format(http.TimeFormat))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Throttle(ctx, h); err == nil {
		t.Error("Expected throttle to stop with the context")
	}
}

func TestRateLimiter_TokenBucket(t *testing.T) {
	limiter := NewRateLimiter(20, DefaultLowWater)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("Expected 3 requests at 20/s to take at least 100ms but took: %s", elapsed)
	}
}
