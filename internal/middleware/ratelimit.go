package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/clipdock/clipdock/internal/config"
	"github.com/clipdock/clipdock/internal/util"
)

// maxTrackedIPs caps the history map so a spray of spoofed addresses
// cannot grow it without bound; once full, unseen addresses are refused
// until the cleanup ticker makes room.
const maxTrackedIPs = 100000

// rateLimiter is a per-IP sliding window over request timestamps.
type rateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	history map[string][]time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		window:  window,
		max:     max,
		history: make(map[string][]time.Time),
	}
}

var defaultLimiter = newRateLimiter(config.RateLimitMax, config.RateLimitWindow)

func RateLimit(next http.Handler) http.Handler {
	return defaultLimiter.middleware(next)
}

// StartRateLimitCleanup periodically drops idle IPs so the history map
// tracks only addresses seen within the window.
func StartRateLimitCleanup() {
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		for range ticker.C {
			defaultLimiter.sweep()
		}
	}()
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := util.GetClientIP(r)
		remaining, resetIn, ok := l.allow(ip)

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", l.max))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !ok {
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetIn))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(429)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   "Too many requests. Please slow down.",
				"resetIn": resetIn,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *rateLimiter) allow(ip string) (remaining, resetIn int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	recent := pruneBefore(l.history[ip], now.Add(-l.window))

	switch {
	case len(recent) >= l.max:
		l.history[ip] = recent
		resetIn = int(recent[0].Add(l.window).Sub(now).Seconds()) + 1
		return 0, resetIn, false
	case len(recent) == 0 && len(l.history) >= maxTrackedIPs:
		return 0, int(l.window.Seconds()), false
	}

	l.history[ip] = append(recent, now)
	return l.max - len(recent) - 1, 0, true
}

func (l *rateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.window)
	for ip, stamps := range l.history {
		recent := pruneBefore(stamps, cutoff)
		if len(recent) == 0 {
			delete(l.history, ip)
		} else {
			l.history[ip] = recent
		}
	}
}

func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	kept := stamps[:0]
	for _, t := range stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
