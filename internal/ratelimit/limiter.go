package ratelimit

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/observability"
)

// Config holds the per-client rate limit.
type Config struct {
	Capacity   int  // burst allowance
	RefillRate int  // sustained requests per second
	Enabled    bool // when false every request is allowed
}

// ClientLimiter keeps one token bucket per client, created lazily.
type ClientLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*TokenBucket
	config  Config
	metrics observability.MetricsRegistry
	now     func() time.Time
}

// NewClientLimiter creates a limiter. metrics may be nil.
func NewClientLimiter(config Config, metrics observability.MetricsRegistry) *ClientLimiter {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &ClientLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
		metrics: metrics,
		now:     time.Now,
	}
}

// Allow reports whether client may issue another request.
func (l *ClientLimiter) Allow(client string) bool {
	if !l.config.Enabled {
		return true
	}
	allowed := l.bucket(client).Allow()
	if allowed {
		l.metrics.IncrementRateLimitRequests("allowed")
	} else {
		l.metrics.IncrementRateLimitRequests("limited")
	}
	return allowed
}

func (l *ClientLimiter) bucket(client string) *TokenBucket {
	l.mu.RLock()
	b, ok := l.buckets[client]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.buckets[client]; !ok {
		b = NewTokenBucket(l.config.Capacity, l.config.RefillRate, l.now)
		l.buckets[client] = b
	}
	return b
}

// Prune drops buckets that have not been used for idle and returns how many
// were removed. A dropped client starts again with a full bucket.
func (l *ClientLimiter) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for client, b := range l.buckets {
		if b.idleSince().Before(cutoff) {
			delete(l.buckets, client)
			removed++
		}
	}
	return removed
}

// Stats is the rate limiting activity of one client.
type Stats struct {
	Client  string  `json:"client"`
	Hits    int64   `json:"hits"`
	Total   int64   `json:"total"`
	HitRate float64 `json:"hit_rate"`
}

func (s Stats) String() string {
	return fmt.Sprintf("client %s: %d/%d limited (%.2f%%)", s.Client, s.Hits, s.Total, s.HitRate*100)
}

// GetStats returns per-client statistics.
func (l *ClientLimiter) GetStats() map[string]Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]Stats, len(l.buckets))
	for client, b := range l.buckets {
		hits, total := b.Stats()
		rate := 0.0
		if total > 0 {
			rate = float64(hits) / float64(total)
		}
		out[client] = Stats{Client: client, Hits: hits, Total: total, HitRate: rate}
	}
	return out
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (l *ClientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := ClientKey(r)
		if l.Allow(client) {
			next.ServeHTTP(w, r)
			return
		}
		retry := math.Ceil(l.bucket(client).RetryAfter().Seconds())
		w.Header().Set("Retry-After", strconv.Itoa(max(1, int(retry))))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "rate_limited",
			"message": "too many requests",
		})
	})
}

// ClientKey identifies the caller: the first X-Forwarded-For hop when
// present, otherwise the remote host.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
