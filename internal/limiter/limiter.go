package limiter

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/itstheanurag/kodanaliz/internal/metrics"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a global rate, a per-client rate and a ceiling on
// requests being served at once.
type RateLimiter struct {
	globalLimiter *rate.Limiter
	ipRate        rate.Limit
	ipBurst       int
	maxConcurrent int64

	mu          sync.Mutex
	perIP       map[string]*ipLimiter
	currentConc int64

	// message renders the 429 body text for a request.
	message func(*http.Request) string
}

func NewRateLimiter(globalRPS float64, perIPRPS float64, perIPBurst int, maxConcurrent int) *RateLimiter {
	burst := int(globalRPS) * 2
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		globalLimiter: rate.NewLimiter(rate.Limit(globalRPS), burst),
		ipRate:        rate.Limit(perIPRPS),
		ipBurst:       perIPBurst,
		maxConcurrent: int64(maxConcurrent),
		perIP:         make(map[string]*ipLimiter),
		message:       func(*http.Request) string { return "Too many requests" },
	}
}

// SetMessage replaces the text of rejection bodies, e.g. with a localized one.
func (rl *RateLimiter) SetMessage(fn func(*http.Request) string) {
	if fn != nil {
		rl.message = fn
	}
}

func (rl *RateLimiter) getIPLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.perIP[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rl.ipRate, rl.ipBurst)}
		rl.perIP[ip] = l
	}
	l.lastSeen = time.Now()
	return l.limiter
}

// Allow reports whether a request from ip may proceed. Every true result
// must be paired with a call to Done.
func (rl *RateLimiter) Allow(ip string) bool {
	if !rl.globalLimiter.Allow() {
		metrics.RateLimitHits.Inc()
		return false
	}

	if !rl.getIPLimiter(ip).Allow() {
		metrics.RateLimitHits.Inc()
		return false
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.maxConcurrent > 0 && rl.currentConc >= rl.maxConcurrent {
		metrics.RateLimitHits.Inc()
		return false
	}
	rl.currentConc++
	return true
}

func (rl *RateLimiter) Done() {
	rl.mu.Lock()
	if rl.currentConc > 0 {
		rl.currentConc--
	}
	rl.mu.Unlock()
}

// Middleware rejects requests over the limits with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": rl.message(r)})
			return
		}
		defer rl.Done()

		next.ServeHTTP(w, r)
	})
}

// ClientIP prefers the first X-Forwarded-For hop and strips the port from
// RemoteAddr.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// StartCleanup drops per-client limiters idle for longer than interval
// until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.evictIdle(now.Add(-interval))
			}
		}
	}()
}

func (rl *RateLimiter) evictIdle(before time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, l := range rl.perIP {
		if l.lastSeen.Before(before) {
			delete(rl.perIP, ip)
		}
	}
}
