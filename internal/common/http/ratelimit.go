package http

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AlibekovAA/examination-system/internal/common/constants"
	"github.com/AlibekovAA/examination-system/internal/observability/metrics"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		stop:     make(chan struct{}),
	}

	go rl.cleanupLoop(constants.RateLimitCleanupInterval)

	return rl
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, entry := range rl.limiters {
				if now.Sub(entry.lastSeen) > interval {
					delete(rl.limiters, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()

	return entry.limiter.Allow()
}

func (rl *RateLimiter) Middleware(limiterType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(GetClientIP(r)) {
				metrics.RateLimitBlocked.WithLabelValues(r.URL.Path, limiterType).Inc()
				WriteErrorEnvelope(w, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded", nil, TraceIDFromContext(r.Context()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// StrictRateLimiter groups the per-endpoint limiters of the account routes.
type StrictRateLimiter struct {
	loginLimiter    *RateLimiter
	registerLimiter *RateLimiter
	refreshLimiter  *RateLimiter
	generalLimiter  *RateLimiter
}

func NewStrictRateLimiter() *StrictRateLimiter {
	return &StrictRateLimiter{
		loginLimiter:    NewRateLimiter(constants.RateLimitLoginRequestsPerSecond, constants.RateLimitLoginBurst),
		registerLimiter: NewRateLimiter(constants.RateLimitRegisterRequestsPerSecond, constants.RateLimitRegisterBurst),
		refreshLimiter:  NewRateLimiter(constants.RateLimitRefreshRequestsPerSecond, constants.RateLimitRefreshBurst),
		generalLimiter:  NewRateLimiter(constants.RateLimitGeneralRequestsPerSecond, constants.RateLimitGeneralBurst),
	}
}

func (srl *StrictRateLimiter) Login() func(http.Handler) http.Handler {
	return srl.loginLimiter.Middleware("login")
}

func (srl *StrictRateLimiter) Register() func(http.Handler) http.Handler {
	return srl.registerLimiter.Middleware("register")
}

func (srl *StrictRateLimiter) Refresh() func(http.Handler) http.Handler {
	return srl.refreshLimiter.Middleware("refresh")
}

func (srl *StrictRateLimiter) General() func(http.Handler) http.Handler {
	return srl.generalLimiter.Middleware("general")
}

func (srl *StrictRateLimiter) Stop() {
	srl.loginLimiter.Stop()
	srl.registerLimiter.Stop()
	srl.refreshLimiter.Stop()
	srl.generalLimiter.Stop()
}
