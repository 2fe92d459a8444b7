// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitConfig drives the edge limiter that fronts every route,
// authenticated or not. FailOpen lets traffic through when Redis and the
// local fallback both misbehave.
type RateLimitConfig struct {
	Limit    redis_rate.Limit
	KeyFunc  func(*http.Request) string
	FailOpen bool
}

type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	config   RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	return &RateLimiter{
		limiter:  redis_rate.NewLimiter(rdb),
		fallback: newLocalLimiter(),
		config:   cfg,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.config.KeyFunc(r)

		res, err := rl.allow(r.Context(), key)
		if err != nil {
			if rl.config.FailOpen {
				slog.Warn("rate limiter unavailable, failing open",
					"error", err, "key", key)
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}

		writeLimitHeaders(w, res, rl.config.Limit)
		if res.Allowed == 0 {
			writeLimited(w, res)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow consults Redis first and falls back to a per-process limiter when
// Redis is unreachable. The fallback is stricter per instance but keeps
// the limit roughly honest across a small fleet.
func (rl *RateLimiter) allow(
	ctx context.Context,
	key string,
) (*redis_rate.Result, error) {
	res, err := rl.limiter.Allow(ctx, key, rl.config.Limit)
	if err != nil {
		return rl.fallback.allow(key, rl.config.Limit)
	}
	return res, nil
}

// KeyByIP keys on the rightmost X-Forwarded-For hop, which is the one
// appended by our own proxy and the only one a client cannot forge.
func KeyByIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return "ratelimit:ip:" + strings.TrimSpace(hops[len(hops)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return "ratelimit:ip:" + xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ratelimit:ip:" + ip
}

// KeyByPrincipal keys authenticated traffic on the account id so one
// tenant admin hammering an import cannot starve another behind the same
// NAT. Unauthenticated requests fall back to the IP key.
func KeyByPrincipal(r *http.Request) string {
	if id := GetPrincipalID(r.Context()); id != "" {
		return "ratelimit:principal:" + id
	}
	return KeyByIP(r)
}

// TierConfig is a per-minute budget for one account tier.
type TierConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// Admin tiers get more headroom; bulk imports burst hard against the API.
var DefaultTiers = map[string]TierConfig{
	"USER":  {RequestsPerMinute: 60, BurstSize: 10},
	"ADMIN": {RequestsPerMinute: 600, BurstSize: 100},
	"OWNER": {RequestsPerMinute: 600, BurstSize: 100},
}

// TieredRateLimiter budgets authenticated requests by account tier. It
// must run after the authenticator so the tier claim is on the context;
// anything without one is budgeted as USER.
func TieredRateLimiter(
	rdb *redis.Client,
	tiers map[string]TierConfig,
) func(http.Handler) http.Handler {
	limiter := redis_rate.NewLimiter(rdb)
	fallback := newLocalLimiter()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tier := GetTier(r.Context()).String()
			budget, ok := tiers[tier]
			if !ok {
				budget = tiers["USER"]
			}

			limit := redis_rate.Limit{
				Rate:   budget.RequestsPerMinute,
				Burst:  budget.BurstSize,
				Period: time.Minute,
			}
			key := KeyByPrincipal(r)

			res, err := limiter.Allow(r.Context(), key, limit)
			if err != nil {
				res, _ = fallback.allow(key, limit)
			}

			w.Header().Set("X-RateLimit-Tier", tier)
			writeLimitHeaders(w, res, limit)
			if res.Allowed == 0 {
				writeLimited(w, res)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func PerMinute(requests, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: requests, Burst: burst, Period: time.Minute}
}

func writeLimitHeaders(
	w http.ResponseWriter,
	res *redis_rate.Result,
	limit redis_rate.Limit,
) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(
		time.Now().Add(res.ResetAfter).Unix(), 10))
}

func writeLimited(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := int(res.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]any{
			"code": "RATE_LIMITED",
			"message": fmt.Sprintf(
				"Rate limit exceeded. Retry after %d seconds.", retryAfter),
		},
	})
}

// localLimiter is the in-process fallback used while Redis is down. State
// is per instance, so limits are enforced per pod rather than globally.
type localLimiter struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const localEntryTTL = 10 * time.Minute

func newLocalLimiter() *localLimiter {
	l := &localLimiter{entries: make(map[string]*localEntry)}
	go func() {
		for range time.Tick(localEntryTTL / 2) {
			l.evictStale()
		}
	}()
	return l
}

func (l *localLimiter) evictStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-localEntryTTL)
	for key, entry := range l.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

func (l *localLimiter) allow(
	key string,
	limit redis_rate.Limit,
) (*redis_rate.Result, error) {
	perSecond := float64(limit.Rate) / limit.Period.Seconds()

	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{
			limiter: rate.NewLimiter(rate.Limit(perSecond), limit.Burst),
		}
		l.entries[key] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	allowed := 0
	if entry.limiter.Allow() {
		allowed = 1
	}

	remaining := int(entry.limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}

	refill := time.Duration(float64(time.Second) / perSecond)
	retryAfter := -time.Nanosecond
	if allowed == 0 {
		retryAfter = refill
	}

	return &redis_rate.Result{
		Limit:      limit,
		Allowed:    allowed,
		Remaining:  remaining,
		RetryAfter: retryAfter,
		ResetAfter: refill,
	}, nil
}
