package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"workforce/metrics"
)

// Limiter counts requests for key in a sliding window of length period and
// reports whether the current one is within limit.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, period time.Duration) (bool, error)
}

// RedisLimiter keeps one sorted set per key, scored by request time.
type RedisLimiter struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisLimiter(client redis.Cmdable) *RedisLimiter {
	return &RedisLimiter{client: client, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, period time.Duration) (bool, error) {
	now := l.now()
	windowStart := now.Add(-period).UnixMilli()

	var card *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
		card = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, period)
		return nil
	})
	if err != nil {
		return true, fmt.Errorf("rate limit pipeline: %w", err)
	}
	return card.Val() <= int64(limit), nil
}

// MemoryLimiter is the single-process fallback when redis is not configured.
// Keys with no hits inside the window are swept at most once per period.
type MemoryLimiter struct {
	mu        sync.Mutex
	hits      map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{hits: make(map[string][]time.Time), now: time.Now}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, period time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-period)
	if now.Sub(l.lastSweep) >= period {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	l.hits[key] = kept
	return len(kept) <= limit, nil
}

// sweep drops keys whose newest hit is at or before cutoff.
func (l *MemoryLimiter) sweep(cutoff time.Time) {
	for key, times := range l.hits {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}

// RateLimit rejects requests over limit per period with 429. Requests are
// keyed by route and authenticated user, or client IP when anonymous. A
// limiter error lets the request through.
func RateLimit(limiter Limiter, limit int, period time.Duration, m *metrics.Metrics, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("rate_limit:%s:%s", r.URL.Path, clientKey(r))

			allowed, err := limiter.Allow(r.Context(), key, limit, period)
			if err != nil {
				log.Error("rate limiting error", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				log.Warn("rate limit exceeded", zap.String("key", key))
				m.IncrementRateLimited()
				w.Header().Set("Retry-After", strconv.Itoa(int(period.Seconds())))
				writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if user := GetUserFromContext(r.Context()); user != nil {
		return "user:" + strconv.FormatUint(uint64(user.ID), 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
