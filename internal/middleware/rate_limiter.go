package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const RateLimitWindow = time.Minute

// RedisLimiterStore is a sliding-window log kept in a redis sorted set per
// identifier. It satisfies echo's RateLimiterStore so several API replicas
// share one budget.
type RedisLimiterStore struct {
	client  redis.UniversalClient
	limit   int
	window  time.Duration
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

func NewRedisLimiterStore(client redis.UniversalClient, perWindow int, window time.Duration) *RedisLimiterStore {
	return &RedisLimiterStore{
		client:  client,
		limit:   perWindow,
		window:  window,
		prefix:  "rate_limit:",
		timeout: 500 * time.Millisecond,
		now:     time.Now,
	}
}

// Allow records the hit and reports whether the identifier is within budget.
// Rejected hits are recorded too, so a client hammering the API stays limited.
func (s *RedisLimiterStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	key := s.prefix + identifier
	now := s.now()
	windowStart := now.Add(-s.window)

	var card *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
		p.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString())})
		card = p.ZCard(ctx, key)
		p.Expire(ctx, key, s.window*2)
		return nil
	})
	if err != nil {
		return false, err
	}
	return card.Val() <= int64(s.limit), nil
}

// NewMemoryLimiterStore is the single-process fallback used when no redis is configured.
func NewMemoryLimiterStore(perMinute int) echomw.RateLimiterStore {
	return echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / RateLimitWindow.Seconds()),
		Burst:     perMinute,
		ExpiresIn: 3 * RateLimitWindow,
	})
}

// failOpen lets requests through when the backing store is unreachable.
type failOpen struct {
	store echomw.RateLimiterStore
	log   *logrus.Logger
}

func (f failOpen) Allow(identifier string) (bool, error) {
	ok, err := f.store.Allow(identifier)
	if err != nil {
		f.log.WithField("identifier", identifier).WithError(err).Warn("rate limiter store failed")
		return true, nil
	}
	return ok, nil
}

// RateLimit limits requests per client IP. It is mounted ahead of
// authentication, so the caller's identity is not known yet.
func RateLimit(store echomw.RateLimiterStore, log *logrus.Logger) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: failOpen{store: store, log: log},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return "ip:" + c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
		},
	})
}
