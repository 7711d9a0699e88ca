package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures RateLimit. KeyFunc picks the bucket for a
// request and defaults to the authenticated user, then the client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	KeyFunc           func(c echo.Context) string
}

// DefaultRateLimitConfig is what the recommendation endpoints get when
// AI_RATE_LIMIT_RPS is unset.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 2,
		BurstSize:         10,
	}
}

func userOrIPKey(c echo.Context) string {
	if uid, ok := c.Get("user_id").(string); ok && uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.RealIP()
}

type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[key] = l
	}
	return l
}

// retryAfter is the whole number of seconds until l holds a token again.
func retryAfter(l *rate.Limiter) int {
	perSec := float64(l.Limit())
	if perSec <= 0 {
		return 1
	}
	missing := 1 - l.Tokens()
	if missing <= 0 {
		return 1
	}
	return int(math.Ceil(missing / perSec))
}

// RateLimit rejects callers that exceed their token bucket with 429 and a
// Retry-After header.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	set := &limiterSet{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.BurstSize,
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = userOrIPKey
	}
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := set.get(keyFunc(c))
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limitHeader)
			if !l.Allow() {
				h.Set("Retry-After", strconv.Itoa(retryAfter(l)))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
