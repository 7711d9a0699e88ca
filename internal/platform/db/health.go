package db

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const readinessTimeout = 5 * time.Second

type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	s := pool.Stat()
	return &PoolStats{
		TotalConns:      s.TotalConns(),
		IdleConns:       s.IdleConns(),
		AcquiredConns:   s.AcquiredConns(),
		MaxConns:        s.MaxConns(),
		AcquireCount:    s.AcquireCount(),
		AcquireDuration: s.AcquireDuration().String(),
		Healthy:         s.TotalConns() > 0,
	}
}

// Check is one dependency probed by ReadinessHandler, e.g. Redis.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// ReadinessHandler probes Postgres and every extra check in parallel and
// answers 503 if any of them fails.
func ReadinessHandler(pool *pgxpool.Pool, checks ...Check) echo.HandlerFunc {
	all := make([]Check, 0, len(checks)+1)
	all = append(all, Check{Name: "database", Ping: pool.Ping})
	all = append(all, checks...)

	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
		defer cancel()

		code, results := runChecks(ctx, all)
		status := "healthy"
		if code != http.StatusOK {
			status = "unhealthy"
		}
		return c.JSON(code, map[string]interface{}{
			"status": status,
			"checks": results,
			"pool":   GetPoolStats(pool),
		})
	}
}

func runChecks(ctx context.Context, checks []Check) (int, map[string]string) {
	errs := make([]error, len(checks))
	var wg sync.WaitGroup
	for i, chk := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = chk.Ping(ctx)
		}()
	}
	wg.Wait()

	code := http.StatusOK
	results := make(map[string]string, len(checks))
	for i, chk := range checks {
		if errs[i] != nil {
			results[chk.Name] = errs[i].Error()
			code = http.StatusServiceUnavailable
			continue
		}
		results[chk.Name] = "ok"
	}
	return code, results
}
