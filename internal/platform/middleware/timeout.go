package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout bounds each request with a context deadline and answers 504
// once it passes. Paths under longPrefixes get longTimeout, since those wait
// on an upstream model.
func RequestTimeout(timeout, longTimeout time.Duration, longPrefixes ...string) echo.MiddlewareFunc {
	budget := func(path string) time.Duration {
		for _, p := range longPrefixes {
			if strings.HasPrefix(path, p) {
				return longTimeout
			}
		}
		return timeout
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, cancel := context.WithTimeout(req.Context(), budget(req.URL.Path))
			defer cancel()
			c.SetRequest(req.WithContext(ctx))

			done := make(chan error, 1)
			go func() { done <- next(c) }()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return ctx.Err()
				}
				if c.Response().Committed {
					return nil
				}
				return c.JSON(http.StatusGatewayTimeout, map[string]string{
					"detail": "Request processing exceeded the allowed time limit",
				})
			}
		}
	}
}
