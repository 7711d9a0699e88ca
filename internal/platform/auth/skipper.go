package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists route patterns that bypass authentication: health probes
// and the credential endpoints a caller uses before holding a token.
var publicPaths = map[string]bool{
	"/health":                      true,
	"/health/ready":                true,
	"/api/v1/auth/register":        true,
	"/api/v1/auth/login":           true,
	"/api/v1/auth/refresh":         true,
	"/api/v1/auth/logout":          true,
	"/api/v1/auth/forgot-password": true,
	"/api/v1/auth/reset-password":  true,
	"/api/v1/ai/health":            true,
}

// AuthSkipper returns true for requests whose route should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given route pattern is public.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
