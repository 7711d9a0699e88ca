package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

// JWTMiddleware authenticates bearer access tokens. Refresh and reset tokens
// are rejected here even though they carry a valid signature.
func JWTMiddleware(issuer *Issuer, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := issuer.Parse(parts[1], TokenAccess)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
			}

			c.Set("user_id", claims.Subject)
			ctx := WithUser(c.Request().Context(), claims.UserID(), claims.Role)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// WithUser stores the authenticated caller on ctx.
func WithUser(ctx context.Context, userID uuid.UUID, role Role) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRoleKey, role)
}

// UserIDFromContext returns the authenticated user's id, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	uid, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return uid
}

func RoleFromContext(ctx context.Context) Role {
	role, _ := ctx.Value(UserRoleKey).(Role)
	return role
}
