// Package auth is the authorization gate: authenticate the x-auth-token
// header, resolve the full user record, then check role membership per route.
package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/kerem-sirin/streamerstash-api/internal/logging"
	"github.com/kerem-sirin/streamerstash-api/internal/models"
	"github.com/kerem-sirin/streamerstash-api/internal/tokens"
)

const (
	// TokenHeader carries the opaque bearer token.
	TokenHeader = "x-auth-token"

	userContextKey = "user"
)

type Auth struct {
	DB        *gorm.DB
	JWTSecret []byte
}

func New(db *gorm.DB, jwtSecret []byte) *Auth {
	return &Auth{DB: db, JWTSecret: jwtSecret}
}

// RequireAuth authenticates the request and stashes the resolved user in the
// echo context. A token that refers to a since-deleted user is treated as
// invalid, not as a 404.
func (m *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "require_auth")

		raw := c.Request().Header.Get(TokenHeader)
		if raw == "" {
			l.Warn("auth_failed", "status", 401, "reason", "missing_token")
			return echo.NewHTTPError(http.StatusUnauthorized, "no token, authorization denied")
		}

		userID, err := tokens.Parse(raw, m.JWTSecret)
		if err != nil {
			l.Warn("auth_failed", "status", 401, "reason", "invalid_token", "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "token is not valid")
		}

		var user models.User
		if err := m.DB.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				l.Warn("auth_failed", "status", 401, "reason", "unknown_user")
				return echo.NewHTTPError(http.StatusUnauthorized, "token is not valid")
			}
			l.Error("auth_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}

		c.Set(userContextKey, &user)
		return next(c)
	}
}

// RequireRoles passes when the authenticated user's role set intersects the
// given roles. Must run after RequireAuth.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "no token, authorization denied")
			}
			if !user.HasAnyRole(roles...) {
				l := logging.FromContext(c.Request().Context()).With("middleware", "require_roles")
				l.Warn("authorize_failed", "status", 403, "user_id", user.ID)
				return echo.NewHTTPError(http.StatusForbidden, "access denied: insufficient permissions")
			}
			return next(c)
		}
	}
}

// CurrentUser returns the user resolved by RequireAuth, or nil.
func CurrentUser(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}
