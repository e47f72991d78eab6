package auth

import (
	"context"
	"errors"
	"log/slog"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	errs "storefront/internal/errors"
	"storefront/internal/model"
)

const (
	claimsContextKey = "token_claims"
	userContextKey   = "current_user"
)

// PrivilegedRoles may mutate the catalog.
var PrivilegedRoles = []model.Role{model.RoleAdmin, model.RoleStoreManager}

// IsPrivileged reports whether role may mutate the catalog.
func IsPrivileged(role model.Role) bool {
	for _, r := range PrivilegedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// UserLookup resolves the stored user behind a token.
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Middleware verifies the bearer token's signature and expiry and stores its
// claims on the request context. Any failure is reported as ErrUnauthenticated.
func (s *JWTService) Middleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: claimsContextKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return s.ValidateToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			slog.DebugContext(c.Request().Context(), "token rejected", "error", err, "path", c.Path())
			return errs.ErrUnauthenticated
		},
	})
}

// ClaimsFrom returns the verified token claims for the request.
func ClaimsFrom(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// UserFrom returns the stored user resolved by the Gate for the request.
func UserFrom(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(userContextKey).(*model.User)
	return user, ok && user != nil
}

// Gate authorizes requests against the role currently stored for the token's
// email. The role claim inside the token is never trusted on its own, so a
// role change in storage takes effect without reissuing tokens.
type Gate struct {
	users UserLookup
}

// NewGate creates a new authorization gate.
func NewGate(users UserLookup) *Gate {
	return &Gate{users: users}
}

// Privileged allows admins and store managers.
func (g *Gate) Privileged() echo.MiddlewareFunc {
	return g.Require(PrivilegedRoles...)
}

// Authenticated allows any caller whose token resolves to a stored user.
func (g *Gate) Authenticated() echo.MiddlewareFunc {
	return g.Require(model.Roles...)
}

// Require allows only callers whose stored role is in roles. It must run
// after JWTService.Middleware.
func (g *Gate) Require(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			claims, ok := ClaimsFrom(c)
			if !ok {
				return errs.ErrUnauthenticated
			}

			user, err := g.users.FindByEmail(ctx, claims.Email)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					slog.WarnContext(ctx, "token for unknown account", "email", claims.Email)
					return errs.ErrForbidden
				}
				return err
			}

			if !allowed[user.Role] {
				slog.InfoContext(ctx, "access denied", "email", user.Email, "role", user.Role, "path", c.Path())
				return errs.ErrForbidden
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}
