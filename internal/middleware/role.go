package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
)

// RequireRole aborts with FORBIDDEN unless the caller's role is one of
// roles. It must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := Actor(c)
			if !ok {
				return errs.Unauthenticated("authentication required")
			}
			if !allowed[a.Role] {
				return errs.Forbidden("insufficient role")
			}
			return next(c)
		}
	}
}
