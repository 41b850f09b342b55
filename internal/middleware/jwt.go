package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-spot-reservation/internal/clock"
	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/utils"
)

// JWTAuth validates the Bearer access token and stores the caller's ID and
// role under KeyUserID and KeyRole.
func JWTAuth(secret string, clk clock.Clock) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return errs.Unauthenticated("missing bearer token")
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw), clk.Now())
			if err != nil {
				return err
			}
			id, err := claims.UserID()
			if err != nil {
				return errs.Unauthenticated("invalid token subject")
			}
			c.Set(KeyUserID, id)
			c.Set(KeyRole, claims.Role)
			return next(c)
		}
	}
}
