package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-spot-reservation/internal/model"
)

// Context keys set by JWTAuth.
const (
	KeyUserID = "user_id"
	KeyRole   = "role"
)

// Actor returns the authenticated caller stored by JWTAuth. ok is false on
// routes that do not require authentication.
func Actor(c echo.Context) (model.Actor, bool) {
	id, ok := c.Get(KeyUserID).(uint64)
	if !ok || id == 0 {
		return model.Actor{}, false
	}
	role, _ := c.Get(KeyRole).(string)
	return model.Actor{UserID: id, Role: role}, true
}

// userID is the rate-limit identity of the caller, "anon" when no token
// was presented.
func userID(c echo.Context) string {
	if a, ok := Actor(c); ok {
		return strconv.FormatUint(a.UserID, 10)
	}
	return "anon"
}
