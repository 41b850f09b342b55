package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-spot-reservation/internal/middleware"
	"github.com/iliyamo/study-spot-reservation/internal/model"
)

// registerStudent mounts the booking and review routes. Admins may use
// them too; ownership is enforced by the handlers and services.
func registerStudent(api *echo.Group, h Handlers, mw Middlewares) {
	auth := []echo.MiddlewareFunc{mw.Auth, middleware.RequireRole(model.RoleStudent, model.RoleAdmin)}

	api.POST("/reservations/create", h.Reservations.Create, auth...)
	api.PUT("/reservations/:id/cancel", h.Reservations.Cancel, auth...)
	api.GET("/reservations/:id", h.Reservations.Get, auth...)
	api.GET("/my-history", h.Reservations.History, auth...)

	api.POST("/reviews", h.Reviews.Submit, auth...)
}
