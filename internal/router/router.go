// Package router maps the HTTP API onto the handlers.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-spot-reservation/internal/handler"
	"github.com/iliyamo/study-spot-reservation/internal/middleware"
	"github.com/iliyamo/study-spot-reservation/internal/model"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Spots        *handler.SpotHandler
	Reservations *handler.ReservationHandler
	Reviews      *handler.ReviewHandler
	Admin        *handler.AdminHandler
	Auth         *handler.AuthHandler
	Health       echo.HandlerFunc
}

// Middlewares are the route-level middlewares built from config. Cache
// wraps the public, caller-independent reads; Auth validates the bearer
// token.
type Middlewares struct {
	Auth  echo.MiddlewareFunc
	Cache echo.MiddlewareFunc
}

// Register mounts every route under /api plus /healthz.
func Register(e *echo.Echo, h Handlers, mw Middlewares) {
	e.GET("/healthz", h.Health)

	api := e.Group("/api")
	registerPublic(api, h, mw)
	registerAuth(api, h.Auth, mw)
	registerStudent(api, h, mw)
	registerAdmin(api, h, mw)
}

func registerPublic(api *echo.Group, h Handlers, mw Middlewares) {
	spots := api.Group("/spots", mw.Cache)
	spots.GET("", h.Spots.List)
	spots.GET("/:id", h.Spots.Get)
	spots.GET("/:id/reviews", h.Reviews.ListForSpot)
	spots.GET("/:id/occupied", h.Spots.Occupied)
}

func registerAuth(api *echo.Group, a *handler.AuthHandler, mw Middlewares) {
	api.POST("/register", a.Register)
	api.POST("/login", a.Login)

	g := api.Group("/auth")
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	api.PUT("/profile/update", a.UpdateProfile, mw.Auth, middleware.RequireRole(model.RoleStudent, model.RoleAdmin))
}
