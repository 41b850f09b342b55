package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-spot-reservation/internal/middleware"
	"github.com/iliyamo/study-spot-reservation/internal/model"
)

// registerAdmin mounts the dashboard, catalogue management and moderation
// routes, all restricted to ADMIN.
func registerAdmin(api *echo.Group, h Handlers, mw Middlewares) {
	g := api.Group("/admin", mw.Auth, middleware.RequireRole(model.RoleAdmin))

	g.GET("/stats", h.Admin.Stats)
	g.GET("/users", h.Admin.Users)
	g.GET("/analysis/loyal-users", h.Admin.LoyalUsers)
	g.GET("/analysis/inactive-users", h.Admin.InactiveUsers)
	g.GET("/analysis/:op", h.Admin.SpotUserSets)

	g.POST("/add-spot", h.Spots.Create)
	g.DELETE("/delete-spot/:id", h.Spots.Delete)
	g.PUT("/spots/:id/availability", h.Spots.SetAvailability)
	g.PUT("/spots/:id/capacity", h.Spots.UpdateCapacity)
	g.GET("/spots/:id/reservations", h.Reservations.ListForSpot)

	g.GET("/reservations", h.Reservations.ListAll)
	g.GET("/reviews", h.Reviews.ListAll)
	g.DELETE("/reviews/:id", h.Reviews.Delete)
}
