package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/service"
)

// ReportService is the part of service.AdminReports the handlers use.
type ReportService interface {
	Stats(ctx context.Context) (service.Stats, error)
	LoyalUsers(ctx context.Context) ([]model.User, error)
	InactiveUsers(ctx context.Context) ([]model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	SpotUserSets(ctx context.Context, op string, a, b uint64) ([]model.User, error)
}

// AdminHandler serves the dashboard and user analyses. Every route sits
// behind RequireRole(ADMIN).
type AdminHandler struct {
	Reports ReportService
}

func NewAdminHandler(reports ReportService) *AdminHandler {
	return &AdminHandler{Reports: reports}
}

type statsResp struct {
	ActiveReservations int     `json:"activeReservations"`
	AvailableSpots     int     `json:"availableSpots"`
	AverageSiteRating  float64 `json:"averageSiteRating"`
	TotalStudents      int     `json:"totalStudents"`
}

// Stats: GET /api/admin/stats
func (h *AdminHandler) Stats(c echo.Context) error {
	st, err := h.Reports.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statsResp{
		ActiveReservations: st.ActiveReservations,
		AvailableSpots:     st.AvailableSpots,
		AverageSiteRating:  st.AverageSiteRating,
		TotalStudents:      st.TotalStudents,
	})
}

// Users: GET /api/admin/users
func (h *AdminHandler) Users(c echo.Context) error {
	return h.users(c, h.Reports.ListUsers)
}

// LoyalUsers: GET /api/admin/analysis/loyal-users
func (h *AdminHandler) LoyalUsers(c echo.Context) error {
	return h.users(c, h.Reports.LoyalUsers)
}

// InactiveUsers: GET /api/admin/analysis/inactive-users
func (h *AdminHandler) InactiveUsers(c echo.Context) error {
	return h.users(c, h.Reports.InactiveUsers)
}

// Spots compared by SpotUserSets when the query leaves them out.
const (
	defaultSpotA = 1
	defaultSpotB = 2
)

// SpotUserSets: GET /api/admin/analysis/:op?spot_a=&spot_b=
// op is union, intersect or except.
func (h *AdminHandler) SpotUserSets(c echo.Context) error {
	a, err := queryID(c, "spot_a")
	if err != nil {
		return err
	}
	b, err := queryID(c, "spot_b")
	if err != nil {
		return err
	}
	if a == 0 {
		a = defaultSpotA
	}
	if b == 0 {
		b = defaultSpotB
	}
	return h.users(c, func(ctx context.Context) ([]model.User, error) {
		return h.Reports.SpotUserSets(ctx, c.Param("op"), a, b)
	})
}

func (h *AdminHandler) users(c echo.Context, load func(context.Context) ([]model.User, error)) error {
	us, err := load(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUsers(us))
}
