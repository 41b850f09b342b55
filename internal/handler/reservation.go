package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/service"
)

// ReservationService is the part of service.ReservationService the
// handlers use.
type ReservationService interface {
	Create(ctx context.Context, in service.CreateReservationInput) (model.Reservation, error)
	Cancel(ctx context.Context, reservationID uint64, requester model.Actor) error
	Get(ctx context.Context, reservationID uint64, requester model.Actor) (model.Reservation, error)
	ListForUser(ctx context.Context, userID uint64) ([]model.ReservationView, error)
	ListForSpot(ctx context.Context, spotID uint64) ([]model.ReservationView, error)
	ListAll(ctx context.Context) ([]model.ReservationView, error)
}

// ReservationHandler serves booking, cancellation and history.
type ReservationHandler struct {
	Reservations ReservationService
	Loc          *time.Location
}

func NewReservationHandler(reservations ReservationService, loc *time.Location) *ReservationHandler {
	return &ReservationHandler{Reservations: reservations, Loc: loc}
}

type createReservationReq struct {
	UserID     uint64 `json:"userId"`
	SpotID     uint64 `json:"spotId"`
	Start      string `json:"start"`
	End        string `json:"end"`
	SeatNumber int    `json:"seatNumber"`
}

// Create: POST /api/reservations/create
// userId defaults to the caller; students may only book for themselves.
func (h *ReservationHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req createReservationReq
	if err := bind(c, &req); err != nil {
		return err
	}
	userID, err := onBehalfOf(a, req.UserID)
	if err != nil {
		return err
	}
	start, err := model.ParseTimestamp("start", req.Start, h.Loc)
	if err != nil {
		return err
	}
	end, err := model.ParseTimestamp("end", req.End, h.Loc)
	if err != nil {
		return err
	}

	res, err := h.Reservations.Create(c.Request().Context(), service.CreateReservationInput{
		UserID:     userID,
		SpotID:     req.SpotID,
		SeatNumber: req.SeatNumber,
		Start:      start,
		End:        end,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReservation(res, res.Status))
}

// Cancel: PUT /api/reservations/:id/cancel
func (h *ReservationHandler) Cancel(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Reservations.Cancel(c.Request().Context(), id, a); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "reservation cancelled"})
}

// Get: GET /api/reservations/:id
func (h *ReservationHandler) Get(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.Reservations.Get(c.Request().Context(), id, a)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservation(res, res.Status))
}

// History: GET /api/my-history?user_id=
func (h *ReservationHandler) History(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	requested, err := queryID(c, "user_id")
	if err != nil {
		return err
	}
	userID, err := onBehalfOf(a, requested)
	if err != nil {
		return err
	}
	views, err := h.Reservations.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationViews(views))
}

// ListAll: GET /api/admin/reservations
func (h *ReservationHandler) ListAll(c echo.Context) error {
	views, err := h.Reservations.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationViews(views))
}

// ListForSpot: GET /api/admin/spots/:id/reservations
func (h *ReservationHandler) ListForSpot(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	views, err := h.Reservations.ListForSpot(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationViews(views))
}
