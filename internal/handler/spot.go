package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/service"
)

// SpotService is the part of service.SpotRegistry the handlers use.
type SpotService interface {
	Create(ctx context.Context, in service.SpotInput) (model.Spot, error)
	Delete(ctx context.Context, spotID uint64) error
	SetAvailability(ctx context.Context, spotID uint64, available bool) error
	UpdateCapacity(ctx context.Context, spotID uint64, capacity int) error
	List(ctx context.Context, q string) ([]model.Spot, error)
	Get(ctx context.Context, spotID uint64) (model.Spot, error)
}

// AvailabilityService answers occupied-seat queries.
type AvailabilityService interface {
	OccupiedSeats(ctx context.Context, spotID uint64, start, end time.Time) ([]int, error)
}

// SpotHandler serves the public spot catalogue and the admin spot CRUD.
type SpotHandler struct {
	Spots        SpotService
	Availability AvailabilityService
	Loc          *time.Location
}

func NewSpotHandler(spots SpotService, availability AvailabilityService, loc *time.Location) *SpotHandler {
	return &SpotHandler{Spots: spots, Availability: availability, Loc: loc}
}

// List: GET /api/spots?q=
func (h *SpotHandler) List(c echo.Context) error {
	spots, err := h.Spots.List(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	out := make([]spotResp, 0, len(spots))
	for _, s := range spots {
		out = append(out, toSpot(s))
	}
	return c.JSON(http.StatusOK, out)
}

// Get: GET /api/spots/:id
func (h *SpotHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	spot, err := h.Spots.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSpot(spot))
}

type occupiedResp struct {
	SpotID        uint64 `json:"spotId"`
	Start         string `json:"start"`
	End           string `json:"end"`
	OccupiedSeats []int  `json:"occupiedSeats"`
}

// Occupied: GET /api/spots/:id/occupied?date=YYYY-MM-DD&start=HH:MM&end=HH:MM
func (h *SpotHandler) Occupied(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	date := c.QueryParam("date")
	start, err := model.ParseDateAndClock("start", date, c.QueryParam("start"), h.Loc)
	if err != nil {
		return err
	}
	end, err := model.ParseDateAndClock("end", date, c.QueryParam("end"), h.Loc)
	if err != nil {
		return err
	}
	seats, err := h.Availability.OccupiedSeats(c.Request().Context(), id, start, end)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, occupiedResp{
		SpotID:        id,
		Start:         model.FormatTimestamp(start),
		End:           model.FormatTimestamp(end),
		OccupiedSeats: seats,
	})
}

type createSpotReq struct {
	Name        string   `json:"name"`
	Capacity    int      `json:"capacity"`
	Features    []string `json:"features"`
	ImageURL    string   `json:"imageUrl"`
	IsAvailable *bool    `json:"isAvailable"`
}

// Create: POST /api/admin/add-spot
func (h *SpotHandler) Create(c echo.Context) error {
	var req createSpotReq
	if err := bind(c, &req); err != nil {
		return err
	}
	spot, err := h.Spots.Create(c.Request().Context(), service.SpotInput{
		Name:        req.Name,
		Capacity:    req.Capacity,
		Features:    req.Features,
		ImageURL:    req.ImageURL,
		Unavailable: req.IsAvailable != nil && !*req.IsAvailable,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSpot(spot))
}

// Delete: DELETE /api/admin/delete-spot/:id
func (h *SpotHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Spots.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "spot deleted"})
}

type availabilityReq struct {
	IsAvailable *bool `json:"isAvailable"`
}

// SetAvailability: PUT /api/admin/spots/:id/availability
func (h *SpotHandler) SetAvailability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req availabilityReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.IsAvailable == nil {
		return requiredField("isAvailable")
	}
	ctx := c.Request().Context()
	if err := h.Spots.SetAvailability(ctx, id, *req.IsAvailable); err != nil {
		return err
	}
	return h.respondSpot(c, id)
}

type capacityReq struct {
	Capacity int `json:"capacity"`
}

// UpdateCapacity: PUT /api/admin/spots/:id/capacity
func (h *SpotHandler) UpdateCapacity(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req capacityReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Spots.UpdateCapacity(c.Request().Context(), id, req.Capacity); err != nil {
		return err
	}
	return h.respondSpot(c, id)
}

func (h *SpotHandler) respondSpot(c echo.Context, id uint64) error {
	spot, err := h.Spots.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSpot(spot))
}
