package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/service"
)

// ReviewService is the part of service.ReviewAggregator the handlers use.
type ReviewService interface {
	Submit(ctx context.Context, in service.SubmitReviewInput) (model.Review, error)
	Delete(ctx context.Context, reviewID uint64, requester model.Actor) error
	ListForSpot(ctx context.Context, spotID uint64) ([]model.ReviewView, error)
	ListAll(ctx context.Context) ([]model.ReviewView, error)
}

type ReviewHandler struct {
	Reviews ReviewService
}

func NewReviewHandler(reviews ReviewService) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews}
}

type submitReviewReq struct {
	UserID        uint64 `json:"userId"`
	SpotID        uint64 `json:"spotId"`
	ReservationID uint64 `json:"reservationId"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
}

// Submit: POST /api/reviews
func (h *ReviewHandler) Submit(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req submitReviewReq
	if err := bind(c, &req); err != nil {
		return err
	}
	userID, err := onBehalfOf(a, req.UserID)
	if err != nil {
		return err
	}
	rv, err := h.Reviews.Submit(c.Request().Context(), service.SubmitReviewInput{
		UserID:        userID,
		SpotID:        req.SpotID,
		ReservationID: req.ReservationID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReview(rv))
}

// ListForSpot: GET /api/spots/:id/reviews
func (h *ReviewHandler) ListForSpot(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	views, err := h.Reviews.ListForSpot(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReviewViews(views))
}

// ListAll: GET /api/admin/reviews
func (h *ReviewHandler) ListAll(c echo.Context) error {
	views, err := h.Reviews.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReviewViews(views))
}

// Delete: DELETE /api/admin/reviews/:id
func (h *ReviewHandler) Delete(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Reviews.Delete(c.Request().Context(), id, a); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "review deleted"})
}
