package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/middleware"
	"github.com/iliyamo/study-spot-reservation/internal/model"
)

// ----- response DTOs -----

type ratingResp struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type spotResp struct {
	ID          uint64     `json:"id"`
	Name        string     `json:"name"`
	Capacity    int        `json:"capacity"`
	Features    []string   `json:"features"`
	IsAvailable bool       `json:"isAvailable"`
	ImageURL    string     `json:"imageUrl"`
	Rating      ratingResp `json:"rating"`
}

func toSpot(s model.Spot) spotResp {
	features := s.Features
	if features == nil {
		features = []string{}
	}
	return spotResp{
		ID:          s.ID,
		Name:        s.Name,
		Capacity:    s.Capacity,
		Features:    features,
		IsAvailable: s.IsAvailable,
		ImageURL:    s.ImageURL,
		Rating:      ratingResp{Average: s.Rating.Average, Count: s.Rating.Count},
	}
}

type reservationResp struct {
	ID          uint64 `json:"id"`
	UserID      uint64 `json:"userId"`
	SpotID      uint64 `json:"spotId"`
	SeatNumber  int    `json:"seatNumber"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
	SpotName    string `json:"spotName,omitempty"`
	SpotImage   string `json:"spotImageUrl,omitempty"`
	UserName    string `json:"userName,omitempty"`
	HasReviewed *bool  `json:"hasReviewed,omitempty"`
}

func toReservation(r model.Reservation, status model.ReservationStatus) reservationResp {
	return reservationResp{
		ID:         r.ID,
		UserID:     r.UserID,
		SpotID:     r.SpotID,
		SeatNumber: r.SeatNumber,
		Start:      model.FormatTimestamp(r.Start),
		End:        model.FormatTimestamp(r.End),
		Status:     string(status),
		CreatedAt:  model.FormatTimestamp(r.CreatedAt),
	}
}

func toReservationViews(vs []model.ReservationView) []reservationResp {
	out := make([]reservationResp, 0, len(vs))
	for _, v := range vs {
		r := toReservation(v.Reservation, v.EffectiveStatus)
		r.SpotName = v.SpotName
		r.SpotImage = v.SpotImageURL
		r.UserName = v.UserName
		reviewed := v.HasReviewed
		r.HasReviewed = &reviewed
		out = append(out, r)
	}
	return out
}

type reviewResp struct {
	ID            uint64 `json:"id"`
	ReservationID uint64 `json:"reservationId"`
	UserID        uint64 `json:"userId"`
	SpotID        uint64 `json:"spotId"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
	CreatedAt     string `json:"createdAt"`
	UserName      string `json:"userName,omitempty"`
	SpotName      string `json:"spotName,omitempty"`
}

func toReview(r model.Review) reviewResp {
	return reviewResp{
		ID:            r.ID,
		ReservationID: r.ReservationID,
		UserID:        r.UserID,
		SpotID:        r.SpotID,
		Rating:        r.Rating,
		Comment:       r.Comment,
		CreatedAt:     model.FormatTimestamp(r.CreatedAt),
	}
}

func toReviewViews(vs []model.ReviewView) []reviewResp {
	out := make([]reviewResp, 0, len(vs))
	for _, v := range vs {
		r := toReview(v.Review)
		r.UserName = v.UserName
		r.SpotName = v.SpotName
		out = append(out, r)
	}
	return out
}

type userResp struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func toUser(u model.User) userResp {
	return userResp{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: model.FormatTimestamp(u.CreatedAt),
	}
}

func toUsers(us []model.User) []userResp {
	out := make([]userResp, 0, len(us))
	for _, u := range us {
		out = append(out, toUser(u))
	}
	return out
}

type messageResp struct {
	Message string `json:"message"`
}

// ----- request helpers -----

// bind decodes the body; a malformed body is a VALIDATION error.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errs.Validation("body", "invalid request body")
	}
	return nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errs.Validation(name, "%s must be a positive integer", name)
	}
	return id, nil
}

// queryID parses an optional numeric query parameter; 0 means absent.
func queryID(c echo.Context, name string) (uint64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errs.Validation(name, "%s must be a positive integer", name)
	}
	return id, nil
}

// actor returns the authenticated caller; routes using it sit behind
// JWTAuth.
func actor(c echo.Context) (model.Actor, error) {
	a, ok := middleware.Actor(c)
	if !ok {
		return model.Actor{}, errs.Unauthenticated("authentication required")
	}
	return a, nil
}

// onBehalfOf resolves the user a request acts for: the caller when
// requested is 0, otherwise requested, which only admins may set to
// someone else.
func onBehalfOf(a model.Actor, requested uint64) (uint64, error) {
	if requested == 0 {
		return a.UserID, nil
	}
	if !a.CanActFor(requested) {
		return 0, errs.Forbidden("you can only act on your own account")
	}
	return requested, nil
}

func requiredField(field string) error {
	return errs.Validation(field, "%s is required", field)
}
