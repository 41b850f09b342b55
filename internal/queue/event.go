// Package queue defines the domain events exchanged over the message broker,
// the RabbitMQ publisher that emits them and the consumer that appends them
// to the audit log.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/study-spot-reservation/internal/model"
)

// Event types. They double as the "type" header of the AMQP message.
const (
	ReservationCreated   = "reservation.created"
	ReservationCancelled = "reservation.cancelled"
	ReviewSubmitted      = "review.submitted"
	ReviewDeleted        = "review.deleted"
	SpotDeleted          = "spot.deleted"
)

// Event is the envelope published for every domain change. Exactly one of
// the payload pointers is set, matching Type.
type Event struct {
	ID          string              `json:"id"`
	Type        string              `json:"type"`
	OccurredAt  string              `json:"occurred_at"`
	Reservation *ReservationPayload `json:"reservation,omitempty"`
	Review      *ReviewPayload      `json:"review,omitempty"`
	Spot        *SpotPayload        `json:"spot,omitempty"`
}

// ReservationPayload carries enough for downstream consumers to log or
// notify without querying the primary database.
type ReservationPayload struct {
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	SpotID        uint64 `json:"spot_id"`
	SeatNumber    int    `json:"seat_number"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

type ReviewPayload struct {
	ReviewID      uint64  `json:"review_id"`
	ReservationID uint64  `json:"reservation_id"`
	UserID        uint64  `json:"user_id"`
	SpotID        uint64  `json:"spot_id"`
	Rating        int     `json:"rating"`
	SpotAverage   float64 `json:"spot_average"`
	SpotCount     int     `json:"spot_count"`
}

type SpotPayload struct {
	SpotID uint64 `json:"spot_id"`
	Name   string `json:"name"`
}

func newEvent(typ string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: model.FormatTimestamp(at),
	}
}

// NewReservationEvent builds a reservation.created or reservation.cancelled
// event.
func NewReservationEvent(typ string, r model.Reservation, at time.Time) Event {
	ev := newEvent(typ, at)
	ev.Reservation = &ReservationPayload{
		ReservationID: r.ID,
		UserID:        r.UserID,
		SpotID:        r.SpotID,
		SeatNumber:    r.SeatNumber,
		Start:         model.FormatTimestamp(r.Start),
		End:           model.FormatTimestamp(r.End),
	}
	return ev
}

// NewReviewEvent builds a review event carrying the spot's recomputed
// aggregate.
func NewReviewEvent(typ string, rv model.Review, agg model.RatingAggregate, at time.Time) Event {
	ev := newEvent(typ, at)
	ev.Review = &ReviewPayload{
		ReviewID:      rv.ID,
		ReservationID: rv.ReservationID,
		UserID:        rv.UserID,
		SpotID:        rv.SpotID,
		Rating:        rv.Rating,
		SpotAverage:   agg.Average,
		SpotCount:     agg.Count,
	}
	return ev
}

func NewSpotEvent(typ string, s model.Spot, at time.Time) Event {
	ev := newEvent(typ, at)
	ev.Spot = &SpotPayload{SpotID: s.ID, Name: s.Name}
	return ev
}
