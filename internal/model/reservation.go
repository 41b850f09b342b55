package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusActive    ReservationStatus = "ACTIVE"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusCompleted ReservationStatus = "COMPLETED"
)

// Valid reports whether s is one of the known statuses.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Holds reports whether a reservation in this status occupies its seat.
func (s ReservationStatus) Holds() bool {
	return s == StatusActive || s == StatusCompleted
}

// Reservation holds one seat of one spot for the half-open interval
// [Start, End).
//
// Fields:
//
//	ID         – reservations.id
//	UserID     – owning user
//	SpotID     – reserved spot
//	SeatNumber – 1..spot capacity
//	Start, End – interval bounds in the service location
//	Status     – stored status; read EffectiveStatus for the live value
//	CreatedAt  – insertion time
type Reservation struct {
	ID         uint64
	UserID     uint64
	SpotID     uint64
	SeatNumber int
	Start      time.Time
	End        time.Time
	Status     ReservationStatus
	CreatedAt  time.Time
}

// EffectiveStatus derives COMPLETED lazily: a stored ACTIVE reservation
// whose end has passed reads as COMPLETED. No sweeper is needed.
func (r Reservation) EffectiveStatus(now time.Time) ReservationStatus {
	if r.Status == StatusActive && !now.Before(r.End) {
		return StatusCompleted
	}
	return r.Status
}

// Overlaps reports whether [r.Start, r.End) intersects [start, end).
// Touching intervals do not overlap.
func (r Reservation) Overlaps(start, end time.Time) bool {
	return Overlaps(r.Start, r.End, start, end)
}

// Overlaps reports whether [aStart, aEnd) intersects [bStart, bEnd).
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Started reports whether the reservation's start time has been reached.
func (r Reservation) Started(now time.Time) bool { return !now.Before(r.Start) }

// ReservationView is a reservation joined with the spot details and the
// derived review flag, as listed in histories.
type ReservationView struct {
	Reservation
	EffectiveStatus ReservationStatus
	SpotName        string
	SpotImageURL    string
	UserName        string
	HasReviewed     bool
}
