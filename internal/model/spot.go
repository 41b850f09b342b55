package model

import (
	"strings"
	"time"
)

// DefaultSpotImage is used when an admin creates a spot without a usable
// image reference.
const DefaultSpotImage = "https://images.unsplash.com/photo-1497366216548-37526070297c"

// Spot is a bookable study location. Seats are numbered 1..Capacity; there
// is no persisted seat entity.
//
// Fields:
//
//	ID          – spots.id, allocated by the registry (max+1, never reused).
//	Name        – display name.
//	Capacity    – number of seats.
//	Features    – free-form tags such as "Wifi" or "Priz".
//	IsAvailable – operator maintenance flag, independent of bookings.
//	ImageURL    – image reference shown by the client.
//	Rating      – aggregate over non-deleted reviews, written only by the
//	              review aggregator.
//	DeletedAt   – set when the spot is soft-deleted.
type Spot struct {
	ID          uint64
	Name        string
	Capacity    int
	Features    []string
	IsAvailable bool
	ImageURL    string
	Rating      RatingAggregate
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

// RatingAggregate is the mean of a spot's review scores rounded to one
// decimal place, together with the number of reviews. A spot without
// reviews has {0, 0}.
type RatingAggregate struct {
	Average float64
	Count   int
}

// Deleted reports whether the spot has been soft-deleted.
func (s Spot) Deleted() bool { return s.DeletedAt != nil }

// HasSeat reports whether seat is a valid seat number for this spot.
func (s Spot) HasSeat(seat int) bool { return seat >= 1 && seat <= s.Capacity }

// Matches reports whether q occurs, case-insensitively, in the name or in
// any feature. An empty query matches every spot.
func (s Spot) Matches(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(s.Name), q) {
		return true
	}
	for _, f := range s.Features {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// JoinFeatures and SplitFeatures convert between the feature slice and the
// comma separated column representation.
func JoinFeatures(features []string) string {
	clean := make([]string, 0, len(features))
	for _, f := range features {
		if f = strings.TrimSpace(f); f != "" {
			clean = append(clean, f)
		}
	}
	return strings.Join(clean, ", ")
}

func SplitFeatures(s string) []string {
	out := []string{}
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
