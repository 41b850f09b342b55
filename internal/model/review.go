package model

import (
	"math"
	"time"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 1000
)

// Review is a star rating left for a completed reservation. At most one
// review references a given reservation.
//
// Fields:
//
//	ID            – reviews.id
//	ReservationID – reviewed reservation (unique)
//	UserID        – author, always the reservation owner
//	SpotID        – reviewed spot, copied from the reservation
//	Rating        – 1..5
//	Comment       – optional free text
//	CreatedAt     – submission time
type Review struct {
	ID            uint64
	ReservationID uint64
	UserID        uint64
	SpotID        uint64
	Rating        int
	Comment       string
	CreatedAt     time.Time
}

// ReviewView adds the names needed by review listings.
type ReviewView struct {
	Review
	UserName string
	SpotName string
}

// ValidRating reports whether r is within [MinRating, MaxRating].
func ValidRating(r int) bool { return r >= MinRating && r <= MaxRating }

// ComputeAggregate returns the arithmetic mean of ratings rounded to one
// decimal place (half away from zero) and the count. No ratings yields {0, 0}.
func ComputeAggregate(ratings []int) RatingAggregate {
	if len(ratings) == 0 {
		return RatingAggregate{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return RatingAggregate{
		Average: RoundOneDecimal(float64(sum) / float64(len(ratings))),
		Count:   len(ratings),
	}
}

// RoundOneDecimal rounds v to one decimal place.
func RoundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
