// Package repository defines the storage contracts of the reservation core
// and their MySQL implementation. Every read and write goes through a
// UnitOfWork so that the check-then-insert sequence of a booking runs under
// a single lock; the core itself does not depend on MySQL, only on the
// guarantees described on UnitOfWork.
package repository

import (
	"context"
	"time"

	"github.com/iliyamo/study-spot-reservation/internal/model"
)

// UnitOfWork runs fn inside one transaction. Implementations must provide:
//
//   - atomicity: if fn returns an error nothing it wrote is kept;
//   - serialization per spot: once fn has called Spots().LockByID for a spot,
//     no other unit of work can lock that spot, or insert/update reservations
//     for it, until fn returns.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the repositories bound to one unit of work.
type Tx interface {
	Spots() SpotRepository
	Reservations() ReservationRepository
	Reviews() ReviewRepository
	Users() UserRepository
	Tokens() TokenRepository
}

// SpotRepository persists study spots. Getters return errs.ErrNotFound for
// unknown IDs; soft-deleted spots are returned and callers decide.
type SpotRepository interface {
	GetByID(ctx context.Context, id uint64) (model.Spot, error)
	// LockByID is GetByID plus an exclusive lock on the spot held until the
	// unit of work ends.
	LockByID(ctx context.Context, id uint64) (model.Spot, error)
	// List returns live spots matching q (name or feature substring,
	// case-insensitive) ordered by ID.
	List(ctx context.Context, q string) ([]model.Spot, error)
	// MaxID returns the highest ID ever allocated, deleted spots included.
	MaxID(ctx context.Context) (uint64, error)
	Insert(ctx context.Context, s *model.Spot) error
	SetAvailability(ctx context.Context, id uint64, available bool) error
	SetCapacity(ctx context.Context, id uint64, capacity int) error
	SetRating(ctx context.Context, id uint64, agg model.RatingAggregate) error
	SoftDelete(ctx context.Context, id uint64, at time.Time) error
	CountAvailable(ctx context.Context) (int, error)
}

// ReservationRepository is the reservation ledger.
type ReservationRepository interface {
	Insert(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
	// LockByID is GetByID plus an exclusive lock on the reservation. Callers
	// take the spot lock first.
	LockByID(ctx context.Context, id uint64) (model.Reservation, error)
	UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus) error
	// ListHolding returns reservations of the spot whose stored status holds
	// the seat (ACTIVE or COMPLETED) and whose interval overlaps
	// [start, end). seat 0 means every seat.
	ListHolding(ctx context.Context, spotID uint64, seat int, start, end time.Time) ([]model.Reservation, error)
	// ListActiveBySpot returns stored-ACTIVE reservations of the spot that
	// end after now.
	ListActiveBySpot(ctx context.Context, spotID uint64, now time.Time) ([]model.Reservation, error)
	// CountActive counts stored-ACTIVE reservations that end after now.
	CountActive(ctx context.Context, now time.Time) (int, error)
	// The list methods order by start time, most recent first, and fill
	// the view's spot name, user name and HasReviewed.
	ListByUser(ctx context.Context, userID uint64) ([]model.ReservationView, error)
	ListBySpot(ctx context.Context, spotID uint64) ([]model.ReservationView, error)
	ListAll(ctx context.Context) ([]model.ReservationView, error)
}

// ReviewRepository persists reviews. Insert returns errs.ErrAlreadyExists
// when the reservation already has a review.
type ReviewRepository interface {
	Insert(ctx context.Context, r *model.Review) error
	GetByID(ctx context.Context, id uint64) (model.Review, error)
	ExistsForReservation(ctx context.Context, reservationID uint64) (bool, error)
	Delete(ctx context.Context, id uint64) error
	RatingsBySpot(ctx context.Context, spotID uint64) ([]int, error)
	// ListBySpot and ListAll order by creation time, newest first.
	ListBySpot(ctx context.Context, spotID uint64) ([]model.ReviewView, error)
	ListAll(ctx context.Context) ([]model.ReviewView, error)
	// SiteAverage is the mean over every review, unrounded; 0 without reviews.
	SiteAverage(ctx context.Context) (float64, error)
	// ReviewersOfMultipleSpots returns users who reviewed more than one
	// distinct spot, ordered by name.
	ReviewersOfMultipleSpots(ctx context.Context) ([]model.User, error)
}

// UserRepository persists users. Create returns errs.ErrAlreadyExists for a
// duplicate email.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	// List orders newest first.
	List(ctx context.Context) ([]model.User, error)
	UpdateProfile(ctx context.Context, id uint64, name, passwordHash string) error
	CountByRole(ctx context.Context, role string) (int, error)
	// StudentsWithoutReservations returns students who never booked,
	// ordered by name.
	StudentsWithoutReservations(ctx context.Context) ([]model.User, error)
	// BookersOfSpot returns users holding at least one reservation of the
	// spot in any status, ordered by name.
	BookersOfSpot(ctx context.Context, spotID uint64) ([]model.User, error)
}

// TokenRepository persists refresh token hashes.
type TokenRepository interface {
	Store(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error
	GetByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string, at time.Time) error
}
