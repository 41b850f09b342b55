package service

import (
	"context"
	"slices"
	"time"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/repository"
)

// AvailabilityResolver answers seat occupancy questions. It only reads.
type AvailabilityResolver struct {
	uow repository.UnitOfWork
}

func NewAvailabilityResolver(uow repository.UnitOfWork) *AvailabilityResolver {
	return &AvailabilityResolver{uow: uow}
}

// IsSeatFree reports whether no ACTIVE or COMPLETED reservation of the seat
// overlaps [start, end).
func (a *AvailabilityResolver) IsSeatFree(ctx context.Context, spotID uint64, seat int, start, end time.Time) (bool, error) {
	if err := validateInterval(start, end); err != nil {
		return false, err
	}
	var free bool
	err := a.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		spot, err := liveSpot(ctx, tx, spotID)
		if err != nil {
			return err
		}
		if !spot.HasSeat(seat) {
			return errs.Validation("seatNumber", "seat must be between 1 and %d", spot.Capacity)
		}
		free, err = seatFree(ctx, tx, spotID, seat, start, end)
		return err
	})
	return free, err
}

// OccupiedSeats returns the sorted seat numbers that are not free for
// [start, end). It is never nil.
func (a *AvailabilityResolver) OccupiedSeats(ctx context.Context, spotID uint64, start, end time.Time) ([]int, error) {
	if err := validateInterval(start, end); err != nil {
		return nil, err
	}
	var seats []int
	err := a.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := liveSpot(ctx, tx, spotID); err != nil {
			return err
		}
		holding, err := tx.Reservations().ListHolding(ctx, spotID, 0, start, end)
		if err != nil {
			return err
		}
		seats = occupiedFrom(holding)
		return nil
	})
	return seats, err
}

func validateInterval(start, end time.Time) error {
	if start.IsZero() {
		return errs.Validation("start", "start is required")
	}
	if end.IsZero() {
		return errs.Validation("end", "end is required")
	}
	if !start.Before(end) {
		return errs.Validation("end", "end must be after start")
	}
	return nil
}

// liveSpot loads a spot that has not been soft-deleted.
func liveSpot(ctx context.Context, tx repository.Tx, id uint64) (model.Spot, error) {
	s, err := tx.Spots().GetByID(ctx, id)
	if err != nil {
		return model.Spot{}, err
	}
	if s.Deleted() {
		return model.Spot{}, errs.NotFound("spot %d not found", id)
	}
	return s, nil
}

func seatFree(ctx context.Context, tx repository.Tx, spotID uint64, seat int, start, end time.Time) (bool, error) {
	holding, err := tx.Reservations().ListHolding(ctx, spotID, seat, start, end)
	if err != nil {
		return false, err
	}
	return len(holding) == 0, nil
}

func occupiedFrom(holding []model.Reservation) []int {
	seats := make([]int, 0, len(holding))
	for _, r := range holding {
		seats = append(seats, r.SeatNumber)
	}
	slices.Sort(seats)
	return slices.Compact(seats)
}
