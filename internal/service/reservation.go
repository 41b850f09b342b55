package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/study-spot-reservation/internal/clock"
	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/queue"
	"github.com/iliyamo/study-spot-reservation/internal/repository"
)

// CreateReservationInput is the parsed body of a booking request.
type CreateReservationInput struct {
	UserID     uint64
	SpotID     uint64
	SeatNumber int
	Start      time.Time
	End        time.Time
}

// ReservationService admits, cancels and lists reservations.
type ReservationService struct {
	uow    repository.UnitOfWork
	clock  clock.Clock
	events EventPublisher
	log    *slog.Logger
}

func NewReservationService(uow repository.UnitOfWork, clk clock.Clock, events EventPublisher, log *slog.Logger) *ReservationService {
	return &ReservationService{uow: uow, clock: clk, events: orNop(events), log: orDiscard(log)}
}

// Create books one seat. The spot row is locked before the overlap check,
// so two concurrent requests for the same seat and overlapping interval
// cannot both pass the check.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (model.Reservation, error) {
	now := s.clock.Now()
	if err := s.validateCreate(in, now); err != nil {
		return model.Reservation{}, err
	}

	var res model.Reservation
	err := s.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		spot, err := lockLiveSpot(ctx, tx, in.SpotID)
		if err != nil {
			return err
		}
		if !spot.IsAvailable {
			return errs.FailedPrecondition("%s is under maintenance and cannot be booked", spot.Name)
		}
		if !spot.HasSeat(in.SeatNumber) {
			return errs.Validation("seatNumber", "seat must be between 1 and %d", spot.Capacity)
		}
		if _, err := tx.Users().GetByID(ctx, in.UserID); err != nil {
			return err
		}

		free, err := seatFree(ctx, tx, spot.ID, in.SeatNumber, in.Start, in.End)
		if err != nil {
			return err
		}
		if !free {
			return errs.Conflict("seat %d is already booked for this time range", in.SeatNumber)
		}

		res = model.Reservation{
			UserID:     in.UserID,
			SpotID:     spot.ID,
			SeatNumber: in.SeatNumber,
			Start:      in.Start,
			End:        in.End,
			Status:     model.StatusActive,
			CreatedAt:  now,
		}
		return tx.Reservations().Insert(ctx, &res)
	})
	if err != nil {
		return model.Reservation{}, err
	}

	s.log.InfoContext(ctx, "reservation created",
		slog.Uint64("reservation_id", res.ID),
		slog.Uint64("spot_id", res.SpotID),
		slog.Int("seat", res.SeatNumber))
	publish(ctx, s.events, s.log, queue.NewReservationEvent(queue.ReservationCreated, res, now))
	return res, nil
}

// validateCreate checks what can be checked without the store. A booking
// may start earlier today as long as it has not already ended.
func (s *ReservationService) validateCreate(in CreateReservationInput, now time.Time) error {
	if in.UserID == 0 {
		return errs.Validation("userId", "userId is required")
	}
	if in.SpotID == 0 {
		return errs.Validation("spotId", "spotId is required")
	}
	if in.SeatNumber < 1 {
		return errs.Validation("seatNumber", "seat must be at least 1")
	}
	if err := validateInterval(in.Start, in.End); err != nil {
		return err
	}
	if in.Start.Before(model.StartOfDay(now)) {
		return errs.Validation("start", "cannot book a past day")
	}
	if !in.End.After(now) {
		return errs.Validation("end", "this time range has already passed")
	}
	return nil
}

// Cancel moves an ACTIVE reservation that has not started yet to CANCELLED.
// Only the owner or an admin may cancel.
func (s *ReservationService) Cancel(ctx context.Context, reservationID uint64, requester model.Actor) error {
	now := s.clock.Now()
	var res model.Reservation
	err := s.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		res, err = tx.Reservations().GetByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if !requester.CanActFor(res.UserID) {
			return errs.Forbidden("you cannot cancel another user's reservation")
		}
		// Serialize with concurrent creates on the same spot so the freed
		// interval only becomes visible once this write commits.
		if _, err := tx.Spots().LockByID(ctx, res.SpotID); err != nil {
			return err
		}
		// Re-read under the lock; a concurrent cancel may have won.
		if res, err = tx.Reservations().LockByID(ctx, reservationID); err != nil {
			return err
		}
		switch st := res.EffectiveStatus(now); {
		case st != model.StatusActive:
			return errs.FailedPrecondition("only active reservations can be cancelled (status is %s)", st)
		case res.Started(now):
			return errs.FailedPrecondition("reservation has already started and can no longer be cancelled")
		}
		if err := tx.Reservations().UpdateStatus(ctx, res.ID, model.StatusCancelled); err != nil {
			return err
		}
		res.Status = model.StatusCancelled
		return nil
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "reservation cancelled",
		slog.Uint64("reservation_id", res.ID),
		slog.Uint64("by_user", requester.UserID))
	publish(ctx, s.events, s.log, queue.NewReservationEvent(queue.ReservationCancelled, res, now))
	return nil
}

// Get returns one reservation to its owner or an admin.
func (s *ReservationService) Get(ctx context.Context, reservationID uint64, requester model.Actor) (model.Reservation, error) {
	var res model.Reservation
	err := s.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		res, err = tx.Reservations().GetByID(ctx, reservationID)
		return err
	})
	if err != nil {
		return model.Reservation{}, err
	}
	if !requester.CanActFor(res.UserID) {
		// Same answer as a missing row; don't reveal other users' IDs.
		return model.Reservation{}, errs.NotFound("reservation %d not found", reservationID)
	}
	res.Status = res.EffectiveStatus(s.clock.Now())
	return res, nil
}

// ListForUser returns the user's history, most recent start first.
func (s *ReservationService) ListForUser(ctx context.Context, userID uint64) ([]model.ReservationView, error) {
	return s.list(ctx, func(ctx context.Context, tx repository.Tx) ([]model.ReservationView, error) {
		return tx.Reservations().ListByUser(ctx, userID)
	})
}

// ListForSpot returns every reservation of a spot, most recent start first.
func (s *ReservationService) ListForSpot(ctx context.Context, spotID uint64) ([]model.ReservationView, error) {
	return s.list(ctx, func(ctx context.Context, tx repository.Tx) ([]model.ReservationView, error) {
		if _, err := tx.Spots().GetByID(ctx, spotID); err != nil {
			return nil, err
		}
		return tx.Reservations().ListBySpot(ctx, spotID)
	})
}

// ListAll is the admin history across all spots.
func (s *ReservationService) ListAll(ctx context.Context) ([]model.ReservationView, error) {
	return s.list(ctx, func(ctx context.Context, tx repository.Tx) ([]model.ReservationView, error) {
		return tx.Reservations().ListAll(ctx)
	})
}

func (s *ReservationService) list(ctx context.Context, load func(context.Context, repository.Tx) ([]model.ReservationView, error)) ([]model.ReservationView, error) {
	var views []model.ReservationView
	err := s.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		views, err = load(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for i := range views {
		views[i].EffectiveStatus = views[i].Reservation.EffectiveStatus(now)
	}
	return views, nil
}
