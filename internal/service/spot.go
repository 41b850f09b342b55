package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/iliyamo/study-spot-reservation/internal/clock"
	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/queue"
	"github.com/iliyamo/study-spot-reservation/internal/repository"
)

// SpotInput describes a new spot.
type SpotInput struct {
	Name     string
	Capacity int
	Features []string
	ImageURL string
	// Unavailable creates the spot in maintenance mode.
	Unavailable bool
}

// minImageRefLength: anything shorter is not a usable URL or data URI and
// falls back to the default image.
const minImageRefLength = 10

// SpotRegistry is the admin-facing CRUD over spots.
type SpotRegistry struct {
	uow    repository.UnitOfWork
	clock  clock.Clock
	events EventPublisher
	log    *slog.Logger
}

func NewSpotRegistry(uow repository.UnitOfWork, clk clock.Clock, events EventPublisher, log *slog.Logger) *SpotRegistry {
	return &SpotRegistry{uow: uow, clock: clk, events: orNop(events), log: orDiscard(log)}
}

// Create allocates the next ID (one above every ID ever issued, deleted
// spots included) and stores the spot without ratings.
func (r *SpotRegistry) Create(ctx context.Context, in SpotInput) (model.Spot, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Spot{}, errs.Validation("name", "name is required")
	}
	if in.Capacity < 1 {
		return model.Spot{}, errs.Validation("capacity", "capacity must be at least 1")
	}
	image := strings.TrimSpace(in.ImageURL)
	if len(image) < minImageRefLength {
		image = model.DefaultSpotImage
	}

	spot := model.Spot{
		Name:        name,
		Capacity:    in.Capacity,
		Features:    model.SplitFeatures(model.JoinFeatures(in.Features)),
		IsAvailable: !in.Unavailable,
		ImageURL:    image,
		CreatedAt:   r.clock.Now(),
	}
	err := r.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		maxID, err := tx.Spots().MaxID(ctx)
		if err != nil {
			return err
		}
		spot.ID = maxID + 1
		return tx.Spots().Insert(ctx, &spot)
	})
	if err != nil {
		return model.Spot{}, err
	}
	r.log.InfoContext(ctx, "spot created", slog.Uint64("spot_id", spot.ID), slog.String("name", spot.Name))
	return spot, nil
}

// Delete soft-deletes a spot that has no live bookings. Its reservations
// and reviews stay for audit and history.
func (r *SpotRegistry) Delete(ctx context.Context, spotID uint64) error {
	now := r.clock.Now()
	var spot model.Spot
	err := r.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if spot, err = lockLiveSpot(ctx, tx, spotID); err != nil {
			return err
		}
		active, err := tx.Reservations().ListActiveBySpot(ctx, spotID, now)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return errs.FailedPrecondition("spot has %d active reservation(s); cancel them first", len(active))
		}
		return tx.Spots().SoftDelete(ctx, spotID, now)
	})
	if err != nil {
		return err
	}
	r.log.InfoContext(ctx, "spot deleted", slog.Uint64("spot_id", spotID))
	publish(ctx, r.events, r.log, queue.NewSpotEvent(queue.SpotDeleted, spot, now))
	return nil
}

// SetAvailability toggles maintenance mode. Existing bookings are kept;
// only new ones are blocked.
func (r *SpotRegistry) SetAvailability(ctx context.Context, spotID uint64, available bool) error {
	err := r.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := lockLiveSpot(ctx, tx, spotID); err != nil {
			return err
		}
		return tx.Spots().SetAvailability(ctx, spotID, available)
	})
	if err != nil {
		return err
	}
	r.log.InfoContext(ctx, "spot availability changed",
		slog.Uint64("spot_id", spotID), slog.Bool("available", available))
	return nil
}

// UpdateCapacity changes the seat count. It cannot drop below the highest
// seat still held by an active reservation.
func (r *SpotRegistry) UpdateCapacity(ctx context.Context, spotID uint64, capacity int) error {
	if capacity < 1 {
		return errs.Validation("capacity", "capacity must be at least 1")
	}
	now := r.clock.Now()
	return r.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := lockLiveSpot(ctx, tx, spotID); err != nil {
			return err
		}
		active, err := tx.Reservations().ListActiveBySpot(ctx, spotID, now)
		if err != nil {
			return err
		}
		highest := 0
		for _, res := range active {
			highest = max(highest, res.SeatNumber)
		}
		if capacity < highest {
			return errs.FailedPrecondition("seat %d has an active reservation; capacity cannot go below it", highest)
		}
		return tx.Spots().SetCapacity(ctx, spotID, capacity)
	})
}

// List returns live spots whose name or a feature contains q.
func (r *SpotRegistry) List(ctx context.Context, q string) ([]model.Spot, error) {
	var out []model.Spot
	err := r.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.Spots().List(ctx, q)
		return err
	})
	return out, err
}

func (r *SpotRegistry) Get(ctx context.Context, spotID uint64) (model.Spot, error) {
	var spot model.Spot
	err := r.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		spot, err = liveSpot(ctx, tx, spotID)
		return err
	})
	return spot, err
}

func lockLiveSpot(ctx context.Context, tx repository.Tx, id uint64) (model.Spot, error) {
	s, err := tx.Spots().LockByID(ctx, id)
	if err != nil {
		return model.Spot{}, err
	}
	if s.Deleted() {
		return model.Spot{}, errs.NotFound("spot %d not found", id)
	}
	return s, nil
}
