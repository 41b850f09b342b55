package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/study-spot-reservation/internal/clock"
	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/queue"
	"github.com/iliyamo/study-spot-reservation/internal/repository"
)

// SubmitReviewInput is the parsed body of a review submission. SpotID is
// optional; when set it must match the reservation's spot.
type SubmitReviewInput struct {
	UserID        uint64
	SpotID        uint64
	ReservationID uint64
	Rating        int
	Comment       string
}

// ReviewAggregator records reviews of completed reservations and keeps each
// spot's rating aggregate in step with its reviews. It is the only writer
// of Spot.Rating.
type ReviewAggregator struct {
	uow    repository.UnitOfWork
	clock  clock.Clock
	events EventPublisher
	log    *slog.Logger
}

func NewReviewAggregator(uow repository.UnitOfWork, clk clock.Clock, events EventPublisher, log *slog.Logger) *ReviewAggregator {
	return &ReviewAggregator{uow: uow, clock: clk, events: orNop(events), log: orDiscard(log)}
}

// Submit inserts the review and recomputes the spot aggregate in the same
// unit of work.
func (a *ReviewAggregator) Submit(ctx context.Context, in SubmitReviewInput) (model.Review, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if !model.ValidRating(in.Rating) {
		return model.Review{}, errs.Validation("rating", "rating must be between %d and %d", model.MinRating, model.MaxRating)
	}
	if utf8.RuneCountInString(in.Comment) > model.MaxCommentLength {
		return model.Review{}, errs.Validation("comment", "comment must be at most %d characters", model.MaxCommentLength)
	}
	if in.ReservationID == 0 {
		return model.Review{}, errs.Validation("reservationId", "reservationId is required")
	}

	now := a.clock.Now()
	var (
		rv  model.Review
		agg model.RatingAggregate
	)
	err := a.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		res, err := tx.Reservations().GetByID(ctx, in.ReservationID)
		if err != nil {
			return err
		}
		if res.UserID != in.UserID {
			return errs.Forbidden("you can only review your own reservations")
		}
		if in.SpotID != 0 && in.SpotID != res.SpotID {
			return errs.Validation("spotId", "spotId does not match the reservation's spot")
		}
		// Lock the spot so concurrent submissions recompute in order, then
		// re-read the reservation under it.
		if _, err := tx.Spots().LockByID(ctx, res.SpotID); err != nil {
			return err
		}
		if res, err = tx.Reservations().LockByID(ctx, res.ID); err != nil {
			return err
		}
		if st := res.EffectiveStatus(now); st != model.StatusCompleted {
			return errs.FailedPrecondition("only completed reservations can be reviewed (status is %s)", st)
		}
		exists, err := tx.Reviews().ExistsForReservation(ctx, res.ID)
		if err != nil {
			return err
		}
		if exists {
			return errs.AlreadyExists("reservation %d has already been reviewed", res.ID)
		}

		rv = model.Review{
			ReservationID: res.ID,
			UserID:        res.UserID,
			SpotID:        res.SpotID,
			Rating:        in.Rating,
			Comment:       in.Comment,
			CreatedAt:     now,
		}
		if err := tx.Reviews().Insert(ctx, &rv); err != nil {
			return err
		}
		agg, err = recompute(ctx, tx, res.SpotID)
		return err
	})
	if err != nil {
		return model.Review{}, err
	}

	a.log.InfoContext(ctx, "review submitted",
		slog.Uint64("review_id", rv.ID),
		slog.Uint64("spot_id", rv.SpotID),
		slog.Float64("average", agg.Average),
		slog.Int("count", agg.Count))
	publish(ctx, a.events, a.log, queue.NewReviewEvent(queue.ReviewSubmitted, rv, agg, now))
	return rv, nil
}

// Delete removes a review and recomputes its spot's aggregate. Admin only.
func (a *ReviewAggregator) Delete(ctx context.Context, reviewID uint64, requester model.Actor) error {
	if !requester.IsAdmin() {
		return errs.Forbidden("only admins can delete reviews")
	}
	now := a.clock.Now()
	var (
		rv  model.Review
		agg model.RatingAggregate
	)
	err := a.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if rv, err = tx.Reviews().GetByID(ctx, reviewID); err != nil {
			return err
		}
		if _, err := tx.Spots().LockByID(ctx, rv.SpotID); err != nil {
			return err
		}
		if err := tx.Reviews().Delete(ctx, reviewID); err != nil {
			return err
		}
		agg, err = recompute(ctx, tx, rv.SpotID)
		return err
	})
	if err != nil {
		return err
	}

	a.log.InfoContext(ctx, "review deleted",
		slog.Uint64("review_id", rv.ID),
		slog.Uint64("spot_id", rv.SpotID),
		slog.Uint64("by_user", requester.UserID))
	publish(ctx, a.events, a.log, queue.NewReviewEvent(queue.ReviewDeleted, rv, agg, now))
	return nil
}

// ListForSpot returns a spot's reviews, newest first.
func (a *ReviewAggregator) ListForSpot(ctx context.Context, spotID uint64) ([]model.ReviewView, error) {
	var out []model.ReviewView
	err := a.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := liveSpot(ctx, tx, spotID); err != nil {
			return err
		}
		var err error
		out, err = tx.Reviews().ListBySpot(ctx, spotID)
		return err
	})
	return out, err
}

// ListAll returns every review for moderation, newest first.
func (a *ReviewAggregator) ListAll(ctx context.Context) ([]model.ReviewView, error) {
	var out []model.ReviewView
	err := a.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.Reviews().ListAll(ctx)
		return err
	})
	return out, err
}

// recompute derives the aggregate from the spot's remaining reviews and
// stores it on the spot.
func recompute(ctx context.Context, tx repository.Tx, spotID uint64) (model.RatingAggregate, error) {
	ratings, err := tx.Reviews().RatingsBySpot(ctx, spotID)
	if err != nil {
		return model.RatingAggregate{}, err
	}
	agg := model.ComputeAggregate(ratings)
	if err := tx.Spots().SetRating(ctx, spotID, agg); err != nil {
		return model.RatingAggregate{}, err
	}
	return agg, nil
}
