package service

import (
	"cmp"
	"context"
	"slices"

	"github.com/iliyamo/study-spot-reservation/internal/clock"
	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/repository"
)

// Stats is the admin dashboard summary.
type Stats struct {
	ActiveReservations int
	AvailableSpots     int
	AverageSiteRating  float64
	TotalStudents      int
}

// AdminReports computes the read-only admin views.
type AdminReports struct {
	uow   repository.UnitOfWork
	clock clock.Clock
}

func NewAdminReports(uow repository.UnitOfWork, clk clock.Clock) *AdminReports {
	return &AdminReports{uow: uow, clock: clk}
}

// Stats counts reservations that are still ACTIVE (not ended, not
// cancelled), available live spots and students, and averages every review
// to one decimal.
func (r *AdminReports) Stats(ctx context.Context) (Stats, error) {
	now := r.clock.Now()
	var st Stats
	err := r.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if st.ActiveReservations, err = tx.Reservations().CountActive(ctx, now); err != nil {
			return err
		}
		if st.AvailableSpots, err = tx.Spots().CountAvailable(ctx); err != nil {
			return err
		}
		if st.TotalStudents, err = tx.Users().CountByRole(ctx, model.RoleStudent); err != nil {
			return err
		}
		avg, err := tx.Reviews().SiteAverage(ctx)
		if err != nil {
			return err
		}
		st.AverageSiteRating = model.RoundOneDecimal(avg)
		return nil
	})
	return st, err
}

// LoyalUsers lists users who reviewed more than one distinct spot.
func (r *AdminReports) LoyalUsers(ctx context.Context) ([]model.User, error) {
	return r.users(ctx, func(ctx context.Context, tx repository.Tx) ([]model.User, error) {
		return tx.Reviews().ReviewersOfMultipleSpots(ctx)
	})
}

// InactiveUsers lists students who never made a reservation.
func (r *AdminReports) InactiveUsers(ctx context.Context) ([]model.User, error) {
	return r.users(ctx, func(ctx context.Context, tx repository.Tx) ([]model.User, error) {
		return tx.Users().StudentsWithoutReservations(ctx)
	})
}

// ListUsers lists every account, newest first.
func (r *AdminReports) ListUsers(ctx context.Context) ([]model.User, error) {
	return r.users(ctx, func(ctx context.Context, tx repository.Tx) ([]model.User, error) {
		return tx.Users().List(ctx)
	})
}

// Set operations accepted by SpotUserSets.
const (
	SetUnion     = "union"
	SetIntersect = "intersect"
	SetExcept    = "except"
)

// SpotUserSets compares the users who booked spot a with those who booked
// spot b: union (either), intersect (both) or except (a but not b).
// Reservations count in any status and soft-deleted spots still qualify.
// The result is ordered by name.
func (r *AdminReports) SpotUserSets(ctx context.Context, op string, a, b uint64) ([]model.User, error) {
	switch op {
	case SetUnion, SetIntersect, SetExcept:
	default:
		return nil, errs.Validation("op", "op must be one of %s, %s or %s", SetUnion, SetIntersect, SetExcept)
	}
	if a == 0 {
		return nil, errs.Validation("spot_a", "spot_a is required")
	}
	if b == 0 {
		return nil, errs.Validation("spot_b", "spot_b is required")
	}

	var left, right []model.User
	err := r.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		for _, id := range []uint64{a, b} {
			if _, err := tx.Spots().GetByID(ctx, id); err != nil {
				return err
			}
		}
		var err error
		if left, err = tx.Users().BookersOfSpot(ctx, a); err != nil {
			return err
		}
		right, err = tx.Users().BookersOfSpot(ctx, b)
		return err
	})
	if err != nil {
		return nil, err
	}

	inLeft := make(map[uint64]bool, len(left))
	for _, u := range left {
		inLeft[u.ID] = true
	}
	inRight := make(map[uint64]bool, len(right))
	for _, u := range right {
		inRight[u.ID] = true
	}

	out := []model.User{}
	for _, u := range left {
		switch {
		case op == SetIntersect && !inRight[u.ID], op == SetExcept && inRight[u.ID]:
			continue
		}
		out = append(out, u)
	}
	if op == SetUnion {
		for _, u := range right {
			if !inLeft[u.ID] {
				out = append(out, u)
			}
		}
	}
	slices.SortFunc(out, func(x, y model.User) int {
		if c := cmp.Compare(x.Name, y.Name); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	return out, nil
}

func (r *AdminReports) users(ctx context.Context, load func(context.Context, repository.Tx) ([]model.User, error)) ([]model.User, error) {
	var out []model.User
	err := r.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = load(ctx, tx)
		return err
	})
	return out, err
}
