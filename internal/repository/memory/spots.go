package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
)

type spotRepo struct{ st *state }

func (r spotRepo) GetByID(_ context.Context, id uint64) (model.Spot, error) {
	s, ok := r.st.spots[id]
	if !ok {
		return model.Spot{}, errs.NotFound("spot %d not found", id)
	}
	return s, nil
}

// LockByID is GetByID; the store lock already serializes everything.
func (r spotRepo) LockByID(ctx context.Context, id uint64) (model.Spot, error) {
	return r.GetByID(ctx, id)
}

func (r spotRepo) List(_ context.Context, q string) ([]model.Spot, error) {
	out := []model.Spot{}
	for _, s := range r.st.spots {
		if !s.Deleted() && s.Matches(q) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b model.Spot) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r spotRepo) MaxID(context.Context) (uint64, error) {
	var top uint64
	for id := range r.st.spots {
		if id > top {
			top = id
		}
	}
	return top, nil
}

func (r spotRepo) Insert(_ context.Context, s *model.Spot) error {
	if _, ok := r.st.spots[s.ID]; ok {
		return errs.Conflict("spot id %d was taken concurrently, please retry", s.ID)
	}
	s.Features = slices.Clone(s.Features)
	r.st.spots[s.ID] = *s
	return nil
}

func (r spotRepo) live(id uint64) (model.Spot, error) {
	s, ok := r.st.spots[id]
	if !ok || s.Deleted() {
		return model.Spot{}, errs.NotFound("spot %d not found", id)
	}
	return s, nil
}

func (r spotRepo) SetAvailability(_ context.Context, id uint64, available bool) error {
	s, err := r.live(id)
	if err != nil {
		return err
	}
	s.IsAvailable = available
	r.st.spots[id] = s
	return nil
}

func (r spotRepo) SetCapacity(_ context.Context, id uint64, capacity int) error {
	s, err := r.live(id)
	if err != nil {
		return err
	}
	s.Capacity = capacity
	r.st.spots[id] = s
	return nil
}

func (r spotRepo) SetRating(_ context.Context, id uint64, agg model.RatingAggregate) error {
	s, ok := r.st.spots[id]
	if !ok {
		return errs.NotFound("spot %d not found", id)
	}
	s.Rating = agg
	r.st.spots[id] = s
	return nil
}

func (r spotRepo) SoftDelete(_ context.Context, id uint64, at time.Time) error {
	s, err := r.live(id)
	if err != nil {
		return err
	}
	s.DeletedAt = &at
	r.st.spots[id] = s
	return nil
}

func (r spotRepo) CountAvailable(context.Context) (int, error) {
	n := 0
	for _, s := range r.st.spots {
		if !s.Deleted() && s.IsAvailable {
			n++
		}
	}
	return n, nil
}
