package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
)

type reviewRepo struct{ st *state }

func (r reviewRepo) Insert(_ context.Context, rv *model.Review) error {
	for _, existing := range r.st.reviews {
		if existing.ReservationID == rv.ReservationID {
			return errs.AlreadyExists("reservation %d has already been reviewed", rv.ReservationID)
		}
	}
	if _, ok := r.st.reservations[rv.ReservationID]; !ok {
		return errs.NotFound("insert review: reservation %d does not exist", rv.ReservationID)
	}
	r.st.lastReview++
	rv.ID = r.st.lastReview
	r.st.reviews[rv.ID] = *rv
	return nil
}

func (r reviewRepo) GetByID(_ context.Context, id uint64) (model.Review, error) {
	rv, ok := r.st.reviews[id]
	if !ok {
		return model.Review{}, errs.NotFound("review %d not found", id)
	}
	return rv, nil
}

func (r reviewRepo) ExistsForReservation(_ context.Context, reservationID uint64) (bool, error) {
	for _, rv := range r.st.reviews {
		if rv.ReservationID == reservationID {
			return true, nil
		}
	}
	return false, nil
}

func (r reviewRepo) Delete(_ context.Context, id uint64) error {
	if _, ok := r.st.reviews[id]; !ok {
		return errs.NotFound("review %d not found", id)
	}
	delete(r.st.reviews, id)
	return nil
}

func (r reviewRepo) RatingsBySpot(_ context.Context, spotID uint64) ([]int, error) {
	ids := []uint64{}
	for id, rv := range r.st.reviews {
		if rv.SpotID == spotID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.st.reviews[id].Rating)
	}
	return out, nil
}

func (r reviewRepo) ListBySpot(_ context.Context, spotID uint64) ([]model.ReviewView, error) {
	return r.views(func(rv model.Review) bool { return rv.SpotID == spotID }), nil
}

func (r reviewRepo) ListAll(context.Context) ([]model.ReviewView, error) {
	return r.views(func(model.Review) bool { return true }), nil
}

func (r reviewRepo) views(keep func(model.Review) bool) []model.ReviewView {
	out := []model.ReviewView{}
	for _, rv := range r.st.reviews {
		if !keep(rv) {
			continue
		}
		out = append(out, model.ReviewView{
			Review:   rv,
			UserName: r.st.users[rv.UserID].Name,
			SpotName: r.st.spots[rv.SpotID].Name,
		})
	}
	slices.SortFunc(out, func(a, b model.ReviewView) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func (r reviewRepo) SiteAverage(context.Context) (float64, error) {
	if len(r.st.reviews) == 0 {
		return 0, nil
	}
	sum := 0
	for _, rv := range r.st.reviews {
		sum += rv.Rating
	}
	return float64(sum) / float64(len(r.st.reviews)), nil
}

func (r reviewRepo) ReviewersOfMultipleSpots(context.Context) ([]model.User, error) {
	spotsByUser := map[uint64]map[uint64]struct{}{}
	for _, rv := range r.st.reviews {
		if spotsByUser[rv.UserID] == nil {
			spotsByUser[rv.UserID] = map[uint64]struct{}{}
		}
		spotsByUser[rv.UserID][rv.SpotID] = struct{}{}
	}
	out := []model.User{}
	for userID, spots := range spotsByUser {
		if len(spots) > 1 {
			if u, ok := r.st.users[userID]; ok {
				out = append(out, withoutHash(u))
			}
		}
	}
	sortByName(out)
	return out, nil
}
