package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
)

type reservationRepo struct{ st *state }

func (r reservationRepo) Insert(_ context.Context, res *model.Reservation) error {
	// Mirror the foreign keys of the SQL schema.
	if _, ok := r.st.spots[res.SpotID]; !ok {
		return errs.NotFound("insert reservation: spot %d does not exist", res.SpotID)
	}
	if _, ok := r.st.users[res.UserID]; !ok {
		return errs.NotFound("insert reservation: user %d does not exist", res.UserID)
	}
	r.st.lastReservation++
	res.ID = r.st.lastReservation
	r.st.reservations[res.ID] = *res
	return nil
}

func (r reservationRepo) GetByID(_ context.Context, id uint64) (model.Reservation, error) {
	res, ok := r.st.reservations[id]
	if !ok {
		return model.Reservation{}, errs.NotFound("reservation %d not found", id)
	}
	return res, nil
}

// LockByID is GetByID; the store lock already serializes everything.
func (r reservationRepo) LockByID(ctx context.Context, id uint64) (model.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r reservationRepo) UpdateStatus(_ context.Context, id uint64, status model.ReservationStatus) error {
	res, ok := r.st.reservations[id]
	if !ok {
		return errs.NotFound("reservation %d not found", id)
	}
	res.Status = status
	r.st.reservations[id] = res
	return nil
}

func (r reservationRepo) ListHolding(_ context.Context, spotID uint64, seat int, start, end time.Time) ([]model.Reservation, error) {
	out := r.filter(func(res model.Reservation) bool {
		return res.SpotID == spotID &&
			res.Status.Holds() &&
			(seat == 0 || res.SeatNumber == seat) &&
			res.Overlaps(start, end)
	})
	slices.SortFunc(out, func(a, b model.Reservation) int {
		if c := cmp.Compare(a.SeatNumber, b.SeatNumber); c != 0 {
			return c
		}
		return a.Start.Compare(b.Start)
	})
	return out, nil
}

func (r reservationRepo) ListActiveBySpot(_ context.Context, spotID uint64, now time.Time) ([]model.Reservation, error) {
	out := r.filter(func(res model.Reservation) bool {
		return res.SpotID == spotID && res.Status == model.StatusActive && res.End.After(now)
	})
	slices.SortFunc(out, func(a, b model.Reservation) int { return a.Start.Compare(b.Start) })
	return out, nil
}

func (r reservationRepo) CountActive(_ context.Context, now time.Time) (int, error) {
	return len(r.filter(func(res model.Reservation) bool {
		return res.Status == model.StatusActive && res.End.After(now)
	})), nil
}

func (r reservationRepo) ListByUser(_ context.Context, userID uint64) ([]model.ReservationView, error) {
	return r.views(func(res model.Reservation) bool { return res.UserID == userID }), nil
}

func (r reservationRepo) ListBySpot(_ context.Context, spotID uint64) ([]model.ReservationView, error) {
	return r.views(func(res model.Reservation) bool { return res.SpotID == spotID }), nil
}

func (r reservationRepo) ListAll(context.Context) ([]model.ReservationView, error) {
	return r.views(func(model.Reservation) bool { return true }), nil
}

func (r reservationRepo) filter(keep func(model.Reservation) bool) []model.Reservation {
	out := []model.Reservation{}
	for _, res := range r.st.reservations {
		if keep(res) {
			out = append(out, res)
		}
	}
	return out
}

func (r reservationRepo) views(keep func(model.Reservation) bool) []model.ReservationView {
	reviewed := map[uint64]bool{}
	for _, rv := range r.st.reviews {
		reviewed[rv.ReservationID] = true
	}
	out := []model.ReservationView{}
	for _, res := range r.filter(keep) {
		spot := r.st.spots[res.SpotID]
		out = append(out, model.ReservationView{
			Reservation:     res,
			EffectiveStatus: res.Status,
			SpotName:        spot.Name,
			SpotImageURL:    spot.ImageURL,
			UserName:        r.st.users[res.UserID].Name,
			HasReviewed:     reviewed[res.ID],
		})
	}
	// start time DESC, then id DESC
	slices.SortFunc(out, func(a, b model.ReservationView) int {
		if c := b.Start.Compare(a.Start); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}
