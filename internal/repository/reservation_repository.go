package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
)

// ReservationRepo reads and writes the reservations table. Times are stored
// as DATETIME in the service location; the driver's loc parameter keeps the
// round trip lossless.
type ReservationRepo struct{ q querier }

var _ ReservationRepository = (*ReservationRepo)(nil)

const reservationColumns = `r.id, r.user_id, r.spot_id, r.seat_number, r.start_time, r.end_time, r.status, r.created_at`

func scanReservation(sc rowScanner, extra ...any) (model.Reservation, error) {
	var (
		res    model.Reservation
		status string
	)
	dest := append([]any{&res.ID, &res.UserID, &res.SpotID, &res.SeatNumber,
		&res.Start, &res.End, &status, &res.CreatedAt}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return model.Reservation{}, err
	}
	res.Status = model.ReservationStatus(status)
	return res, nil
}

func (r *ReservationRepo) Insert(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, spot_id, seat_number, start_time, end_time, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.q.ExecContext(ctx, q, res.UserID, res.SpotID, res.SeatNumber,
		res.Start, res.End, string(res.Status), res.CreatedAt)
	if err != nil {
		return translate(err, "insert reservation")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return errs.Wrap(err, "reservation id")
	}
	res.ID = uint64(id)
	return nil
}

func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = ?`, id)
	res, err := scanReservation(row)
	if err != nil {
		return model.Reservation{}, notFoundOr(err, fmt.Sprintf("reservation %d not found", id))
	}
	return res, nil
}

func (r *ReservationRepo) LockByID(ctx context.Context, id uint64) (model.Reservation, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = ? FOR UPDATE`, id)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, errs.NotFound("reservation %d not found", id)
		}
		return model.Reservation{}, translate(err, "lock reservation")
	}
	return res, nil
}

func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus) error {
	res, err := r.q.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return translate(err, "update reservation status")
	}
	return affectedOrNotFound(res, fmt.Sprintf("reservation %d not found", id))
}

// ListHolding uses the (spot_id, seat_number, start_time) index; the
// overlap predicate is the half-open test start < :end AND end > :start.
func (r *ReservationRepo) ListHolding(ctx context.Context, spotID uint64, seat int, start, end time.Time) ([]model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r
		WHERE r.spot_id = ? AND r.status IN ('ACTIVE', 'COMPLETED')
		AND r.start_time < ? AND r.end_time > ?`
	args := []any{spotID, end, start}
	if seat > 0 {
		query += ` AND r.seat_number = ?`
		args = append(args, seat)
	}
	query += ` ORDER BY r.seat_number, r.start_time`
	return r.list(ctx, query, args...)
}

func (r *ReservationRepo) ListActiveBySpot(ctx context.Context, spotID uint64, now time.Time) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations r
		WHERE r.spot_id = ? AND r.status = 'ACTIVE' AND r.end_time > ?
		ORDER BY r.start_time`, spotID, now)
}

func (r *ReservationRepo) CountActive(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE status = 'ACTIVE' AND end_time > ?`, now).Scan(&n)
	return n, errs.Wrap(err, "count active reservations")
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list reservations")
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, errs.Wrap(err, "scan reservation")
		}
		out = append(out, res)
	}
	return out, errs.Wrap(rows.Err(), "iterate reservations")
}

const reservationViewQuery = `SELECT ` + reservationColumns + `,
		s.name, s.image_url, u.name, (rv.id IS NOT NULL)
	FROM reservations r
	JOIN spots s ON s.id = r.spot_id
	JOIN users u ON u.id = r.user_id
	LEFT JOIN reviews rv ON rv.reservation_id = r.id`

func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.ReservationView, error) {
	return r.listViews(ctx, reservationViewQuery+` WHERE r.user_id = ? ORDER BY r.start_time DESC, r.id DESC`, userID)
}

func (r *ReservationRepo) ListBySpot(ctx context.Context, spotID uint64) ([]model.ReservationView, error) {
	return r.listViews(ctx, reservationViewQuery+` WHERE r.spot_id = ? ORDER BY r.start_time DESC, r.id DESC`, spotID)
}

func (r *ReservationRepo) ListAll(ctx context.Context) ([]model.ReservationView, error) {
	return r.listViews(ctx, reservationViewQuery+` ORDER BY r.start_time DESC, r.id DESC`)
}

func (r *ReservationRepo) listViews(ctx context.Context, query string, args ...any) ([]model.ReservationView, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list reservation views")
	}
	defer rows.Close()

	out := []model.ReservationView{}
	for rows.Next() {
		var v model.ReservationView
		res, err := scanReservation(rows, &v.SpotName, &v.SpotImageURL, &v.UserName, &v.HasReviewed)
		if err != nil {
			return nil, errs.Wrap(err, "scan reservation view")
		}
		v.Reservation = res
		v.EffectiveStatus = res.Status
		out = append(out, v)
	}
	return out, errs.Wrap(rows.Err(), "iterate reservation views")
}
