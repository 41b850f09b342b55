package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
)

// ReviewRepo reads and writes the reviews table. reviews.reservation_id is
// UNIQUE, which backs the one-review-per-reservation rule even if two
// submissions race.
type ReviewRepo struct{ q querier }

var _ ReviewRepository = (*ReviewRepo)(nil)

const reviewColumns = `rv.id, rv.reservation_id, rv.user_id, rv.spot_id, rv.rating, rv.comment, rv.created_at`

func scanReview(sc rowScanner, extra ...any) (model.Review, error) {
	var (
		rv      model.Review
		comment sql.NullString
	)
	dest := append([]any{&rv.ID, &rv.ReservationID, &rv.UserID, &rv.SpotID,
		&rv.Rating, &comment, &rv.CreatedAt}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return model.Review{}, err
	}
	rv.Comment = comment.String
	return rv, nil
}

func (r *ReviewRepo) Insert(ctx context.Context, rv *model.Review) error {
	const q = `INSERT INTO reviews (reservation_id, user_id, spot_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	var comment sql.NullString
	if rv.Comment != "" {
		comment = sql.NullString{String: rv.Comment, Valid: true}
	}
	result, err := r.q.ExecContext(ctx, q, rv.ReservationID, rv.UserID, rv.SpotID, rv.Rating, comment, rv.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return errs.AlreadyExists("reservation %d has already been reviewed", rv.ReservationID)
		}
		return translate(err, "insert review")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return errs.Wrap(err, "review id")
	}
	rv.ID = uint64(id)
	return nil
}

func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews rv WHERE rv.id = ?`, id)
	rv, err := scanReview(row)
	if err != nil {
		return model.Review{}, notFoundOr(err, fmt.Sprintf("review %d not found", id))
	}
	return rv, nil
}

func (r *ReviewRepo) ExistsForReservation(ctx context.Context, reservationID uint64) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE reservation_id = ?)`, reservationID).Scan(&exists)
	return exists, errs.Wrap(err, "review exists")
}

func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return translate(err, "delete review")
	}
	return affectedOrNotFound(res, fmt.Sprintf("review %d not found", id))
}

func (r *ReviewRepo) RatingsBySpot(ctx context.Context, spotID uint64) ([]int, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT rating FROM reviews WHERE spot_id = ? ORDER BY id`, spotID)
	if err != nil {
		return nil, translate(err, "list ratings")
	}
	defer rows.Close()

	out := []int{}
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, errs.Wrap(err, "scan rating")
		}
		out = append(out, rating)
	}
	return out, errs.Wrap(rows.Err(), "iterate ratings")
}

const reviewViewQuery = `SELECT ` + reviewColumns + `, u.name, s.name
	FROM reviews rv
	JOIN users u ON u.id = rv.user_id
	JOIN spots s ON s.id = rv.spot_id`

func (r *ReviewRepo) ListBySpot(ctx context.Context, spotID uint64) ([]model.ReviewView, error) {
	return r.listViews(ctx, reviewViewQuery+` WHERE rv.spot_id = ? ORDER BY rv.created_at DESC, rv.id DESC`, spotID)
}

func (r *ReviewRepo) ListAll(ctx context.Context) ([]model.ReviewView, error) {
	return r.listViews(ctx, reviewViewQuery+` ORDER BY rv.created_at DESC, rv.id DESC`)
}

func (r *ReviewRepo) listViews(ctx context.Context, query string, args ...any) ([]model.ReviewView, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list reviews")
	}
	defer rows.Close()

	out := []model.ReviewView{}
	for rows.Next() {
		var v model.ReviewView
		rv, err := scanReview(rows, &v.UserName, &v.SpotName)
		if err != nil {
			return nil, errs.Wrap(err, "scan review")
		}
		v.Review = rv
		out = append(out, v)
	}
	return out, errs.Wrap(rows.Err(), "iterate reviews")
}

func (r *ReviewRepo) SiteAverage(ctx context.Context) (float64, error) {
	var avg sql.NullFloat64
	err := r.q.QueryRowContext(ctx, `SELECT AVG(rating) FROM reviews`).Scan(&avg)
	if err != nil {
		return 0, errs.Wrap(err, "site average")
	}
	return avg.Float64, nil
}

func (r *ReviewRepo) ReviewersOfMultipleSpots(ctx context.Context) ([]model.User, error) {
	const q = `SELECT u.id, u.name, u.email, u.role, u.created_at
		FROM users u
		JOIN reviews rv ON rv.user_id = u.id
		GROUP BY u.id, u.name, u.email, u.role, u.created_at
		HAVING COUNT(DISTINCT rv.spot_id) > 1
		ORDER BY u.name, u.id`
	return queryUsers(ctx, r.q, q)
}
