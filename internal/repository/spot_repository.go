package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
)

// SpotRepo reads and writes the spots table.
type SpotRepo struct{ q querier }

var _ SpotRepository = (*SpotRepo)(nil)

const spotColumns = `id, name, capacity, features, is_available, image_url,
	rating_avg, rating_count, created_at, deleted_at`

func scanSpot(sc rowScanner) (model.Spot, error) {
	var (
		s        model.Spot
		features string
		deleted  sql.NullTime
	)
	err := sc.Scan(&s.ID, &s.Name, &s.Capacity, &features, &s.IsAvailable, &s.ImageURL,
		&s.Rating.Average, &s.Rating.Count, &s.CreatedAt, &deleted)
	if err != nil {
		return model.Spot{}, err
	}
	s.Features = model.SplitFeatures(features)
	if deleted.Valid {
		t := deleted.Time
		s.DeletedAt = &t
	}
	return s, nil
}

func (r *SpotRepo) GetByID(ctx context.Context, id uint64) (model.Spot, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+spotColumns+` FROM spots WHERE id = ?`, id)
	s, err := scanSpot(row)
	if err != nil {
		return model.Spot{}, notFoundOr(err, fmt.Sprintf("spot %d not found", id))
	}
	return s, nil
}

// LockByID takes an exclusive row lock; concurrent callers for the same
// spot block here until the holding transaction ends.
func (r *SpotRepo) LockByID(ctx context.Context, id uint64) (model.Spot, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+spotColumns+` FROM spots WHERE id = ? FOR UPDATE`, id)
	s, err := scanSpot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Spot{}, errs.NotFound("spot %d not found", id)
		}
		return model.Spot{}, translate(err, "lock spot")
	}
	return s, nil
}

func (r *SpotRepo) List(ctx context.Context, q string) ([]model.Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM spots WHERE deleted_at IS NULL`
	var args []any
	if q = strings.ToLower(strings.TrimSpace(q)); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		query += ` AND (LOWER(name) LIKE ? OR LOWER(features) LIKE ?)`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(err, "list spots")
	}
	defer rows.Close()

	out := []model.Spot{}
	for rows.Next() {
		s, err := scanSpot(rows)
		if err != nil {
			return nil, errs.Wrap(err, "scan spot")
		}
		out = append(out, s)
	}
	return out, errs.Wrap(rows.Err(), "iterate spots")
}

// MaxID reads the highest allocated ID. Two creates racing on the same
// maximum collide on the primary key and the loser gets CONFLICT.
func (r *SpotRepo) MaxID(ctx context.Context) (uint64, error) {
	var id uint64
	err := r.q.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM spots FOR UPDATE`).Scan(&id)
	if err != nil {
		return 0, translate(err, "max spot id")
	}
	return id, nil
}

func (r *SpotRepo) Insert(ctx context.Context, s *model.Spot) error {
	const q = `INSERT INTO spots (id, name, capacity, features, is_available, image_url,
		rating_avg, rating_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, q, s.ID, s.Name, s.Capacity, model.JoinFeatures(s.Features),
		s.IsAvailable, s.ImageURL, s.Rating.Average, s.Rating.Count, s.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return errs.Conflict("spot id %d was taken concurrently, please retry", s.ID)
		}
		return translate(err, "insert spot")
	}
	return nil
}

func (r *SpotRepo) SetAvailability(ctx context.Context, id uint64, available bool) error {
	return r.update(ctx, id, true, `UPDATE spots SET is_available = ? WHERE id = ? AND deleted_at IS NULL`, available, id)
}

func (r *SpotRepo) SetCapacity(ctx context.Context, id uint64, capacity int) error {
	return r.update(ctx, id, true, `UPDATE spots SET capacity = ? WHERE id = ? AND deleted_at IS NULL`, capacity, id)
}

func (r *SpotRepo) SetRating(ctx context.Context, id uint64, agg model.RatingAggregate) error {
	// Deleted spots keep their aggregate current too; review deletions may
	// still arrive after the spot is gone.
	return r.update(ctx, id, false, `UPDATE spots SET rating_avg = ?, rating_count = ? WHERE id = ?`,
		agg.Average, agg.Count, id)
}

func (r *SpotRepo) SoftDelete(ctx context.Context, id uint64, at time.Time) error {
	return r.update(ctx, id, true, `UPDATE spots SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, at, id)
}

// update runs a single-row UPDATE. MySQL reports zero affected rows when
// the new value equals the old one, so a miss is confirmed with a lookup
// before turning it into NOT_FOUND. With liveOnly a soft-deleted spot
// counts as missing.
func (r *SpotRepo) update(ctx context.Context, id uint64, liveOnly bool, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err, "update spot")
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if liveOnly && s.Deleted() {
		return errs.NotFound("spot %d not found", id)
	}
	return nil
}

func (r *SpotRepo) CountAvailable(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM spots WHERE deleted_at IS NULL AND is_available = TRUE`).Scan(&n)
	return n, errs.Wrap(err, "count available spots")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
