package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
)

// UserRepo reads and writes the users table. Emails are stored lower-cased.
type UserRepo struct{ q querier }

var _ UserRepository = (*UserRepo)(nil)

const userColumns = `id, name, email, password_hash, role, created_at`

// Create inserts u and sets its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, created_at) VALUES (?,?,?,?,?)",
		u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return errs.AlreadyExists("email %s is already registered", u.Email)
		}
		return translate(err, "insert user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.Wrap(err, "user id")
	}
	u.ID = uint64(id)
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return model.User{}, notFoundOr(err, fmt.Sprintf("user %d not found", id))
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return model.User{}, notFoundOr(err, "user not found")
	}
	return u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	return queryUsers(ctx, r.q,
		"SELECT id, name, email, role, created_at FROM users ORDER BY created_at DESC, id DESC")
}

// UpdateProfile sets the name and, when passwordHash is non-empty, the
// password.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, passwordHash string) error {
	query := "UPDATE users SET name=?"
	args := []any{name}
	if passwordHash != "" {
		query += ", password_hash=?"
		args = append(args, passwordHash)
	}
	query += " WHERE id=?"
	args = append(args, id)
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "update profile")
	}
	// Zero affected rows also means "unchanged" in MySQL; confirm existence.
	_, err := r.GetByID(ctx, id)
	return err
}

func (r *UserRepo) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role=?", role).Scan(&n)
	return n, errs.Wrap(err, "count users")
}

func (r *UserRepo) StudentsWithoutReservations(ctx context.Context) ([]model.User, error) {
	return queryUsers(ctx, r.q, `SELECT u.id, u.name, u.email, u.role, u.created_at
		FROM users u
		WHERE u.role = ? AND NOT EXISTS (SELECT 1 FROM reservations r WHERE r.user_id = u.id)
		ORDER BY u.name, u.id`, model.RoleStudent)
}

func (r *UserRepo) BookersOfSpot(ctx context.Context, spotID uint64) ([]model.User, error) {
	return queryUsers(ctx, r.q, `SELECT u.id, u.name, u.email, u.role, u.created_at
		FROM users u
		WHERE EXISTS (SELECT 1 FROM reservations r WHERE r.user_id = u.id AND r.spot_id = ?)
		ORDER BY u.name, u.id`, spotID)
}

// queryUsers scans id, name, email, role, created_at rows. Password hashes
// are never selected for listings.
func queryUsers(ctx context.Context, q querier, query string, args ...any) ([]model.User, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list users")
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, errs.Wrap(err, "scan user")
		}
		out = append(out, u)
	}
	return out, errs.Wrap(rows.Err(), "iterate users")
}
