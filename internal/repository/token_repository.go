package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
)

// TokenRepo persists refresh tokens (single 'token_hash' column).
type TokenRepo struct{ q querier }

var _ TokenRepository = (*TokenRepo)(nil)

// Store inserts a refresh token hash row.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	if isDuplicate(err) {
		return errs.AlreadyExists("refresh token already stored")
	}
	return translate(err, "store refresh token")
}

// GetByHash loads a token row; callers check RefreshToken.Active.
func (r *TokenRepo) GetByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var (
		t         model.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.q.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, revoked_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revokedAt, &t.CreatedAt)
	if err != nil {
		return model.RefreshToken{}, notFoundOr(err, "refresh token not found")
	}
	if revokedAt.Valid {
		at := revokedAt.Time
		t.RevokedAt = &at
	}
	return t, nil
}

// Revoke marks a token as revoked. Revoking twice is a no-op.
func (r *TokenRepo) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL",
		at, tokenHash)
	return translate(err, "revoke refresh token")
}
