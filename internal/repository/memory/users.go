package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
)

type userRepo struct{ st *state }

func (r userRepo) Create(_ context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range r.st.users {
		if existing.Email == u.Email {
			return errs.AlreadyExists("email %s is already registered", u.Email)
		}
	}
	r.st.lastUser++
	u.ID = r.st.lastUser
	r.st.users[u.ID] = *u
	return nil
}

func (r userRepo) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return model.User{}, errs.NotFound("user %d not found", id)
	}
	return u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, errs.NotFound("user not found")
}

func (r userRepo) List(context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(r.st.users))
	for _, u := range r.st.users {
		out = append(out, withoutHash(u))
	}
	slices.SortFunc(out, func(a, b model.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r userRepo) UpdateProfile(_ context.Context, id uint64, name, passwordHash string) error {
	u, ok := r.st.users[id]
	if !ok {
		return errs.NotFound("user %d not found", id)
	}
	u.Name = name
	if passwordHash != "" {
		u.PasswordHash = passwordHash
	}
	r.st.users[id] = u
	return nil
}

func (r userRepo) CountByRole(_ context.Context, role string) (int, error) {
	n := 0
	for _, u := range r.st.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r userRepo) StudentsWithoutReservations(context.Context) ([]model.User, error) {
	booked := map[uint64]bool{}
	for _, res := range r.st.reservations {
		booked[res.UserID] = true
	}
	out := []model.User{}
	for _, u := range r.st.users {
		if u.Role == model.RoleStudent && !booked[u.ID] {
			out = append(out, withoutHash(u))
		}
	}
	sortByName(out)
	return out, nil
}

func (r userRepo) BookersOfSpot(_ context.Context, spotID uint64) ([]model.User, error) {
	booked := map[uint64]bool{}
	for _, res := range r.st.reservations {
		if res.SpotID == spotID {
			booked[res.UserID] = true
		}
	}
	out := []model.User{}
	for id := range booked {
		if u, ok := r.st.users[id]; ok {
			out = append(out, withoutHash(u))
		}
	}
	sortByName(out)
	return out, nil
}

// withoutHash matches the SQL listings, which never select password hashes.
func withoutHash(u model.User) model.User {
	u.PasswordHash = ""
	return u
}

func sortByName(users []model.User) {
	slices.SortFunc(users, func(a, b model.User) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

type tokenRepo struct{ st *state }

func (r tokenRepo) Store(_ context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	if _, ok := r.st.tokens[tokenHash]; ok {
		return errs.AlreadyExists("refresh token already stored")
	}
	r.st.lastToken++
	r.st.tokens[tokenHash] = model.RefreshToken{
		ID:        r.st.lastToken,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	return nil
}

func (r tokenRepo) GetByHash(_ context.Context, tokenHash string) (model.RefreshToken, error) {
	t, ok := r.st.tokens[tokenHash]
	if !ok {
		return model.RefreshToken{}, errs.NotFound("refresh token not found")
	}
	return t, nil
}

func (r tokenRepo) Revoke(_ context.Context, tokenHash string, at time.Time) error {
	t, ok := r.st.tokens[tokenHash]
	if !ok || t.RevokedAt != nil {
		return nil
	}
	t.RevokedAt = &at
	r.st.tokens[tokenHash] = t
	return nil
}
