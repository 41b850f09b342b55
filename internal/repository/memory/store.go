// Package memory is an in-process implementation of the repository
// contracts. A single store-wide mutex serializes units of work, which is a
// stronger guarantee than the per-spot lock the contracts require. It backs
// the service tests and the STORAGE_DRIVER=memory mode.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/repository"
)

type state struct {
	spots        map[uint64]model.Spot
	reservations map[uint64]model.Reservation
	reviews      map[uint64]model.Review
	users        map[uint64]model.User
	tokens       map[string]model.RefreshToken

	lastReservation uint64
	lastReview      uint64
	lastUser        uint64
	lastToken       uint64
}

func newState() *state {
	return &state{
		spots:        map[uint64]model.Spot{},
		reservations: map[uint64]model.Reservation{},
		reviews:      map[uint64]model.Review{},
		users:        map[uint64]model.User{},
		tokens:       map[string]model.RefreshToken{},
	}
}

// clone copies the maps; the values are plain structs, and the only
// pointer and slice fields (DeletedAt, RevokedAt, Features) are replaced
// rather than mutated in place.
func (s *state) clone() *state {
	c := *s
	c.spots = maps.Clone(s.spots)
	c.reservations = maps.Clone(s.reservations)
	c.reviews = maps.Clone(s.reviews)
	c.users = maps.Clone(s.users)
	c.tokens = maps.Clone(s.tokens)
	return &c
}

// Store implements repository.UnitOfWork in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store { return &Store{st: newState()} }

var _ repository.UnitOfWork = (*Store)(nil)

// Within runs fn with the store locked. The state is snapshotted first and
// restored if fn fails or panics.
func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
	}()

	if err := fn(ctx, &tx{st: s.st}); err != nil {
		return err
	}
	committed = true
	return nil
}

type tx struct{ st *state }

func (t *tx) Spots() repository.SpotRepository               { return spotRepo{t.st} }
func (t *tx) Reservations() repository.ReservationRepository { return reservationRepo{t.st} }
func (t *tx) Reviews() repository.ReviewRepository           { return reviewRepo{t.st} }
func (t *tx) Users() repository.UserRepository               { return userRepo{t.st} }
func (t *tx) Tokens() repository.TokenRepository             { return tokenRepo{t.st} }
