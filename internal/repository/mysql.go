package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// MySQLStore implements UnitOfWork on top of InnoDB transactions. The spot
// row lock taken by SpotRepo.LockByID (SELECT ... FOR UPDATE) is what
// serializes concurrent bookings of the same spot.
type MySQLStore struct {
	DB *sql.DB
}

// Units of work run under READ COMMITTED so that reads made after
// SpotRepo.LockByID see everything the previous lock holder committed.
var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{DB: db} }

var _ UnitOfWork = (*MySQLStore)(nil)

// Within begins a transaction, runs fn and commits. Any error from fn, or a
// panic, rolls the transaction back.
func (s *MySQLStore) Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, txOptions)
	if err != nil {
		return errs.Wrap(err, "begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, sqlTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate(err, "commit transaction")
	}
	committed = true
	return nil
}

type sqlTx struct{ q querier }

func (t sqlTx) Spots() SpotRepository               { return &SpotRepo{q: t.q} }
func (t sqlTx) Reservations() ReservationRepository { return &ReservationRepo{q: t.q} }
func (t sqlTx) Reviews() ReviewRepository           { return &ReviewRepo{q: t.q} }
func (t sqlTx) Users() UserRepository               { return &UserRepo{q: t.q} }
func (t sqlTx) Tokens() TokenRepository             { return &TokenRepo{q: t.q} }
