package service_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/study-spot-reservation/internal/clock"
	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/repository"
	"github.com/iliyamo/study-spot-reservation/internal/service"
)

var (
	sqlSpotCols        = []string{"id", "name", "capacity", "features", "is_available", "image_url", "rating_avg", "rating_count", "created_at", "deleted_at"}
	sqlReservationCols = []string{"id", "user_id", "spot_id", "seat_number", "start_time", "end_time", "status", "created_at"}
)

func newSQLMockStore(t *testing.T) (*repository.MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return repository.NewMySQLStore(db), mock
}

// A cancel that waited on the spot lock must see the status written by the
// cancel that held it, and must not publish a second event.
func TestReservationService_Cancel_SeesCommittedCancelAfterLock(t *testing.T) {
	store, mock := newSQLMockStore(t)
	events := &recordingPublisher{}
	svc := service.NewReservationService(store, clock.NewFixed(at(9, 0)), events, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations r WHERE r.id = ?")).WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(sqlReservationCols).
			AddRow(11, 5, 3, 1, at(14, 0), at(15, 0), "ACTIVE", at(8, 0)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM spots WHERE id = ? FOR UPDATE")).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(sqlSpotCols).
			AddRow(3, "Library Hall", 4, "", true, "img.png", 0.0, 0, at(8, 0), nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations r WHERE r.id = ? FOR UPDATE")).WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(sqlReservationCols).
			AddRow(11, 5, 3, 1, at(14, 0), at(15, 0), "CANCELLED", at(8, 0)))
	mock.ExpectRollback()

	err := svc.Cancel(context.Background(), 11, model.Actor{UserID: 5, Role: model.RoleStudent})

	require.ErrorIs(t, err, errs.ErrFailedPrecondition)
	require.Empty(t, events.types())
}

// The aggregate is recomputed from ratings read after the spot lock, so a
// review committed by the previous lock holder is counted.
func TestReviewAggregator_Submit_RecomputesAfterLock(t *testing.T) {
	store, mock := newSQLMockStore(t)
	events := &recordingPublisher{}
	agg := service.NewReviewAggregator(store, clock.NewFixed(at(17, 0)), events, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations r WHERE r.id = ?")).WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(sqlReservationCols).
			AddRow(11, 5, 3, 1, at(14, 0), at(15, 0), "ACTIVE", at(8, 0)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM spots WHERE id = ? FOR UPDATE")).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(sqlSpotCols).
			AddRow(3, "Library Hall", 4, "", true, "img.png", 5.0, 1, at(8, 0), nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations r WHERE r.id = ? FOR UPDATE")).WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(sqlReservationCols).
			AddRow(11, 5, 3, 1, at(14, 0), at(15, 0), "ACTIVE", at(8, 0)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM reviews WHERE reservation_id = ?)")).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reviews")).
		WillReturnResult(sqlmock.NewResult(22, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT rating FROM reviews WHERE spot_id = ?")).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"rating"}).AddRow(5).AddRow(4).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE spots SET rating_avg = ?, rating_count = ? WHERE id = ?")).
		WithArgs(3.7, 3, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rv, err := agg.Submit(context.Background(), service.SubmitReviewInput{
		UserID: 5, SpotID: 3, ReservationID: 11, Rating: 2,
	})

	require.NoError(t, err)
	require.Equal(t, uint64(22), rv.ID)
	require.Equal(t, []string{"review.submitted"}, events.types())
}
