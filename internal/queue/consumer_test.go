package queue_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/queue"
)

var at = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func TestAuditLine(t *testing.T) {
	res := model.Reservation{
		ID: 7, UserID: 2, SpotID: 3, SeatNumber: 4,
		Start: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	ev := queue.NewReservationEvent(queue.ReservationCreated, res, at)
	ev.ID = "evt-1"

	line, err := queue.AuditLine(ev)

	require.NoError(t, err)
	require.Equal(t,
		"[2024-05-01T09:30:00] reservation.created | id=evt-1 | reservation_id=7 | user_id=2 | spot_id=3 | seat=4 | start=2024-05-01T10:00:00 | end=2024-05-01T12:00:00\n",
		line)
}

func TestAuditLine_review(t *testing.T) {
	rv := model.Review{ID: 1, ReservationID: 7, UserID: 2, SpotID: 3, Rating: 5}
	ev := queue.NewReviewEvent(queue.ReviewSubmitted, rv, model.RatingAggregate{Average: 4.5, Count: 2}, at)
	ev.ID = "evt-2"

	line, err := queue.AuditLine(ev)

	require.NoError(t, err)
	require.Contains(t, line, "rating=5 | spot_rating=4.5 (2)")
}

func TestAuditLine_noPayload(t *testing.T) {
	_, err := queue.AuditLine(queue.Event{ID: "evt-3", Type: queue.SpotDeleted})
	require.Error(t, err)
}

func TestConsumerHandle(t *testing.T) {
	var buf bytes.Buffer
	c := queue.NewConsumer("amqp://unused", "events", &buf, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ev := queue.NewSpotEvent(queue.SpotDeleted, model.Spot{ID: 3, Name: "Quiet Room"}, at)
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, c.Handle(body))
	require.Contains(t, buf.String(), `spot.deleted | id=`+ev.ID+` | spot_id=3 | name="Quiet Room"`)

	require.Error(t, c.Handle([]byte("{not json")))
}

func TestOpenAuditLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.log")

	f, err := queue.OpenAuditLog(path)
	require.NoError(t, err)
	_, err = f.WriteString("line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "line\n", string(data))
}
