package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

const maxBackoff = 30 * time.Second

// Consumer appends every event on the queue to an audit log, one line per
// event.
type Consumer struct {
	url   string
	queue string
	log   *slog.Logger

	mu   sync.Mutex
	sink io.Writer
}

func NewConsumer(url, queue string, sink io.Writer, log *slog.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, sink: sink, log: log}
}

// OpenAuditLog opens path for appending, creating the parent directory.
func OpenAuditLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create audit log directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open audit log")
	}
	return f, nil
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff whenever the broker connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err == nil {
			backoff = time.Second
			err = c.consume(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		c.log.WarnContext(ctx, "event consumer disconnected",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open channel")
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		return errors.Wrap(err, "set qos")
	}
	if err := declareQueue(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "consume")
	}
	c.log.InfoContext(ctx, "event consumer started", slog.String("queue", c.queue))

	for d := range msgs {
		if err := c.Handle(d.Body); err != nil {
			c.log.ErrorContext(ctx, "handle event failed",
				slog.String("message_id", d.MessageId),
				slog.String("error", err.Error()))
			// Do not requeue; a malformed body would loop forever.
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// Handle decodes one message body and writes its audit line.
func (c *Consumer) Handle(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return errors.Wrap(err, "unmarshal event")
	}
	line, err := AuditLine(ev)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.sink, line); err != nil {
		return errors.Wrap(err, "write audit log")
	}
	return nil
}

// AuditLine renders ev as a single human-readable line ending in "\n".
func AuditLine(ev Event) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | id=%s", ev.OccurredAt, ev.Type, ev.ID)
	switch {
	case ev.Reservation != nil:
		r := ev.Reservation
		fmt.Fprintf(&b, " | reservation_id=%d | user_id=%d | spot_id=%d | seat=%d | start=%s | end=%s",
			r.ReservationID, r.UserID, r.SpotID, r.SeatNumber, r.Start, r.End)
	case ev.Review != nil:
		r := ev.Review
		fmt.Fprintf(&b, " | review_id=%d | reservation_id=%d | user_id=%d | spot_id=%d | rating=%d | spot_rating=%.1f (%d)",
			r.ReviewID, r.ReservationID, r.UserID, r.SpotID, r.Rating, r.SpotAverage, r.SpotCount)
	case ev.Spot != nil:
		fmt.Fprintf(&b, " | spot_id=%d | name=%q", ev.Spot.SpotID, ev.Spot.Name)
	default:
		return "", errors.Newf("event %s has no payload", ev.ID)
	}
	b.WriteByte('\n')
	return b.String(), nil
}
