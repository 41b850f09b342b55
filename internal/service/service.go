// Package service holds the reservation core: spot registry, availability
// resolution, reservation admission, review aggregation and the admin
// reports built on top of them. Services never talk to MySQL directly;
// they run their reads and writes inside repository.UnitOfWork so the same
// code drives the MySQL store and the in-memory store.
package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/queue"
)

// EventPublisher emits domain events after a unit of work has committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.Event) error { return nil }

// publish is best effort: the write it reports is already committed, so a
// broker failure is logged and never returned to the caller.
func publish(ctx context.Context, p EventPublisher, log *slog.Logger, ev queue.Event) {
	if err := p.Publish(ctx, ev); err != nil {
		log.WarnContext(ctx, "publish event failed",
			slog.String("event_type", ev.Type),
			slog.String("event_id", ev.ID),
			slog.String("error", errs.Detail(err)))
	}
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

func orNop(p EventPublisher) EventPublisher {
	if p == nil {
		return NopPublisher{}
	}
	return p
}
