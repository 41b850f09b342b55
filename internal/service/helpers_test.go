package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/study-spot-reservation/internal/clock"
	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/queue"
	"github.com/iliyamo/study-spot-reservation/internal/repository"
	"github.com/iliyamo/study-spot-reservation/internal/repository/memory"
	"github.com/iliyamo/study-spot-reservation/internal/service"
)

// ---- fakes -----------------------------------------------------------------

// recordingPublisher keeps every published event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// compile-time check: recordingPublisher must satisfy service.EventPublisher.
var _ service.EventPublisher = (*recordingPublisher)(nil)

// ---- fixture ---------------------------------------------------------------

// day is the "today" of every test: 1 May 2024, 09:00.
var day = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// at returns hh:mm on the test day.
func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type fixture struct {
	store   *memory.Store
	clock   *clock.Fixed
	events  *recordingPublisher
	spots   *service.SpotRegistry
	avail   *service.AvailabilityResolver
	res     *service.ReservationService
	reviews *service.ReviewAggregator
	reports *service.AdminReports
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewStore(),
		clock:  clock.NewFixed(at(9, 0)),
		events: &recordingPublisher{},
	}
	f.spots = service.NewSpotRegistry(f.store, f.clock, f.events, nil)
	f.avail = service.NewAvailabilityResolver(f.store)
	f.res = service.NewReservationService(f.store, f.clock, f.events, nil)
	f.reviews = service.NewReviewAggregator(f.store, f.clock, f.events, nil)
	f.reports = service.NewAdminReports(f.store, f.clock)
	return f
}

func (f *fixture) seedUser(t *testing.T, name, role string) model.User {
	t.Helper()
	u := model.User{Name: name, Email: name + "@example.com", PasswordHash: "x", Role: role, CreatedAt: f.clock.Now()}
	err := f.store.Within(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Users().Create(ctx, &u)
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) seedSpot(t *testing.T, name string, capacity int, features ...string) model.Spot {
	t.Helper()
	s, err := f.spots.Create(context.Background(), service.SpotInput{Name: name, Capacity: capacity, Features: features})
	require.NoError(t, err)
	return s
}

func (f *fixture) book(t *testing.T, user model.User, spot model.Spot, seat int, start, end time.Time) model.Reservation {
	t.Helper()
	r, err := f.res.Create(context.Background(), service.CreateReservationInput{
		UserID: user.ID, SpotID: spot.ID, SeatNumber: seat, Start: start, End: end,
	})
	require.NoError(t, err)
	return r
}

// completed books a slot that ends before "now" by moving the clock back
// for the booking and restoring it afterwards.
func (f *fixture) completed(t *testing.T, user model.User, spot model.Spot, seat int, start, end time.Time) model.Reservation {
	t.Helper()
	now := f.clock.Now()
	f.clock.Set(start.Add(-time.Hour))
	r := f.book(t, user, spot, seat, start, end)
	f.clock.Set(now)
	require.False(t, now.Before(end), "completed() needs an interval that has ended")
	return r
}

func (f *fixture) spot(t *testing.T, id uint64) model.Spot {
	t.Helper()
	var s model.Spot
	err := f.store.Within(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		s, err = tx.Spots().GetByID(ctx, id)
		return err
	})
	require.NoError(t, err)
	return s
}

func student(u model.User) model.Actor { return model.Actor{UserID: u.ID, Role: u.Role} }

var adminActor = model.Actor{UserID: 999, Role: model.RoleAdmin}
