package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/queue"
	"github.com/iliyamo/study-spot-reservation/internal/service"
)

func TestSpotRegistry_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		_, err := f.spots.Create(ctx, service.SpotInput{Name: "  ", Capacity: 3})
		require.ErrorIs(t, err, errs.ErrValidation)
		assert.Equal(t, "name", errs.Classify(err).Field)

		_, err = f.spots.Create(ctx, service.SpotInput{Name: "Library", Capacity: 0})
		require.ErrorIs(t, err, errs.ErrValidation)
		assert.Equal(t, "capacity", errs.Classify(err).Field)
	})

	t.Run("defaults", func(t *testing.T) {
		s, err := f.spots.Create(ctx, service.SpotInput{
			Name: " Library ", Capacity: 3, Features: []string{" Wifi", "", "Priz "}, ImageURL: "x",
		})
		require.NoError(t, err)
		assert.Equal(t, "Library", s.Name)
		assert.True(t, s.IsAvailable)
		assert.Equal(t, model.RatingAggregate{}, s.Rating)
		assert.Equal(t, []string{"Wifi", "Priz"}, s.Features)
		assert.Equal(t, model.DefaultSpotImage, s.ImageURL)
	})

	t.Run("created in maintenance mode", func(t *testing.T) {
		s, err := f.spots.Create(ctx, service.SpotInput{Name: "Annex", Capacity: 2, Unavailable: true})
		require.NoError(t, err)
		assert.False(t, s.IsAvailable)
		assert.False(t, f.spot(t, s.ID).IsAvailable)
	})
}

func TestSpotRegistry_IDsNeverReused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedSpot(t, "A", 1)
	b := f.seedSpot(t, "B", 1)
	assert.Equal(t, a.ID+1, b.ID)

	require.NoError(t, f.spots.Delete(ctx, b.ID))
	c := f.seedSpot(t, "C", 1)
	assert.Equal(t, b.ID+1, c.ID)
}

func TestSpotRegistry_Delete(t *testing.T) {
	f := newFixture(t)
	ali := f.seedUser(t, "ali", model.RoleStudent)
	spot := f.seedSpot(t, "Library", 4)
	ctx := context.Background()

	f.completed(t, ali, spot, 1, at(7, 0), at(8, 0))
	r := f.book(t, ali, spot, 2, at(14, 0), at(15, 0))

	err := f.spots.Delete(ctx, spot.ID)
	require.ErrorIs(t, err, errs.ErrFailedPrecondition)

	require.NoError(t, f.res.Cancel(ctx, r.ID, student(ali)))
	require.NoError(t, f.spots.Delete(ctx, spot.ID))

	_, err = f.spots.Get(ctx, spot.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	listed, err := f.spots.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, listed)

	// History survives the delete.
	history, err := f.res.ListForUser(ctx, ali.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	err = f.spots.Delete(ctx, spot.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	assert.Contains(t, f.events.types(), queue.SpotDeleted)
}

func TestSpotRegistry_UpdateCapacity(t *testing.T) {
	f := newFixture(t)
	ali := f.seedUser(t, "ali", model.RoleStudent)
	spot := f.seedSpot(t, "Library", 6)
	ctx := context.Background()

	f.book(t, ali, spot, 4, at(14, 0), at(15, 0))
	f.completed(t, ali, spot, 6, at(7, 0), at(8, 0))

	err := f.spots.UpdateCapacity(ctx, spot.ID, 3)
	require.ErrorIs(t, err, errs.ErrFailedPrecondition)

	require.NoError(t, f.spots.UpdateCapacity(ctx, spot.ID, 4))
	assert.Equal(t, 4, f.spot(t, spot.ID).Capacity)

	err = f.spots.UpdateCapacity(ctx, spot.ID, 0)
	require.ErrorIs(t, err, errs.ErrValidation)

	err = f.spots.UpdateCapacity(ctx, 404, 2)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSpotRegistry_SetAvailability(t *testing.T) {
	f := newFixture(t)
	ali := f.seedUser(t, "ali", model.RoleStudent)
	spot := f.seedSpot(t, "Library", 2)
	ctx := context.Background()

	r := f.book(t, ali, spot, 1, at(14, 0), at(15, 0))
	require.NoError(t, f.spots.SetAvailability(ctx, spot.ID, false))
	assert.False(t, f.spot(t, spot.ID).IsAvailable)

	// Existing bookings are untouched.
	got, err := f.res.Get(ctx, r.ID, student(ali))
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)

	require.NoError(t, f.spots.SetAvailability(ctx, spot.ID, true))
	f.book(t, ali, spot, 2, at(14, 0), at(15, 0))

	err = f.spots.SetAvailability(ctx, 404, true)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSpotRegistry_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedSpot(t, "Central Library", 10, "Wifi", "Priz")
	f.seedSpot(t, "Garden Cafe", 4, "Outdoor")
	f.seedSpot(t, "Silent Room", 2, "wifi")

	cases := []struct {
		q    string
		want []string
	}{
		{q: "", want: []string{"Central Library", "Garden Cafe", "Silent Room"}},
		{q: "LIBRARY", want: []string{"Central Library"}},
		{q: "wifi", want: []string{"Central Library", "Silent Room"}},
		{q: "door", want: []string{"Garden Cafe"}},
		{q: "nothing", want: []string{}},
	}
	for _, tc := range cases {
		t.Run("q="+tc.q, func(t *testing.T) {
			spots, err := f.spots.List(ctx, tc.q)
			require.NoError(t, err)
			names := []string{}
			for _, s := range spots {
				names = append(names, s.Name)
			}
			assert.Equal(t, tc.want, names)
		})
	}
}
