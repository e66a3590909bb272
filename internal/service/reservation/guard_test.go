package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/handlers/slogdiscard"
	"github.com/ParkPal-co/parking-app-sub000/internal/repository/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard(t *testing.T, spotIDs ...string) (*Guard, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	for _, id := range spotIDs {
		require.NoError(t, store.Spots().Create(context.Background(), &domain.ParkingSpot{ID: id, OwnerID: "host", Price: 40}))
	}
	return NewGuard(store.Spots(), time.Second, slogdiscard.NewDiscardLogger()), store
}

func TestReserve(t *testing.T) {
	g, _ := newGuard(t, "spot-1")

	spot, err := g.Reserve(context.Background(), "spot-1", "claim-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SpotStatusBooked, spot.Status)
	assert.True(t, spot.HeldBy("claim-1"))

	_, err = g.Reserve(context.Background(), "spot-1", "claim-2")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = g.Reserve(context.Background(), "missing", "claim-3")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReserve_ConcurrentClaimsOneWinner(t *testing.T) {
	g, _ := newGuard(t, "spot-1")

	var (
		wg      sync.WaitGroup
		results = make([]error, 2)
		start   = make(chan struct{})
	)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, results[i] = g.Reserve(context.Background(), "spot-1", []string{"a", "b"}[i])
		}(i)
	}
	close(start)
	wg.Wait()

	var reserved, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			reserved++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, reserved)
	assert.Equal(t, 1, conflicts)
}

func TestReserve_UnavailableSpotConflicts(t *testing.T) {
	g, store := newGuard(t, "spot-1")
	_, err := g.Reserve(context.Background(), "spot-1", "c")
	require.NoError(t, err)
	retired, err := g.Retire(context.Background(), "spot-1")
	require.NoError(t, err)
	require.True(t, retired)

	_, err = g.Reserve(context.Background(), "spot-1", "d")
	assert.ErrorIs(t, err, domain.ErrConflict)

	spot, err := store.Spots().GetByID(context.Background(), "spot-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SpotStatusUnavailable, spot.Status)
}

func TestRelease(t *testing.T) {
	g, store := newGuard(t, "spot-1")
	_, err := g.Reserve(context.Background(), "spot-1", "claim-1")
	require.NoError(t, err)

	released, err := g.Release(context.Background(), "spot-1", "other")
	require.NoError(t, err)
	assert.False(t, released)

	released, err = g.Release(context.Background(), "spot-1", "claim-1")
	require.NoError(t, err)
	assert.True(t, released)

	spot, err := store.Spots().GetByID(context.Background(), "spot-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SpotStatusAvailable, spot.Status)
	assert.Nil(t, spot.ClaimID)

	// The spot can be claimed again.
	_, err = g.Reserve(context.Background(), "spot-1", "claim-2")
	assert.NoError(t, err)
}
