package session

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_IdleExpiry(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(time.Minute, clk)
	ctx := context.Background()

	id, err := s.Create(ctx)
	require.NoError(t, err)
	require.True(t, validID(id))

	clk.Advance(50 * time.Second)
	ok, err := s.Touch(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok, "activity keeps the session alive")

	clk.Advance(50 * time.Second)
	ok, _ = s.Touch(ctx, id)
	assert.True(t, ok, "idle timer restarted on touch")

	clk.Advance(61 * time.Second)
	ok, _ = s.Touch(ctx, id)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_UnknownAndMalformedIDs(t *testing.T) {
	s := NewMemoryStore(time.Minute, clock.NewRealClock())

	ok, err := s.Touch(context.Background(), "6f1c1c2e-1111-4a4a-8b8b-000000000000")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Touch(context.Background(), "../../etc/passwd")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Sweep(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(time.Minute, clk)

	_, _ = s.Create(context.Background())
	clk.Advance(2 * time.Minute)
	fresh, _ := s.Create(context.Background())

	assert.Equal(t, 1, s.Sweep())
	ok, _ := s.Touch(context.Background(), fresh)
	assert.True(t, ok)
}

func TestMemoryStore_DistinctIDs(t *testing.T) {
	s := NewMemoryStore(time.Minute, clock.NewRealClock())
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := s.Create(context.Background())
		require.NoError(t, err)
		require.False(t, seen[id])
		seen[id] = true
	}
}
