package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/mathstrike/internal/game"
	"github.com/robalobadob/mathstrike/internal/level"
)

func newGame(t *testing.T, id string) *game.Game {
	t.Helper()
	g, err := game.New(level.Defaults(), game.WithID(id), game.WithAimDelay(0))
	require.NoError(t, err)
	return g
}

func TestSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	g := newGame(t, "g1")
	require.NoError(t, s.Save(ctx, g))
	got, err := s.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Same(t, g, got)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, "g1"))
	require.NoError(t, s.Delete(ctx, "g1"))
	_, err = s.Get(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.Len())
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	old := newGame(t, "old")
	require.NoError(t, s.Save(ctx, old))

	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	fresh := newGame(t, "fresh")
	require.NoError(t, s.Save(ctx, fresh))

	removed, err := s.Prune(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, removed)

	_, err = s.Get(ctx, "fresh")
	assert.NoError(t, err)
}
