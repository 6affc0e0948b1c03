package store

import (
	"context"
	"errors"
	"testing"

	"guess-character/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidatePoolEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	s1, err := s.CreateSet(ctx, "s1")
	require.NoError(t, err)
	_, err = s.CreateCharacter(ctx, CharacterInput{Name: "a", ImageURL: "a.png"})
	require.NoError(t, err)
	b, err := s.CreateCharacter(ctx, CharacterInput{Name: "b", ImageURL: "b.png", SetIDs: []string{s1.ID}})
	require.NoError(t, err)

	game, err := s.CreateGame(ctx, domain.RestrictedTo([]string{s1.ID}, false))
	require.NoError(t, err)

	pool, err := CandidatePool(ctx, s, game.ID)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, b.ID, pool[0].ID)

	require.NoError(t, s.RecordPlayed(ctx, game.ID, b.ID))
	pool, err = CandidatePool(ctx, s, game.ID)
	require.NoError(t, err)
	assert.Empty(t, pool)
}

func TestCandidatePoolUnknownGame(t *testing.T) {
	_, err := CandidatePool(context.Background(), NewMemory(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type failingReader struct {
	*Memory
	err error
}

func (f failingReader) ListCharacters(context.Context, bool) ([]domain.Character, error) {
	return nil, f.err
}

func TestCandidatePoolPropagatesTransientErrors(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	game, err := mem.CreateGame(ctx, domain.Unrestricted())
	require.NoError(t, err)

	boom := errors.Join(domain.ErrTransient, errors.New("connection refused"))
	_, err = CandidatePool(ctx, failingReader{Memory: mem, err: boom}, game.ID)
	assert.ErrorIs(t, err, domain.ErrTransient)
}
