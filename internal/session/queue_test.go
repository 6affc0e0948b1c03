package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"guess-character/internal/domain"
	"guess-character/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) RecordPlayed(ctx context.Context, gameID, characterID string) error {
	args := m.Called(ctx, gameID, characterID)
	return args.Error(0)
}

type writerFunc func(ctx context.Context, gameID, characterID string) error

func (f writerFunc) RecordPlayed(ctx context.Context, gameID, characterID string) error {
	return f(ctx, gameID, characterID)
}

func TestQueueDeliversAndDrainsOnClose(t *testing.T) {
	writer := new(MockWriter)
	writer.On("RecordPlayed", mock.Anything, "g1", "a").Return(nil).Once()
	writer.On("RecordPlayed", mock.Anything, "g1", "b").Return(nil).Once()

	q := NewQueue(writer, 8)
	assert.True(t, q.Enqueue("g1", "a"))
	assert.True(t, q.Enqueue("g1", "b"))
	q.Close()

	writer.AssertExpectations(t)
}

func TestQueueSuppressesDuplicatesInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var delivered []playedJob
	writer := writerFunc(func(_ context.Context, gameID, characterID string) error {
		if len(delivered) == 0 {
			close(started)
			<-release
		}
		delivered = append(delivered, playedJob{gameID: gameID, characterID: characterID})
		return nil
	})

	q := NewQueue(writer, 8)
	require.True(t, q.Enqueue("g1", "a"))
	<-started
	assert.False(t, q.Enqueue("g1", "a"))
	assert.True(t, q.Enqueue("g2", "a"))
	assert.False(t, q.Enqueue("g2", "a"))
	close(release)
	q.Close()

	assert.Equal(t, []playedJob{{"g1", "a"}, {"g2", "a"}}, delivered)
}

func TestQueueForgetsDeliveredReports(t *testing.T) {
	var calls atomic.Int32
	writer := writerFunc(func(context.Context, string, string) error {
		calls.Add(1)
		return nil
	})

	q := NewQueue(writer, 8)
	for i := range 1000 {
		for !q.Enqueue(fmt.Sprintf("g%d", i), "c") {
			time.Sleep(time.Millisecond)
		}
	}
	require.Eventually(t, func() bool { return calls.Load() == 1000 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return q.inFlight() == 0 }, time.Second, 5*time.Millisecond)

	assert.True(t, q.Enqueue("g0", "c"), "a delivered report may be enqueued again")
	q.Close()
	assert.Equal(t, 0, q.inFlight())
	assert.EqualValues(t, 1001, calls.Load())
}

func TestQueueDropsFailuresWithoutRetry(t *testing.T) {
	writer := new(MockWriter)
	writer.On("RecordPlayed", mock.Anything, "g1", "a").Return(errors.New("timeout")).Once()
	writer.On("RecordPlayed", mock.Anything, "g1", "b").Return(nil).Once()

	q := NewQueue(writer, 8)
	q.Enqueue("g1", "a")
	q.Enqueue("g1", "b")
	q.Close()

	writer.AssertExpectations(t)
	writer.AssertNumberOfCalls(t, "RecordPlayed", 2)
}

func TestQueueRejectsAfterClose(t *testing.T) {
	q := NewQueue(new(MockWriter), 1)
	q.Close()
	assert.False(t, q.Enqueue("g1", "a"))
	q.Close()
}

func TestQueueDropsWhenFull(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var delivered []string
	writer := writerFunc(func(_ context.Context, _ string, characterID string) error {
		if characterID == "a" {
			close(started)
			<-release
		}
		delivered = append(delivered, characterID)
		return nil
	})

	q := NewQueue(writer, 1)
	require.True(t, q.Enqueue("g1", "a"))
	<-started
	require.True(t, q.Enqueue("g1", "b"))
	assert.False(t, q.Enqueue("g1", "c"))
	close(release)
	q.Close()

	assert.Equal(t, []string{"a", "b"}, delivered)
}

func TestSessionRecordsEachDrawOnce(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	for _, name := range []string{"a", "b", "c"} {
		_, err := mem.CreateCharacter(ctx, store.CharacterInput{Name: name, ImageURL: name + ".png"})
		require.NoError(t, err)
	}
	game, err := mem.CreateGame(ctx, domain.Unrestricted())
	require.NoError(t, err)

	source := SourceFunc(func(ctx context.Context, gameID string) ([]domain.Character, error) {
		return store.CandidatePool(ctx, mem, gameID)
	})
	queue := NewQueue(mem, 8)
	clock := &fakeClock{}
	m, err := Start(ctx, game.ID, source, Options{Clock: clock, RNG: firstRNG{}, Recorder: queue})
	require.NoError(t, err)

	require.NoError(t, m.Begin())
	for m.State().Phase == PhasePass {
		require.NoError(t, m.Ready())
		for clock.Tick() {
		}
		require.NoError(t, m.Advance())
	}
	queue.Close()

	played, err := mem.PlayedCharacterIDs(ctx, game.ID)
	require.NoError(t, err)
	assert.Len(t, played, 3)

	pool, err := store.CandidatePool(ctx, mem, game.ID)
	require.NoError(t, err)
	assert.Empty(t, pool)
}
