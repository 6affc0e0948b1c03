package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Writer persists that a character was drawn in a game.
type Writer interface {
	RecordPlayed(ctx context.Context, gameID, characterID string) error
}

// Recorder accepts played reports without blocking the caller.
type Recorder interface {
	Enqueue(gameID, characterID string) bool
}

type playedJob struct {
	gameID      string
	characterID string
}

// Queue delivers played reports to a Writer from a single worker goroutine.
// Reports are best effort: failures are logged and dropped, never retried.
// Duplicates are suppressed only while a report is queued or being written;
// the store itself ignores repeats.
type Queue struct {
	writer  Writer
	timeout time.Duration
	jobs    chan playedJob
	done    chan struct{}

	mu     sync.Mutex
	seen   map[playedJob]struct{}
	closed bool
}

func NewQueue(writer Writer, size int) *Queue {
	if size <= 0 {
		size = 1
	}
	q := &Queue{
		writer:  writer,
		timeout: 5 * time.Second,
		jobs:    make(chan playedJob, size),
		done:    make(chan struct{}),
		seen:    make(map[playedJob]struct{}),
	}
	go q.run()
	return q
}

// Enqueue schedules a report. It returns false when the report was dropped
// because it is a duplicate, the queue is full, or the queue is closed.
func (q *Queue) Enqueue(gameID, characterID string) bool {
	job := playedJob{gameID: gameID, characterID: characterID}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if _, ok := q.seen[job]; ok {
		return false
	}
	select {
	case q.jobs <- job:
		q.seen[job] = struct{}{}
		return true
	default:
		log.Warn().Str("game_id", gameID).Str("character_id", characterID).Msg("played queue full, dropping report")
		return false
	}
}

// Close stops accepting reports and waits for queued ones to be written.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for job := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := q.writer.RecordPlayed(ctx, job.gameID, job.characterID); err != nil {
			log.Warn().Err(err).Str("game_id", job.gameID).Str("character_id", job.characterID).Msg("record played failed")
		}
		cancel()
		q.mu.Lock()
		delete(q.seen, job)
		q.mu.Unlock()
	}
}

// inFlight reports how many reports are queued or being written.
func (q *Queue) inFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.seen)
}
