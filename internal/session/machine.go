package session

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"guess-character/internal/domain"
)

// Source provides the candidate pool for a game. It is called once per session.
type Source interface {
	CandidatePool(ctx context.Context, gameID string) ([]domain.Character, error)
}

type SourceFunc func(ctx context.Context, gameID string) ([]domain.Character, error)

func (f SourceFunc) CandidatePool(ctx context.Context, gameID string) ([]domain.Character, error) {
	return f(ctx, gameID)
}

type RNG interface {
	IntN(n int) int
}

type defaultRNG struct{}

func (defaultRNG) IntN(n int) int {
	return rand.IntN(n)
}

// State is a snapshot of a session.
type State struct {
	GameID    string            `json:"gameId"`
	Phase     Phase             `json:"phase"`
	Current   *domain.Character `json:"current,omitempty"`
	Remaining int               `json:"remaining"`
	Countdown int               `json:"countdown"`
}

type Options struct {
	RNG      RNG
	Clock    Clock
	Recorder Recorder
	// Observer is called with the new state after every transition,
	// outside the machine's lock.
	Observer func(State)
	Tick     time.Duration
}

// Machine drives one device through lobby, pass, countdown, describe and
// gameover. The pool is fetched once in Start and only shrinks afterwards.
type Machine struct {
	gameID   string
	rng      RNG
	clock    Clock
	recorder Recorder
	observer func(State)
	tick     time.Duration

	mu        sync.Mutex
	phase     Phase
	pool      []domain.Character
	current   *domain.Character
	countdown int
	gen       uint64
	timer     Timer
	closed    bool
}

// Start fetches the candidate pool for gameID and returns a machine in the
// lobby phase.
func Start(ctx context.Context, gameID string, source Source, opts Options) (*Machine, error) {
	if gameID == "" {
		return nil, ErrNoSession
	}
	pool, err := source.CandidatePool(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("start session %s: %w", gameID, err)
	}
	m := &Machine{
		gameID:   gameID,
		rng:      opts.RNG,
		clock:    opts.Clock,
		recorder: opts.Recorder,
		observer: opts.Observer,
		tick:     opts.Tick,
		phase:    PhaseLobby,
		pool:     pool,
	}
	if m.rng == nil {
		m.rng = defaultRNG{}
	}
	if m.clock == nil {
		m.clock = RealClock()
	}
	if m.tick <= 0 {
		m.tick = time.Second
	}
	return m, nil
}

func (m *Machine) GameID() string {
	return m.gameID
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Begin draws the first character from the lobby.
func (m *Machine) Begin() error {
	return m.transition(PhaseLobby, func() {
		m.drawLocked()
	})
}

// Ready starts the countdown once the device has been passed.
func (m *Machine) Ready() error {
	return m.transition(PhasePass, func() {
		m.phase = PhaseCountdown
		m.countdown = CountdownStart
		m.scheduleTickLocked()
	})
}

// Advance draws the next character after a description.
func (m *Machine) Advance() error {
	return m.transition(PhaseDescribe, func() {
		m.drawLocked()
	})
}

// Pause returns to the lobby. The current character stays recorded as played.
func (m *Machine) Pause() error {
	return m.transition(PhaseDescribe, func() {
		m.phase = PhaseLobby
		m.current = nil
	})
}

// Close cancels any pending countdown. Later triggers return ErrClosed.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.gen++
	m.stopTimerLocked()
}

func (m *Machine) transition(from Phase, apply func()) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.phase != from {
		phase := m.phase
		m.mu.Unlock()
		return fmt.Errorf("%w: phase is %s, want %s", ErrInvalidTransition, phase, from)
	}
	m.gen++
	m.stopTimerLocked()
	apply()
	state := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(state)
	return nil
}

func (m *Machine) drawLocked() {
	if len(m.pool) == 0 {
		m.phase = PhaseGameOver
		m.current = nil
		return
	}
	i := m.rng.IntN(len(m.pool))
	drawn := m.pool[i]
	m.pool = slices.Delete(m.pool, i, i+1)
	m.current = &drawn
	m.phase = PhasePass
	if m.recorder != nil {
		m.recorder.Enqueue(m.gameID, drawn.ID)
	}
}

func (m *Machine) scheduleTickLocked() {
	gen := m.gen
	m.timer = m.clock.AfterFunc(m.tick, func() {
		m.onTick(gen)
	})
}

func (m *Machine) onTick(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.gen || m.phase != PhaseCountdown {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.timer = nil
	m.countdown--
	if m.countdown <= 0 {
		m.countdown = 0
		m.phase = PhaseDescribe
	} else {
		m.scheduleTickLocked()
	}
	state := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(state)
}

func (m *Machine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) snapshotLocked() State {
	state := State{
		GameID:    m.gameID,
		Phase:     m.phase,
		Remaining: len(m.pool),
		Countdown: m.countdown,
	}
	if m.current != nil {
		current := m.current.Clone()
		state.Current = &current
	}
	return state
}

func (m *Machine) notify(state State) {
	if m.observer != nil {
		m.observer(state)
	}
}
