package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"guess-character/internal/domain"
	"guess-character/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// startMachine runs a real session over a fixed pool, publishing states
// on the returned channel.
func startMachine(t *testing.T, pool ...domain.Character) (*session.Machine, chan session.State) {
	t.Helper()
	states := make(chan session.State, 16)
	source := session.SourceFunc(func(context.Context, string) ([]domain.Character, error) {
		return pool, nil
	})
	machine, err := session.Start(context.Background(), "game-1", source, session.Options{
		Observer: func(state session.State) { states <- state },
	})
	require.NoError(t, err)
	t.Cleanup(machine.Close)
	return machine, states
}

// drain feeds every pending state into the model.
func drain(m Model, states chan session.State) Model {
	for {
		select {
		case state := <-states:
			next, _ := m.Update(stateMsg(state))
			m = next.(Model)
		default:
			return m
		}
	}
}

func TestEnterDrawsAndReadies(t *testing.T) {
	batman := domain.Character{ID: "c1", Name: "Batman", ForbiddenWords: []string{"bat"}}
	machine, states := startMachine(t, batman)
	m := New(machine, states, "http://localhost/play/game-1")
	assert.Equal(t, session.PhaseLobby, m.State().Phase)
	assert.Contains(t, m.View(), "Press enter")

	next, _ := m.Update(key("enter"))
	m = drain(next.(Model), states)
	assert.Equal(t, session.PhasePass, m.State().Phase)
	assert.Contains(t, m.View(), "Pass the device")
	assert.NotContains(t, m.View(), "Batman")

	next, _ = m.Update(key("enter"))
	m = drain(next.(Model), states)
	assert.Equal(t, session.PhaseCountdown, m.State().Phase)
	assert.Contains(t, m.View(), "Get ready... 3")
}

func TestDescribeShowsCardAndPause(t *testing.T) {
	m := New(&fakeController{state: session.State{
		Phase:   session.PhaseDescribe,
		Current: &domain.Character{Name: "Batman", ForbiddenWords: []string{"bat", "cave"}},
	}}, nil, "")
	view := m.View()
	assert.Contains(t, view, "Batman")
	assert.Contains(t, view, "bat")
	assert.Contains(t, view, "cave")

	ctrl := m.ctrl.(*fakeController)
	next, _ := m.Update(key("p"))
	m = next.(Model)
	assert.Equal(t, 1, ctrl.pauses)
	assert.NoError(t, m.err)
}

func TestInvalidKeyShowsError(t *testing.T) {
	ctrl := &fakeController{state: session.State{Phase: session.PhaseLobby}, pauseErr: session.ErrInvalidTransition}
	m := New(ctrl, nil, "")
	next, _ := m.Update(key("p"))
	m = next.(Model)
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "invalid transition")
}

func TestGameOverEnterQuits(t *testing.T) {
	m := New(&fakeController{state: session.State{Phase: session.PhaseGameOver}}, nil, "")
	assert.Contains(t, m.View(), "Game over")
	_, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestQuitOnQ(t *testing.T) {
	m := New(&fakeController{}, nil, "")
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestCopyLink(t *testing.T) {
	var copied string
	m := New(&fakeController{}, nil, "http://host/play/g1").WithCopy(func(s string) error {
		copied = s
		return nil
	})
	_, cmd := m.Update(key("c"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, "http://host/play/g1", copied)

	next, _ := m.Update(msg)
	assert.Contains(t, next.(Model).View(), "Link copied.")

	m = m.WithCopy(func(string) error { return errors.New("no clipboard") })
	_, cmd = m.Update(key("c"))
	next, _ = m.Update(cmd())
	assert.Contains(t, next.(Model).View(), "no clipboard")
}

func TestStateMessagesKeepListening(t *testing.T) {
	states := make(chan session.State, 1)
	ctrl := &fakeController{}
	m := New(ctrl, states, "")
	require.NotNil(t, m.Init())

	ctrl.state = session.State{Phase: session.PhaseCountdown, Countdown: 2, Remaining: 4}
	states <- session.State{Phase: session.PhaseCountdown, Countdown: 3, Remaining: 4}
	msg := m.Init()()
	next, cmd := m.Update(msg)
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.True(t, strings.Contains(m.View(), "Get ready... 2"), "renders the latest state, not the queued one")
	assert.Contains(t, m.View(), "4 left")
}

func TestKeysRefreshStateWithoutNotifications(t *testing.T) {
	batman := domain.Character{ID: "c1", Name: "Batman"}
	source := session.SourceFunc(func(context.Context, string) ([]domain.Character, error) {
		return []domain.Character{batman}, nil
	})
	machine, err := session.Start(context.Background(), "game-1", source, session.Options{})
	require.NoError(t, err)
	t.Cleanup(machine.Close)

	m := New(machine, nil, "")
	next, _ := m.Update(key("enter"))
	m = next.(Model)
	assert.Equal(t, session.PhasePass, m.State().Phase)
	assert.Contains(t, m.View(), "Pass the device")

	next, _ = m.Update(key("enter"))
	m = next.(Model)
	assert.Equal(t, session.PhaseCountdown, m.State().Phase)

	next, _ = m.Update(key("p"))
	m = next.(Model)
	require.ErrorIs(t, m.err, session.ErrInvalidTransition)
	assert.Equal(t, session.PhaseCountdown, m.State().Phase)
}

type fakeController struct {
	state    session.State
	pauses   int
	pauseErr error
}

func (f *fakeController) State() session.State { return f.state }
func (f *fakeController) Begin() error         { return nil }
func (f *fakeController) Ready() error         { return nil }
func (f *fakeController) Advance() error       { return nil }

func (f *fakeController) Pause() error {
	f.pauses++
	return f.pauseErr
}
