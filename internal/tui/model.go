package tui

import (
	"fmt"
	"strings"

	"guess-character/internal/session"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// Controller is the part of a session the terminal drives.
type Controller interface {
	State() session.State
	Begin() error
	Ready() error
	Advance() error
	Pause() error
}

type stateMsg session.State

type copiedMsg struct{ err error }

// Model renders a pass-the-device session. Countdown ticks happen off the
// UI goroutine, so a receive on the states channel only wakes the model;
// the rendered state is always re-read from the controller.
type Model struct {
	ctrl    Controller
	states  <-chan session.State
	playURL string
	copyFn  func(string) error

	state  session.State
	status string
	err    error
	width  int
}

func New(ctrl Controller, states <-chan session.State, playURL string) Model {
	return Model{
		ctrl:    ctrl,
		states:  states,
		playURL: playURL,
		copyFn:  clipboard.WriteAll,
		state:   ctrl.State(),
	}
}

// WithCopy replaces the clipboard writer.
func (m Model) WithCopy(copyFn func(string) error) Model {
	m.copyFn = copyFn
	return m
}

func (m Model) State() session.State {
	return m.state
}

func (m Model) Init() tea.Cmd {
	return waitForState(m.states)
}

func waitForState(states <-chan session.State) tea.Cmd {
	if states == nil {
		return nil
	}
	return func() tea.Msg {
		state, ok := <-states
		if !ok {
			return nil
		}
		return stateMsg(state)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case stateMsg:
		m.state = m.ctrl.State()
		return m, waitForState(m.states)
	case copiedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("copy link: %w", msg.err)
			m.status = ""
		} else {
			m.err = nil
			m.status = "Link copied."
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "c":
		url, copyFn := m.playURL, m.copyFn
		return m, func() tea.Msg {
			return copiedMsg{err: copyFn(url)}
		}
	case "p":
		m.err = m.ctrl.Pause()
		m.status = ""
		m.state = m.ctrl.State()
		return m, nil
	case "enter", " ":
		var err error
		switch m.state.Phase {
		case session.PhaseLobby:
			err = m.ctrl.Begin()
		case session.PhasePass:
			err = m.ctrl.Ready()
		case session.PhaseDescribe:
			err = m.ctrl.Advance()
		case session.PhaseGameOver:
			return m, tea.Quit
		default:
			return m, nil
		}
		m.err = err
		m.status = ""
		m.state = m.ctrl.State()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Guess the Character"))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d left", m.state.Remaining)))
	b.WriteString("\n\n")

	switch m.state.Phase {
	case session.PhaseLobby:
		b.WriteString("Press enter to draw a character.\n")
	case session.PhasePass:
		b.WriteString("Pass the device to the next describer, then press enter.\n")
	case session.PhaseCountdown:
		b.WriteString(countdownStyle.Render(fmt.Sprintf("Get ready... %d", m.state.Countdown)))
		b.WriteString("\n")
	case session.PhaseDescribe:
		b.WriteString(m.card())
		b.WriteString("\n")
	case session.PhaseGameOver:
		b.WriteString("No characters left. Game over!\n")
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	} else if m.status != "" {
		b.WriteString("\n" + dimStyle.Render(m.status) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(strings.Join([]string{
		helpItem("enter", "continue"),
		helpItem("p", "pause"),
		helpItem("c", "copy link"),
		helpItem("q", "quit"),
	}, "  "))
	b.WriteString("\n")
	return b.String()
}

func (m Model) card() string {
	current := m.state.Current
	if current == nil {
		return ""
	}
	words := make([]string, 0, len(current.ForbiddenWords))
	for _, word := range current.ForbiddenWords {
		words = append(words, wordStyle.Render(word))
	}
	body := nameStyle.Render(current.Name)
	if len(words) > 0 {
		body += "\n\n" + strings.Join(words, " ")
	}
	body += "\n\n" + dimStyle.Render(current.ImageURL)
	return cardStyle.Render(body)
}
