package session

import "errors"

type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhasePass      Phase = "pass"
	PhaseCountdown Phase = "countdown"
	PhaseDescribe  Phase = "describe"
	PhaseGameOver  Phase = "gameover"
)

// CountdownStart is the value a countdown begins at after the player is ready.
const CountdownStart = 3

var (
	// ErrNoSession is returned when a session is started without a game.
	ErrNoSession         = errors.New("no game session")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrClosed            = errors.New("session closed")
)
