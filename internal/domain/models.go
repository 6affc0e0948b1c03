package domain

import (
	"slices"
	"time"
)

// Character is a guessable entry in the roster.
type Character struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ImageURL       string    `json:"imageUrl"`
	ForbiddenWords []string  `json:"forbiddenWords"`
	SetIDs         []string  `json:"setIds"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasNoSet reports whether the character belongs to zero sets.
func (c Character) HasNoSet() bool {
	return len(c.SetIDs) == 0
}

// InAnySet reports whether the character belongs to at least one of the given sets.
func (c Character) InAnySet(setIDs map[string]struct{}) bool {
	for _, id := range c.SetIDs {
		if _, ok := setIDs[id]; ok {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with c.
func (c Character) Clone() Character {
	out := c
	out.ForbiddenWords = slices.Clone(c.ForbiddenWords)
	out.SetIDs = slices.Clone(c.SetIDs)
	return out
}

type Set struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Game is one play session. Config is fixed at creation.
type Game struct {
	ID        string     `json:"id"`
	Config    GameConfig `json:"config"`
	CreatedAt time.Time  `json:"createdAt"`
}
