package store

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"guess-character/internal/domain"

	"github.com/google/uuid"
)

const maxNameLength = 120

// Store is the durable home of characters, sets and games.
type Store interface {
	CreateCharacter(ctx context.Context, in CharacterInput) (domain.Character, error)
	// UpsertCharacterByName replaces the image and words of an existing
	// character with the same name, or creates a new one.
	UpsertCharacterByName(ctx context.Context, in CharacterInput) (domain.Character, bool, error)
	UpdateCharacter(ctx context.Context, id string, patch CharacterPatch) (domain.Character, error)
	GetCharacter(ctx context.Context, id string) (domain.Character, error)
	ListCharacters(ctx context.Context, withSets bool) ([]domain.Character, error)
	DeleteCharacter(ctx context.Context, id string) (domain.Character, error)
	RandomCharacter(ctx context.Context) (domain.Character, error)
	SetMemberships(ctx context.Context, characterID string, setIDs []string) (domain.Character, error)

	ListSets(ctx context.Context) ([]domain.Set, error)
	CreateSet(ctx context.Context, name string) (domain.Set, error)
	RenameSet(ctx context.Context, id, name string) (domain.Set, error)
	DeleteSet(ctx context.Context, id string) error

	CreateGame(ctx context.Context, cfg domain.GameConfig) (domain.Game, error)
	GameConfig(ctx context.Context, gameID string) (domain.GameConfig, error)
	PlayedCharacterIDs(ctx context.Context, gameID string) (domain.PlayedSet, error)
	// RecordPlayed is idempotent per (game, character).
	RecordPlayed(ctx context.Context, gameID, characterID string) error
}

type CharacterInput struct {
	Name           string
	ImageURL       string
	ForbiddenWords []string
	SetIDs         []string
}

// CharacterPatch leaves nil fields untouched.
type CharacterPatch struct {
	Name           *string
	ImageURL       *string
	ForbiddenWords *[]string
}

func (in CharacterInput) normalize() (CharacterInput, error) {
	name, err := NormalizeName(in.Name)
	if err != nil {
		return in, err
	}
	image := strings.TrimSpace(in.ImageURL)
	if image == "" {
		return in, fmt.Errorf("%w: image is required", domain.ErrValidation)
	}
	setIDs, err := normalizeIDs(in.SetIDs)
	if err != nil {
		return in, err
	}
	return CharacterInput{
		Name:           name,
		ImageURL:       image,
		ForbiddenWords: NormalizeWords(in.ForbiddenWords),
		SetIDs:         setIDs,
	}, nil
}

func (p CharacterPatch) normalize() (CharacterPatch, error) {
	out := CharacterPatch{}
	if p.Name != nil {
		name, err := NormalizeName(*p.Name)
		if err != nil {
			return out, err
		}
		out.Name = &name
	}
	if p.ImageURL != nil {
		image := strings.TrimSpace(*p.ImageURL)
		if image == "" {
			return out, fmt.Errorf("%w: image is required", domain.ErrValidation)
		}
		out.ImageURL = &image
	}
	if p.ForbiddenWords != nil {
		words := NormalizeWords(*p.ForbiddenWords)
		out.ForbiddenWords = &words
	}
	return out, nil
}

// NormalizeName trims a character or set name and checks its length.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: name must be at most %d characters", domain.ErrValidation, maxNameLength)
	}
	return name, nil
}

// NormalizeWords trims each word and drops blanks, keeping order.
func NormalizeWords(raw []string) []string {
	words := make([]string, 0, len(raw))
	for _, word := range raw {
		if word = strings.TrimSpace(word); word != "" {
			words = append(words, word)
		}
	}
	return words
}

func normalizeIDs(raw []string) ([]string, error) {
	ids := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !validID(id) {
			return nil, fmt.Errorf("%w: set %q", domain.ErrNotFound, id)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
