package store

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"guess-character/internal/domain"

	"github.com/google/uuid"
)

// Memory keeps everything in process. It is used when no database is
// configured and in tests.
type Memory struct {
	mu         sync.Mutex
	now        func() time.Time
	intn       func(int) int
	characters map[string]*domain.Character
	order      []string
	sets       map[string]domain.Set
	games      map[string]domain.Game
	played     map[string]map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{
		now:        func() time.Time { return time.Now().UTC() },
		intn:       rand.IntN,
		characters: make(map[string]*domain.Character),
		sets:       make(map[string]domain.Set),
		games:      make(map[string]domain.Game),
		played:     make(map[string]map[string]time.Time),
	}
}

func (m *Memory) CreateCharacter(_ context.Context, in CharacterInput) (domain.Character, error) {
	in, err := in.normalize()
	if err != nil {
		return domain.Character{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkSetsLocked(in.SetIDs); err != nil {
		return domain.Character{}, err
	}
	return m.insertLocked(in), nil
}

func (m *Memory) UpsertCharacterByName(_ context.Context, in CharacterInput) (domain.Character, bool, error) {
	in, err := in.normalize()
	if err != nil {
		return domain.Character{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkSetsLocked(in.SetIDs); err != nil {
		return domain.Character{}, false, err
	}
	for _, id := range m.order {
		existing := m.characters[id]
		if existing.Name != in.Name {
			continue
		}
		existing.ImageURL = in.ImageURL
		existing.ForbiddenWords = slices.Clone(in.ForbiddenWords)
		if len(in.SetIDs) > 0 {
			existing.SetIDs = mergeIDs(existing.SetIDs, in.SetIDs)
		}
		return existing.Clone(), false, nil
	}
	return m.insertLocked(in), true, nil
}

func (m *Memory) insertLocked(in CharacterInput) domain.Character {
	character := &domain.Character{
		ID:             uuid.NewString(),
		Name:           in.Name,
		ImageURL:       in.ImageURL,
		ForbiddenWords: slices.Clone(in.ForbiddenWords),
		SetIDs:         slices.Clone(in.SetIDs),
		CreatedAt:      m.now(),
	}
	m.characters[character.ID] = character
	m.order = append(m.order, character.ID)
	return character.Clone()
}

func (m *Memory) UpdateCharacter(_ context.Context, id string, patch CharacterPatch) (domain.Character, error) {
	patch, err := patch.normalize()
	if err != nil {
		return domain.Character{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	character, ok := m.characters[id]
	if !ok {
		return domain.Character{}, fmt.Errorf("%w: character %s", domain.ErrNotFound, id)
	}
	if patch.Name != nil {
		character.Name = *patch.Name
	}
	if patch.ImageURL != nil {
		character.ImageURL = *patch.ImageURL
	}
	if patch.ForbiddenWords != nil {
		character.ForbiddenWords = slices.Clone(*patch.ForbiddenWords)
	}
	return character.Clone(), nil
}

func (m *Memory) GetCharacter(_ context.Context, id string) (domain.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	character, ok := m.characters[id]
	if !ok {
		return domain.Character{}, fmt.Errorf("%w: character %s", domain.ErrNotFound, id)
	}
	return character.Clone(), nil
}

// ListCharacters returns the newest characters first.
func (m *Memory) ListCharacters(_ context.Context, withSets bool) ([]domain.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Character, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		character := m.characters[m.order[i]].Clone()
		if !withSets {
			character.SetIDs = nil
		}
		out = append(out, character)
	}
	return out, nil
}

func (m *Memory) DeleteCharacter(_ context.Context, id string) (domain.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	character, ok := m.characters[id]
	if !ok {
		return domain.Character{}, fmt.Errorf("%w: character %s", domain.ErrNotFound, id)
	}
	delete(m.characters, id)
	m.order = slices.DeleteFunc(m.order, func(existing string) bool { return existing == id })
	for _, played := range m.played {
		delete(played, id)
	}
	return character.Clone(), nil
}

func (m *Memory) RandomCharacter(_ context.Context) (domain.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return domain.Character{}, fmt.Errorf("%w: no characters", domain.ErrNotFound)
	}
	return m.characters[m.order[m.intn(len(m.order))]].Clone(), nil
}

func (m *Memory) SetMemberships(_ context.Context, characterID string, setIDs []string) (domain.Character, error) {
	ids, err := normalizeIDs(setIDs)
	if err != nil {
		return domain.Character{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	character, ok := m.characters[characterID]
	if !ok {
		return domain.Character{}, fmt.Errorf("%w: character %s", domain.ErrNotFound, characterID)
	}
	if err := m.checkSetsLocked(ids); err != nil {
		return domain.Character{}, err
	}
	character.SetIDs = ids
	return character.Clone(), nil
}

// ListSets returns sets ordered by name.
func (m *Memory) ListSets(_ context.Context) ([]domain.Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Set, 0, len(m.sets))
	for _, set := range m.sets {
		out = append(out, set)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (m *Memory) CreateSet(_ context.Context, name string) (domain.Set, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return domain.Set{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setNameTakenLocked(name, "") {
		return domain.Set{}, fmt.Errorf("%w: set %q", domain.ErrConflict, name)
	}
	set := domain.Set{ID: uuid.NewString(), Name: name, CreatedAt: m.now()}
	m.sets[set.ID] = set
	return set, nil
}

func (m *Memory) RenameSet(_ context.Context, id, name string) (domain.Set, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return domain.Set{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[id]
	if !ok {
		return domain.Set{}, fmt.Errorf("%w: set %s", domain.ErrNotFound, id)
	}
	if m.setNameTakenLocked(name, id) {
		return domain.Set{}, fmt.Errorf("%w: set %q", domain.ErrConflict, name)
	}
	set.Name = name
	m.sets[id] = set
	return set, nil
}

func (m *Memory) DeleteSet(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[id]; !ok {
		return fmt.Errorf("%w: set %s", domain.ErrNotFound, id)
	}
	delete(m.sets, id)
	for _, character := range m.characters {
		character.SetIDs = slices.DeleteFunc(character.SetIDs, func(existing string) bool { return existing == id })
	}
	return nil
}

func (m *Memory) CreateGame(_ context.Context, cfg domain.GameConfig) (domain.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	game := domain.Game{ID: uuid.NewString(), Config: cfg, CreatedAt: m.now()}
	m.games[game.ID] = game
	m.played[game.ID] = make(map[string]time.Time)
	return game, nil
}

func (m *Memory) GameConfig(_ context.Context, gameID string) (domain.GameConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	game, ok := m.games[gameID]
	if !ok {
		return domain.GameConfig{}, fmt.Errorf("%w: game %s", domain.ErrNotFound, gameID)
	}
	return game.Config, nil
}

func (m *Memory) PlayedCharacterIDs(_ context.Context, gameID string) (domain.PlayedSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	played, ok := m.played[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: game %s", domain.ErrNotFound, gameID)
	}
	out := make(domain.PlayedSet, len(played))
	for id := range played {
		out[id] = struct{}{}
	}
	return out, nil
}

func (m *Memory) RecordPlayed(_ context.Context, gameID, characterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	played, ok := m.played[gameID]
	if !ok {
		return fmt.Errorf("%w: game %s", domain.ErrNotFound, gameID)
	}
	if _, ok := m.characters[characterID]; !ok {
		return fmt.Errorf("%w: character %s", domain.ErrNotFound, characterID)
	}
	if _, ok := played[characterID]; ok {
		return nil
	}
	played[characterID] = m.now()
	return nil
}

func (m *Memory) checkSetsLocked(ids []string) error {
	for _, id := range ids {
		if _, ok := m.sets[id]; !ok {
			return fmt.Errorf("%w: set %s", domain.ErrNotFound, id)
		}
	}
	return nil
}

func (m *Memory) setNameTakenLocked(name, exceptID string) bool {
	for id, set := range m.sets {
		if id != exceptID && set.Name == name {
			return true
		}
	}
	return false
}

func mergeIDs(existing, extra []string) []string {
	out := slices.Clone(existing)
	for _, id := range extra {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
