package store

import (
	"context"

	"guess-character/internal/domain"
)

// PoolReader is the part of Store needed to compute a candidate pool.
type PoolReader interface {
	GameConfig(ctx context.Context, gameID string) (domain.GameConfig, error)
	ListCharacters(ctx context.Context, withSets bool) ([]domain.Character, error)
	PlayedCharacterIDs(ctx context.Context, gameID string) (domain.PlayedSet, error)
}

// CandidatePool returns the characters that can still be drawn in a game.
func CandidatePool(ctx context.Context, s PoolReader, gameID string) ([]domain.Character, error) {
	cfg, err := s.GameConfig(ctx, gameID)
	if err != nil {
		return nil, err
	}
	characters, err := s.ListCharacters(ctx, true)
	if err != nil {
		return nil, err
	}
	played, err := s.PlayedCharacterIDs(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return domain.SelectCandidates(characters, cfg, played), nil
}
