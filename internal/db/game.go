package db

import (
	"time"

	"gorm.io/datatypes"
)

type Game struct {
	ID string `gorm:"primaryKey;type:uuid"`
	// AllowedSets is NULL for unrestricted games, otherwise a JSON array of set IDs.
	AllowedSets  datatypes.JSON    `gorm:"type:jsonb"`
	IncludeNoSet bool              `gorm:"not null"`
	CreatedAt    time.Time         `gorm:"not null"`
	Played       []PlayedCharacter `gorm:"constraint:OnDelete:CASCADE"`
	Events       []Event           `gorm:"constraint:OnDelete:CASCADE"`
}

type PlayedCharacter struct {
	ID          string    `gorm:"primaryKey;type:uuid"`
	GameID      string    `gorm:"type:uuid;not null;uniqueIndex:idx_played_characters_game_character"`
	CharacterID string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_played_characters_game_character"`
	PlayedAt    time.Time `gorm:"not null"`
}
