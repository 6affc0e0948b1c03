package db

import "time"

type Character struct {
	ID             string            `gorm:"primaryKey;type:uuid"`
	Name           string            `gorm:"size:120;not null;index"`
	ImageURL       string            `gorm:"not null"`
	CreatedAt      time.Time         `gorm:"not null"`
	UpdatedAt      time.Time         `gorm:"not null"`
	ForbiddenWords []ForbiddenWord   `gorm:"constraint:OnDelete:CASCADE"`
	Memberships    []CharacterSet    `gorm:"constraint:OnDelete:CASCADE"`
	Played         []PlayedCharacter `gorm:"constraint:OnDelete:CASCADE"`
}

type ForbiddenWord struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	CharacterID string `gorm:"type:uuid;index;not null"`
	Position    int    `gorm:"not null;default:0"`
	Word        string `gorm:"size:120;not null"`
}

type CharacterSet struct {
	ID          string    `gorm:"primaryKey;type:uuid"`
	CharacterID string    `gorm:"type:uuid;not null;uniqueIndex:idx_character_sets_character_set"`
	SetID       string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_character_sets_character_set"`
	AssignedAt  time.Time `gorm:"not null"`
}
