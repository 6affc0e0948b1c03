package db

import (
	"time"

	"gorm.io/datatypes"
)

type Event struct {
	ID          uint           `gorm:"primaryKey"`
	GameID      string         `gorm:"type:uuid;index;not null"`
	CharacterID *string        `gorm:"type:uuid;index"`
	Type        string         `gorm:"size:64;not null"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time      `gorm:"not null"`
}
