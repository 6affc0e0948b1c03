package db

import "time"

type Set struct {
	ID          string         `gorm:"primaryKey;type:uuid"`
	Name        string         `gorm:"size:120;not null;uniqueIndex"`
	CreatedAt   time.Time      `gorm:"not null"`
	Memberships []CharacterSet `gorm:"constraint:OnDelete:CASCADE"`
}
