package models

import (
	"time"

	"gorm.io/gorm"
)

// ChatHistory persists one user's trimmed conversation as a JSON array of
// ChatTurn values. A single row per user keeps the whole-list write atomic.
type ChatHistory struct {
	gorm.Model
	UserID    string `gorm:"uniqueIndex;not null"`
	Turns     string
	ExpiresAt time.Time `gorm:"index"`
}

// UserLocation remembers the last position a user shared.
type UserLocation struct {
	gorm.Model
	UserID    string `gorm:"uniqueIndex;not null"`
	Latitude  float64
	Longitude float64
	Address   string
	ExpiresAt time.Time `gorm:"index"`
}

// PendingQuery holds a nearby-search term waiting for a location share.
// Reading it consumes it.
type PendingQuery struct {
	gorm.Model
	UserID    string `gorm:"uniqueIndex;not null"`
	Query     string
	ExpiresAt time.Time `gorm:"index"`
}

// InputMode marks what the next uploaded image should be used for.
type InputMode struct {
	gorm.Model
	UserID string `gorm:"uniqueIndex;not null"`
	Mode   string
}

// TodoList persists a user's todo items as a JSON array of strings.
type TodoList struct {
	gorm.Model
	UserID    string `gorm:"uniqueIndex;not null"`
	Items     string
	ExpiresAt time.Time `gorm:"index"`
}
