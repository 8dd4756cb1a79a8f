package models

import "time"

// User is a student account. SessionToken is the opaque bearer token
// issued by the session layer; the sync engine only reads it for
// request authentication.
type User struct {
	ID           string `gorm:"primaryKey"` // UUID
	Email        string `gorm:"uniqueIndex"`
	Name         string
	SessionToken string `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
