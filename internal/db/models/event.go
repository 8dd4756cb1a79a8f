package models

import "time"

// Event status values.
const (
	EventConfirmed = "CONFIRMED"
	EventCancelled = "CANCELLED"
	EventTentative = "TENTATIVE"
)

// Attendee response status values.
const (
	ResponsePending   = "PENDING"
	ResponseAccepted  = "ACCEPTED"
	ResponseDeclined  = "DECLINED"
	ResponseTentative = "TENTATIVE"
)

// Event is a locally owned study event. ExternalEventID is set only
// after the organizer-side Google Calendar create succeeded at least
// once; it stays empty when the creator has no connected calendar and
// that must never block any local operation.
type Event struct {
	ID              string `gorm:"primaryKey"` // UUID
	Title           string
	Description     string
	Location        string
	StartTime       time.Time
	EndTime         time.Time
	CreatorID       string `gorm:"index"`
	GroupID         string `gorm:"index"` // empty when not a group event
	ExternalEventID string
	ExternalICalUID string `gorm:"column:external_ical_uid"` // provider cross-calendar UID, used for attendee imports
	Recurrence      string // newline-joined RRULE strings, e.g. "RRULE:FREQ=WEEKLY;COUNT=4"
	ReminderMinutes string // comma-joined popup reminder offsets; empty = provider default
	Status          string `gorm:"default:CONFIRMED"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Attendee links a user to an event. One row per (event, user) pair,
// created at event-creation time for every invited user including the
// creator. The local responseStatus is authoritative; external
// mirroring failure never reverts it.
type Attendee struct {
	EventID        string `gorm:"primaryKey"`
	UserID         string `gorm:"primaryKey"`
	ResponseStatus string `gorm:"default:PENDING"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
