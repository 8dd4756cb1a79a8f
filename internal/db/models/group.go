package models

import "time"

// Group member roles.
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// Group is a study group. Membership gates group events: only members
// may be invited and only the creator or a group admin may cancel.
type Group struct {
	ID        string `gorm:"primaryKey"` // UUID
	Name      string
	CreatorID string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupMember links a user to a group with a role.
type GroupMember struct {
	GroupID   string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
	Role      string `gorm:"default:MEMBER"`
	CreatedAt time.Time
}
