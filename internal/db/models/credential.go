package models

import "time"

// Credential stores the delegated Google Calendar tokens for one user.
// At most one row per user; absence of a row means "not connected" and
// is a normal state, not an error.
type Credential struct {
	UserID       string `gorm:"primaryKey"`
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       string // space-separated list of granted scopes
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Usable reports whether the access token is still valid at the given
// instant, with a small leeway so a token about to expire is refreshed
// before the provider rejects it.
func (c *Credential) Usable(now time.Time, leeway time.Duration) bool {
	return c.ExpiresAt.After(now.Add(leeway))
}
