package db

import (
	"errors"
	"time"

	"github.com/opencampus/studysync/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialStore is the durable per-user record of delegated calendar
// tokens. It holds no protocol logic: callers decide what an expired or
// missing row means. Absence is reported as (nil, false, nil), never as
// an error, because "not connected" is a normal state.
type CredentialStore struct {
	db *gorm.DB
}

// NewCredentialStore returns a store backed by the given database.
func NewCredentialStore(database *gorm.DB) *CredentialStore {
	return &CredentialStore{db: database}
}

// Get returns the credential row for a user, or found=false when the
// user has never connected a calendar.
func (s *CredentialStore) Get(userID string) (*models.Credential, bool, error) {
	var cred models.Credential
	err := s.db.First(&cred, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &cred, true, nil
}

// Upsert overwrites the user's credential row with the given tokens.
// Re-authorization replaces the row wholesale rather than merging.
func (s *CredentialStore) Upsert(userID, accessToken, refreshToken string, expiresAt time.Time, scopes string) error {
	cred := models.Credential{
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		Scopes:       scopes,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&cred).Error
}

// Delete removes the user's credential row. Returns found=false when
// there was nothing to delete, so disconnect can answer 404 the second
// time without treating it as a failure.
func (s *CredentialStore) Delete(userID string) (bool, error) {
	res := s.db.Delete(&models.Credential{}, "user_id = ?", userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
