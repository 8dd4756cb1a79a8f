package db

import (
	"errors"

	"github.com/opencampus/studysync/internal/db/models"
	"gorm.io/gorm"
)

// FindUser returns the user row, or found=false when no such user
// exists.
func FindUser(database *gorm.DB, userID string) (*models.User, bool, error) {
	var user models.User
	err := database.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

// FindUserBySessionToken resolves a bearer session token to its user.
func FindUserBySessionToken(database *gorm.DB, token string) (*models.User, bool, error) {
	if token == "" {
		return nil, false, nil
	}
	var user models.User
	err := database.First(&user, "session_token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &user, true, nil
}
