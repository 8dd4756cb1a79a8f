package groups

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/opencampus/studysync/internal/db/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a group or membership row is missing.
var ErrNotFound = errors.New("group not found")

// Service is plain membership CRUD. The sync engine only consults it
// for the admin check on event cancellation.
type Service struct {
	db *gorm.DB
}

// NewService returns a group service over the given database.
func NewService(database *gorm.DB) *Service {
	return &Service{db: database}
}

// Create makes a new group with the creator as its first admin.
func (s *Service) Create(creatorID, name string) (*models.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}
	group := models.Group{
		ID:        uuid.New().String(),
		Name:      name,
		CreatorID: creatorID,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&models.GroupMember{
			GroupID: group.ID,
			UserID:  creatorID,
			Role:    models.RoleAdmin,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// AddMember adds a user to a group. Re-adding an existing member is a
// no-op.
func (s *Service) AddMember(groupID, userID, role string) error {
	if role != models.RoleAdmin {
		role = models.RoleMember
	}
	var group models.Group
	if err := s.db.First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	already, err := s.IsMember(groupID, userID)
	if err != nil || already {
		return err
	}
	return s.db.Create(&models.GroupMember{GroupID: groupID, UserID: userID, Role: role}).Error
}

// RemoveMember removes a user from a group.
func (s *Service) RemoveMember(groupID, userID string) error {
	res := s.db.Delete(&models.GroupMember{}, "group_id = ? AND user_id = ?", groupID, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Members lists a group's membership rows.
func (s *Service) Members(groupID string) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := s.db.Where("group_id = ?", groupID).Find(&members).Error
	return members, err
}

// IsMember reports whether a user belongs to a group.
func (s *Service) IsMember(groupID, userID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

// IsAdmin reports whether a user holds the admin role in a group.
func (s *Service) IsAdmin(groupID, userID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND role = ?", groupID, userID, models.RoleAdmin).
		Count(&count).Error
	return count > 0, err
}
