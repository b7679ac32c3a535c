// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/validation"
)

type UserService struct {
	db      *gorm.DB
	storage ObjectStorage
	avatars UploadOptions
}

type UpdateUserProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,phone"`
}

func NewUserService(db *gorm.DB, storage ObjectStorage, avatars UploadOptions) *UserService {
	return &UserService{
		db:      db,
		storage: storage,
		avatars: avatars,
	}
}

func (s *UserService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, models.NewNotFound("user", userID)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFound("user", userID)
		}
		return nil, models.WrapCollaborator(collaboratorIdentity, "get user", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *UpdateUserProfileRequest) (*models.User, error) {
	if err := validation.Check(req, i18n.KeyValidationFailed); err != nil {
		return nil, err
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*req.DisplayName)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, models.WrapCollaborator(collaboratorIdentity, "update profile", err)
	}
	return s.GetUserByID(ctx, userID)
}

// UpdateAvatar uploads a new picture and then deletes the previous one. A
// failed delete only leaves an orphaned object behind, so it is logged.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.storage.UploadFile(ctx, file, header, s.avatars)
	if err != nil {
		return nil, err
	}

	previousKey := user.AvatarKey
	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"avatar_url": result.URL,
		"avatar_key": result.Key,
	}).Error; err != nil {
		if delErr := s.storage.DeleteFile(ctx, result.Key); delErr != nil {
			logrus.WithError(delErr).WithField("key", result.Key).Warn("Failed to delete unused avatar")
		}
		return nil, models.WrapCollaborator(collaboratorIdentity, "update avatar", err)
	}

	if previousKey != "" && previousKey != result.Key {
		if err := s.storage.DeleteFile(ctx, previousKey); err != nil {
			logrus.WithError(err).WithField("key", previousKey).Warn("Failed to delete previous avatar")
		}
	}

	user.AvatarURL = result.URL
	user.AvatarKey = result.Key
	return user, nil
}
