// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
	"github.com/javajoker/storefront/internal/validation"
)

const collaboratorIdentity = "identity"

// WelcomeMailer greets new accounts. Optional.
type WelcomeMailer interface {
	SendWelcomeEmail(user *models.User) error
}

type AuthService struct {
	db     *gorm.DB
	cfg    *config.Config
	mailer WelcomeMailer
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,strong_password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"` // in seconds
}

func NewAuthService(db *gorm.DB, cfg *config.Config, mailer WelcomeMailer) *AuthService {
	return &AuthService{
		db:     db,
		cfg:    cfg,
		mailer: mailer,
	}
}

func invalidCredentials() error {
	return models.NewDomainError(models.KindUnauthorized, i18n.KeyAuthInvalidCredentials, "invalid email or password")
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := validation.Check(req, i18n.KeyValidationFailed); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Check if user already exists
	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, models.WrapCollaborator(collaboratorIdentity, "check email", err)
	}
	if existing > 0 {
		return nil, models.NewDomainError(models.KindConflict, i18n.KeyAuthUserExists, "user with this email already exists")
	}

	user := &models.User{
		Email:       email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        models.UserRoleCustomer,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, models.WrapCollaborator(collaboratorIdentity, "create user", err)
	}

	logrus.WithField("user_id", user.ID).Info("User registered")

	if s.mailer != nil {
		go func(u models.User) {
			if err := s.mailer.SendWelcomeEmail(&u); err != nil {
				logrus.WithError(err).WithField("user_id", u.ID).Warn("Failed to send welcome email")
			}
		}(*user)
	}

	return s.issueTokens(user)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := validation.Check(req, i18n.KeyValidationFailed); err != nil {
		return nil, err
	}

	// Find user by email
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidCredentials()
		}
		return nil, models.WrapCollaborator(collaboratorIdentity, "find user", err)
	}

	// Verify password
	if err := user.CheckPassword(req.Password); err != nil {
		return nil, invalidCredentials()
	}

	// Update last login time
	now := time.Now()
	user.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(&user).UpdateColumn("last_login_at", now).Error; err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	}

	return s.issueTokens(&user)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	userID, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, models.NewDomainError(models.KindUnauthorized, i18n.KeyAuthInvalidToken, "invalid refresh token")
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewDomainError(models.KindUnauthorized, i18n.KeyAuthInvalidToken, "user no longer exists")
		}
		return nil, err
	}
	return s.issueTokens(user)
}

func (s *AuthService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
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

func (s *AuthService) issueTokens(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(
		user.ID.String(),
		user.Email,
		user.DisplayName,
		string(user.Role),
		s.cfg.JWT.AccessTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID.String(), s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.cfg.JWT.AccessTokenTTL * 3600, // Convert hours to seconds
	}, nil
}
