package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/markbates/goth"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petermazzocco/go-pdf-watermark/internal/auth"
	"github.com/petermazzocco/go-pdf-watermark/internal/validator"
	"github.com/petermazzocco/go-pdf-watermark/models"
)

type UserService struct {
	db       *gorm.DB
	sessions *auth.Sessions
	verifier auth.TokenVerifier
	validate *validator.Validator
	log      *zap.Logger
}

func NewUserService(db *gorm.DB, sessions *auth.Sessions, verifier auth.TokenVerifier, v *validator.Validator, log *zap.Logger) *UserService {
	return &UserService{db: db, sessions: sessions, verifier: verifier, validate: v, log: log}
}

type RegisterInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	OAuthToken string `json:"oauth_token"`
	Provider   string `json:"provider"`
}

type passwordRegistration struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type RegisterResult struct {
	UserID             string `json:"user_id"`
	Email              string `json:"email"`
	RegisteredViaOAuth bool   `json:"registered_via_oauth"`
	Message            string `json:"message"`
}

// Register creates an account either from a verified OAuth token or from an email and password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email := normalizeEmail(in.Email)
	user := models.User{Role: models.RoleUser}
	viaOAuth := false

	if token := strings.TrimSpace(in.OAuthToken); token != "" {
		gu, err := s.verifier.VerifyToken(ctx, in.Provider, token)
		if err != nil {
			s.log.Info("oauth token rejected", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		providerEmail := normalizeEmail(gu.Email)
		if email != "" && email != providerEmail {
			return nil, fieldError("email", "does not match the OAuth account")
		}
		user.Email = providerEmail
		user.Name = gu.Name
		user.AvatarURL = gu.AvatarURL
		user.OAuthProvider = gu.Provider
		if user.OAuthProvider == "" {
			user.OAuthProvider = providerName(in.Provider)
		}
		viaOAuth = true
	} else {
		req := passwordRegistration{Email: email, Password: in.Password}
		if err := validate(s.validate, req); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.Email = email
		user.PasswordHash = hash
	}

	if err := s.ensureEmailFree(ctx, user.Email, ""); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID), zap.Bool("oauth", viaOAuth))
	return &RegisterResult{
		UserID:             user.ID,
		Email:              user.Email,
		RegisteredViaOAuth: viaOAuth,
		Message:            "User registered successfully.",
	}, nil
}

type UserInfo struct {
	UserID string `json:"user_id"`
	Email  string `json:"user_email"`
	Role   string `json:"user_role"`
}

type LoginResult struct {
	SessionToken string   `json:"session_token"`
	UserInfo     UserInfo `json:"user_info"`
}

// Login checks the password and issues a session token.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// keep unknown emails as slow as wrong passwords
		auth.CheckDummyPassword(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(&user)
}

// OAuthLogin finds or creates the account behind a completed provider login.
func (s *UserService) OAuthLogin(ctx context.Context, gu goth.User) (*LoginResult, error) {
	email := normalizeEmail(gu.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", ErrUnauthorized)
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:         email,
			Name:          gu.Name,
			AvatarURL:     gu.AvatarURL,
			OAuthProvider: gu.Provider,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("find user: %w", err)
	case user.OAuthProvider == "":
		if err := s.db.WithContext(ctx).Model(&user).Updates(models.User{OAuthProvider: gu.Provider}).Error; err != nil {
			return nil, fmt.Errorf("link provider: %w", err)
		}
	}
	return s.startSession(&user)
}

func (s *UserService) startSession(user *models.User) (*LoginResult, error) {
	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		SessionToken: token,
		UserInfo:     UserInfo{UserID: user.ID, Email: user.Email, Role: user.Role},
	}, nil
}

// Logout revokes token for the rest of its lifetime.
func (s *UserService) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fieldError("session_token", "this field is required")
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		if errors.Is(err, auth.ErrInvalidSession) || errors.Is(err, auth.ErrRevokedSession) {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return err
	}
	return nil
}

type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *UserService) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

type UpdateProfileInput struct {
	Email     string `json:"email" validate:"omitempty,email,max=255"`
	Password  string `json:"password" validate:"omitempty,min=8,max=72"`
	Name      string `json:"name" validate:"omitempty,max=255"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url,max=1024"`
	Bio       string `json:"bio" validate:"omitempty,max=4000"`
}

type UpdateProfileResult struct {
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	Bio          string `json:"bio,omitempty"`
	UpdateStatus string `json:"update_status"`
}

// UpdateProfile changes only the non-empty fields of in.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*UpdateProfileResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	in.Bio = strings.TrimSpace(in.Bio)
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}

	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	result := &UpdateProfileResult{UpdateStatus: "success"}
	if in.Email != "" && in.Email != user.Email {
		if err := s.ensureEmailFree(ctx, in.Email, user.ID); err != nil {
			return nil, err
		}
		updates["email"] = in.Email
		result.Email = in.Email
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}
	if in.Name != "" {
		updates["name"] = in.Name
		result.Name = in.Name
	}
	if in.AvatarURL != "" {
		updates["avatar_url"] = in.AvatarURL
		result.AvatarURL = in.AvatarURL
	}
	if in.Bio != "" {
		updates["bio"] = in.Bio
		result.Bio = in.Bio
	}
	if len(updates) == 0 {
		return result, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return result, nil
}

func (s *UserService) find(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, exceptID string) error {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: email already registered", ErrConflict)
	}
	return nil
}

func providerName(provider string) string {
	if p := strings.ToLower(strings.TrimSpace(provider)); p != "" {
		return p
	}
	return "google"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
