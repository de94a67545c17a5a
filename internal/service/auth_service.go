package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/auth"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/config"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is inactive")
)

// TokenPair bundles the issued tokens of one login
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthService handles authentication business logic
type AuthService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	authSvc     *auth.Service
	jwtCfg      *config.JWTConfig
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	authSvc *auth.Service,
	jwtCfg *config.JWTConfig,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		authSvc:     authSvc,
		jwtCfg:      jwtCfg,
	}
}

// Login authenticates a user, records sessions for both tokens and returns
// the token pair
func (s *AuthService) Login(email, password, ipAddress, userAgent string) (*TokenPair, *models.User, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.authSvc.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, nil, ErrUserInactive
	}

	accessToken, accessJTI, err := s.authSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshJTI, err := s.authSvc.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now()
	if err := s.createSession(user.ID, accessJTI, "access", ipAddress, userAgent, now.Add(s.jwtCfg.Expiration)); err != nil {
		return nil, nil, err
	}
	if err := s.createSession(user.ID, refreshJTI, "refresh", ipAddress, userAgent, now.Add(s.jwtCfg.RefreshExpiration)); err != nil {
		return nil, nil, err
	}

	_ = s.userRepo.UpdateLastLogin(user.ID)

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtCfg.Expiration.Seconds()),
	}, user, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The used
// refresh session is revoked so each refresh token works exactly once.
func (s *AuthService) Refresh(refreshToken, ipAddress, userAgent string) (*TokenPair, error) {
	claims, err := s.authSvc.ValidateToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if claims.TokenType != "refresh" {
		return nil, fmt.Errorf("token is not a refresh token")
	}

	if _, err := s.sessionRepo.GetByJTI(claims.ID); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if err := s.sessionRepo.DeleteByJTI(claims.ID); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	accessToken, accessJTI, err := s.authSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	newRefreshToken, refreshJTI, err := s.authSvc.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now()
	if err := s.createSession(user.ID, accessJTI, "access", ipAddress, userAgent, now.Add(s.jwtCfg.Expiration)); err != nil {
		return nil, err
	}
	if err := s.createSession(user.ID, refreshJTI, "refresh", ipAddress, userAgent, now.Add(s.jwtCfg.RefreshExpiration)); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    int64(s.jwtCfg.Expiration.Seconds()),
	}, nil
}

// Logout revokes the session of the presented access token
func (s *AuthService) Logout(jti string) error {
	return s.sessionRepo.DeleteByJTI(jti)
}

// LogoutEverywhere revokes every session of a user
func (s *AuthService) LogoutEverywhere(userID uint) error {
	return s.sessionRepo.DeleteAllUserSessions(userID)
}

// ChangePassword verifies the current password and sets a new one; all
// existing sessions are revoked
func (s *AuthService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.authSvc.VerifyPassword(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}

	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := s.authSvc.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(userID, hash); err != nil {
		return err
	}

	return s.sessionRepo.DeleteAllUserSessions(userID)
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	return s.userRepo.GetByID(userID)
}

func (s *AuthService) createSession(userID uint, jti, tokenType, ipAddress, userAgent string, expiresAt time.Time) error {
	id, err := auth.GenerateRandomToken(16)
	if err != nil {
		return fmt.Errorf("failed to generate session entry ID: %w", err)
	}

	now := time.Now()
	return s.sessionRepo.Create(&models.Session{
		ID:             id,
		UserID:         userID,
		JTI:            jti,
		TokenType:      tokenType,
		ExpiresAt:      expiresAt,
		LastActivityAt: now,
		CreatedAt:      now,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
	})
}
