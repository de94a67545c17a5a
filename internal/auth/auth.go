package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/config"
)

// Claims are the JWT claims carried by access and refresh tokens.
type Claims struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Service provides password hashing and JWT token handling
type Service struct {
	cfg *config.JWTConfig
}

// NewService creates a new auth service
func NewService(cfg *config.JWTConfig) *Service {
	return &Service{cfg: cfg}
}

// HashPassword hashes a password using bcrypt
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a bcrypt hash with a plaintext password
func (s *Service) VerifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// GenerateToken creates a signed access token and returns it with its JTI.
func (s *Service) GenerateToken(userID uint, email string) (string, string, error) {
	return s.generate(userID, email, "access", s.cfg.Expiration)
}

// GenerateRefreshToken creates a signed refresh token and returns it with its JTI.
func (s *Service) GenerateRefreshToken(userID uint, email string) (string, string, error) {
	return s.generate(userID, email, "refresh", s.cfg.RefreshExpiration)
}

func (s *Service) generate(userID uint, email, tokenType string, expiration time.Duration) (string, string, error) {
	jti, err := GenerateRandomToken(16)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate token id: %w", err)
	}

	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, jti, nil
}

// ValidateToken parses and verifies a signed token and returns its claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// GenerateRandomToken returns a hex-encoded random string of n bytes
func GenerateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
