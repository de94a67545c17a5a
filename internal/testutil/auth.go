package testutil

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
)

// AuthHelper issues tokens that the real auth middleware accepts: the claim
// shape matches the production token service and a matching session row is
// written so the JTI lookup succeeds.
type AuthHelper struct {
	JWTSecret string
	DB        *sql.DB
}

// NewAuthHelper creates a new auth helper
func NewAuthHelper(db *sql.DB) *AuthHelper {
	return &AuthHelper{
		JWTSecret: "test-secret-key-for-testing-only",
		DB:        db,
	}
}

// IssueAccessToken signs an access token for the user and records its
// session
func (h *AuthHelper) IssueAccessToken(t *testing.T, user *models.User) string {
	t.Helper()

	jti := randomHex(t, 16)
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":    user.ID,
		"email":      user.Email,
		"token_type": "access",
		"jti":        jti,
		"sub":        strconv.FormatUint(uint64(user.ID), 10),
		"iat":        now.Unix(),
		"exp":        now.Add(time.Hour).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.JWTSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := h.DB.Exec(`
		INSERT INTO sessions (id, user_id, jti, token_type, expires_at, last_activity_at, ip_address, user_agent)
		VALUES ($1, $2, $3, 'access', $4, NOW(), '127.0.0.1', 'testutil')
	`, randomHex(t, 16), user.ID, jti, now.Add(time.Hour)); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	return token
}

// AuthenticatedRequest creates a request carrying a valid bearer token
func (h *AuthHelper) AuthenticatedRequest(t *testing.T, method, url string, user *models.User) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, url, nil)
	req.Header.Set("Authorization", "Bearer "+h.IssueAccessToken(t, user))
	return req
}

func randomHex(t *testing.T, n int) string {
	t.Helper()

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("Failed to generate random bytes: %v", err)
	}
	return hex.EncodeToString(b)
}

// TestResponse wraps a recorder with status assertions
type TestResponse struct {
	*httptest.ResponseRecorder
}

// NewTestResponse creates a new test response recorder
func NewTestResponse() *TestResponse {
	return &TestResponse{ResponseRecorder: httptest.NewRecorder()}
}

// AssertStatus asserts the HTTP status code
func (r *TestResponse) AssertStatus(t *testing.T, expected int) {
	t.Helper()

	if r.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, r.Code, r.Body.String())
	}
}
