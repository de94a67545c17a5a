package keymanager

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/vault"
)

// KeyManager manages the keys behind sealed scoresheets: a Vault-held
// master key wraps per-user Ed25519 signing keys and per-term symmetric
// keys. The seal key for one scoresheet is derived from both.
type KeyManager struct {
	db          *sql.DB
	vault       *vault.Client
	masterKeyID string
}

// NewKeyManager creates a key manager and ensures the master key exists
func NewKeyManager(db *sql.DB, vaultClient *vault.Client) (*KeyManager, error) {
	km := &KeyManager{
		db:          db,
		vault:       vaultClient,
		masterKeyID: "appraisal-master-key",
	}

	// Creating an existing key is a no-op on the Vault side
	if err := km.vault.CreateKey(km.masterKeyID, "aes256-gcm96"); err != nil {
		return nil, fmt.Errorf("failed to initialize master key: %w", err)
	}

	return km, nil
}

// EnsureUserKey generates an Ed25519 keypair for a user if none exists
func (km *KeyManager) EnsureUserKey(userID uint) (ed25519.PublicKey, error) {
	existing, err := km.GetUserPublicKey(userID)
	if err == nil {
		return existing, nil
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("key generation failed: %w", err)
	}

	encryptedPrivateKey, err := km.vault.Encrypt(
		km.masterKeyID,
		priv,
		map[string]string{"user_id": fmt.Sprintf("%d", userID)},
	)
	if err != nil {
		return nil, fmt.Errorf("private key encryption failed: %w", err)
	}

	query := `
		INSERT INTO user_keys (user_id, public_key, encrypted_private_key, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := km.db.Exec(query, userID, hex.EncodeToString(pub), encryptedPrivateKey, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to store user key: %w", err)
	}

	return pub, nil
}

// GetUserSigningKey retrieves and unwraps a user's private signing key
func (km *KeyManager) GetUserSigningKey(userID uint) (ed25519.PrivateKey, error) {
	var encryptedPrivateKey string

	err := km.db.QueryRow(`SELECT encrypted_private_key FROM user_keys WHERE user_id = $1`, userID).Scan(&encryptedPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("user key not found: %w", err)
	}

	privateKeyBytes, err := km.vault.Decrypt(
		km.masterKeyID,
		encryptedPrivateKey,
		map[string]string{"user_id": fmt.Sprintf("%d", userID)},
	)
	if err != nil {
		return nil, fmt.Errorf("private key decryption failed: %w", err)
	}

	return privateKeyBytes, nil
}

// GetUserPublicKey retrieves a user's public key
func (km *KeyManager) GetUserPublicKey(userID uint) (ed25519.PublicKey, error) {
	var publicKeyHex string

	err := km.db.QueryRow(`SELECT public_key FROM user_keys WHERE user_id = $1`, userID).Scan(&publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("user key not found: %w", err)
	}

	publicKey, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}

	return publicKey, nil
}

// EnsureTermKey generates a 256-bit symmetric key for a term period
// ("TERM 1/2026") if none exists
func (km *KeyManager) EnsureTermKey(termID string) error {
	termKey := make([]byte, 32)
	if _, err := rand.Read(termKey); err != nil {
		return fmt.Errorf("key generation failed: %w", err)
	}

	hashBytes := sha256.Sum256(termKey)

	encryptedKey, err := km.vault.Encrypt(
		km.masterKeyID,
		termKey,
		map[string]string{"term_id": termID},
	)
	if err != nil {
		return fmt.Errorf("key encryption failed: %w", err)
	}

	query := `
		INSERT INTO term_keys (term_id, encrypted_key_material, key_hash, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (term_id) DO NOTHING
	`
	if _, err := km.db.Exec(query, termID, encryptedKey, hex.EncodeToString(hashBytes[:]), time.Now()); err != nil {
		return fmt.Errorf("failed to store term key: %w", err)
	}

	return nil
}

// GetTermKey retrieves and unwraps a term key
func (km *KeyManager) GetTermKey(termID string) ([]byte, error) {
	var encryptedKey string

	err := km.db.QueryRow(`SELECT encrypted_key_material FROM term_keys WHERE term_id = $1`, termID).Scan(&encryptedKey)
	if err != nil {
		return nil, fmt.Errorf("term key not found: %w", err)
	}

	termKey, err := km.vault.Decrypt(
		km.masterKeyID,
		encryptedKey,
		map[string]string{"term_id": termID},
	)
	if err != nil {
		return nil, fmt.Errorf("key decryption failed: %w", err)
	}

	return termKey, nil
}

// GetTermKeyHash retrieves the verification hash of a term key
func (km *KeyManager) GetTermKeyHash(termID string) (string, error) {
	var keyHash string

	err := km.db.QueryRow(`SELECT key_hash FROM term_keys WHERE term_id = $1`, termID).Scan(&keyHash)
	if err != nil {
		return "", fmt.Errorf("term key not found: %w", err)
	}

	return keyHash, nil
}

// DeriveSealKey combines the term key and the sealing user's key into the
// AES-256 key that encrypts one sealed scoresheet
func (km *KeyManager) DeriveSealKey(termID string, userID uint) ([]byte, error) {
	userKey, err := km.GetUserSigningKey(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user key: %w", err)
	}

	termKey, err := km.GetTermKey(termID)
	if err != nil {
		return nil, fmt.Errorf("failed to get term key: %w", err)
	}

	h := sha256.New()
	h.Write(termKey)
	h.Write(userKey.Seed())
	h.Write([]byte(fmt.Sprintf("term:%s:user:%d", termID, userID)))
	seed := h.Sum(nil)

	finalKey := sha256.Sum256(seed)
	return finalKey[:], nil
}

// VerifyKeyAccess checks that both the user key and the term key exist
func (km *KeyManager) VerifyKeyAccess(userID uint, termID string) error {
	var exists bool
	err := km.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM user_keys WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("user key check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("user key not found")
	}

	err = km.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM term_keys WHERE term_id = $1)`, termID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("term key check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("term key not found")
	}

	return nil
}

// MasterKeyID returns the Vault key identifier that wraps all stored keys
func (km *KeyManager) MasterKeyID() string {
	return km.masterKeyID
}
