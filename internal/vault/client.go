package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/config"
)

// Client wraps the HashiCorp Vault transit engine used for key wrapping
type Client struct {
	client       *api.Client
	transitMount string
}

// NewClient creates a new Vault client and ensures the transit engine is
// mounted
func NewClient(cfg *config.VaultConfig) (*Client, error) {
	apiConfig := api.DefaultConfig()
	apiConfig.Address = cfg.Address

	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)

	c := &Client{
		client:       client,
		transitMount: cfg.TransitMount,
	}

	if err := c.initTransitEngine(); err != nil {
		return nil, fmt.Errorf("failed to initialize transit engine: %w", err)
	}

	return c, nil
}

func (c *Client) initTransitEngine() error {
	ctx := context.Background()

	mounts, err := c.client.Sys().ListMountsWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to list mounts: %w", err)
	}

	if _, exists := mounts[c.transitMount+"/"]; exists {
		return nil
	}

	err = c.client.Sys().MountWithContext(ctx, c.transitMount, &api.MountInput{
		Type:        "transit",
		Description: "Transit encryption for sealed appraisal scoresheets",
		Config: api.MountConfigInput{
			DefaultLeaseTTL: "768h",
			MaxLeaseTTL:     "8760h",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to mount transit engine: %w", err)
	}

	return nil
}

// CreateKey creates a transit encryption key if it does not exist
func (c *Client) CreateKey(keyName, keyType string) error {
	path := fmt.Sprintf("%s/keys/%s", c.transitMount, keyName)

	data := map[string]interface{}{
		"type":       keyType,
		"exportable": false,
		"derived":    false,
	}

	if _, err := c.client.Logical().WriteWithContext(context.Background(), path, data); err != nil {
		return fmt.Errorf("failed to create key %s: %w", keyName, err)
	}

	return nil
}

// Encrypt encrypts data using the transit engine. The context map is bound
// to the ciphertext and must be supplied again to decrypt.
func (c *Client) Encrypt(keyName string, plaintext []byte, bindings map[string]string) (string, error) {
	path := fmt.Sprintf("%s/encrypt/%s", c.transitMount, keyName)

	data := map[string]interface{}{
		"plaintext": base64.StdEncoding.EncodeToString(plaintext),
	}
	if len(bindings) > 0 {
		data["context"] = base64.StdEncoding.EncodeToString([]byte(encodeBindings(bindings)))
	}

	secret, err := c.client.Logical().WriteWithContext(context.Background(), path, data)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}

	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok {
		return "", fmt.Errorf("invalid ciphertext response")
	}

	return ciphertext, nil
}

// Decrypt decrypts transit-encrypted data
func (c *Client) Decrypt(keyName, ciphertext string, bindings map[string]string) ([]byte, error) {
	path := fmt.Sprintf("%s/decrypt/%s", c.transitMount, keyName)

	data := map[string]interface{}{
		"ciphertext": ciphertext,
	}
	if len(bindings) > 0 {
		data["context"] = base64.StdEncoding.EncodeToString([]byte(encodeBindings(bindings)))
	}

	secret, err := c.client.Logical().WriteWithContext(context.Background(), path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	encoded, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid plaintext response")
	}

	plaintext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plaintext: %w", err)
	}

	return plaintext, nil
}

// Health checks Vault health status
func (c *Client) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if !health.Initialized {
		return fmt.Errorf("vault is not initialized")
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}

	return nil
}

// encodeBindings renders the binding map deterministically so the same map
// always produces the same AAD
func encodeBindings(bindings map[string]string) string {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := ""
	for _, k := range keys {
		result += fmt.Sprintf("%s=%s;", k, bindings[k])
	}
	return result
}

// EncryptLocal performs AES-256-GCM encryption with the given key
func EncryptLocal(plaintext, key, additionalData []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("cipher creation failed: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("GCM creation failed: %w", err)
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("nonce generation failed: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, additionalData)
	return ciphertext, nonce, nil
}

// DecryptLocal performs AES-256-GCM decryption with the given key
func DecryptLocal(ciphertext, key, nonce, additionalData []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher creation failed: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("GCM creation failed: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}

// HashData creates a SHA-256 hash of data
func HashData(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
