package securestore

import (
	"crypto/ed25519"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/keymanager"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/vault"
)

const genesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// SealedScoresheet is the encrypted, signed snapshot of a completed
// appraisal. Sheets sealed within one term form a hash chain so that
// removing or reordering a sheet after the fact is detectable.
type SealedScoresheet struct {
	ID                 int64     `json:"id"`
	AppraisalID        uint      `json:"appraisal_id"`
	TermID             string    `json:"term_id"`
	SealedBy           uint      `json:"sealed_by"`
	CreatedAt          time.Time `json:"created_at"`
	EncryptedData      []byte    `json:"-"`
	EncryptionNonce    []byte    `json:"-"`
	EncryptionTag      []byte    `json:"-"`
	MasterKeyID        string    `json:"master_key_id"`
	TermKeyHash        string    `json:"term_key_hash"`
	DataSignature      string    `json:"data_signature"`
	SignaturePublicKey string    `json:"signature_public_key"`
	PrevRecordHash     string    `json:"prev_record_hash"`
	ChainHash          string    `json:"chain_hash"`
}

// ScoresheetPayload is the plaintext sealed into a record: the final
// document plus the derived score summary at completion time.
type ScoresheetPayload struct {
	AppraisalID   uint              `json:"appraisal_id"`
	AppraiseeName string            `json:"appraisee_name"`
	AppraiserName string            `json:"appraiser_name"`
	Role          string            `json:"role"`
	Term          string            `json:"term"`
	Year          string            `json:"year"`
	OverallScore  float64           `json:"overall_score"`
	Band          string            `json:"band"`
	Document      json.RawMessage   `json:"document"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// SealStore persists sealed scoresheets with a per-term hash chain
type SealStore struct {
	db         *sql.DB
	keyManager *keymanager.KeyManager
}

// NewSealStore creates a new SealStore
func NewSealStore(db *sql.DB, keyManager *keymanager.KeyManager) *SealStore {
	return &SealStore{db: db, keyManager: keyManager}
}

// Seal encrypts, signs and stores a scoresheet snapshot. The sealing user
// is the appraiser completing the appraisal; their Ed25519 key signs the
// ciphertext.
func (ss *SealStore) Seal(termID string, sealedBy uint, payload *ScoresheetPayload) (*SealedScoresheet, error) {
	if err := ss.keyManager.VerifyKeyAccess(sealedBy, termID); err != nil {
		return nil, fmt.Errorf("key access verification failed: %w", err)
	}

	plainBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal failed: %w", err)
	}

	sealKey, err := ss.keyManager.DeriveSealKey(termID, sealedBy)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}

	signingKey, err := ss.keyManager.GetUserSigningKey(sealedBy)
	if err != nil {
		return nil, fmt.Errorf("signing key retrieval failed: %w", err)
	}

	additionalData := sealAAD(termID, sealedBy, payload.AppraisalID)
	ciphertext, nonce, err := vault.EncryptLocal(plainBytes, sealKey, additionalData)
	if err != nil {
		return nil, fmt.Errorf("encryption failed: %w", err)
	}

	// GCM appends a 16 byte tag; store it separately
	tagSize := 16
	encryptedData := ciphertext[:len(ciphertext)-tagSize]
	tag := ciphertext[len(ciphertext)-tagSize:]

	signature := ed25519.Sign(signingKey, signatureInput(encryptedData, nonce, tag))

	prevHash, err := ss.latestHash(termID)
	if err != nil {
		return nil, fmt.Errorf("prev hash retrieval failed: %w", err)
	}

	now := time.Now().UTC()
	chainInput := fmt.Sprintf("%s:%s:%d:%s:%d",
		prevHash,
		hex.EncodeToString(signature),
		sealedBy,
		termID,
		now.Unix(),
	)
	chainHashBytes := sha256.Sum256([]byte(chainInput))

	termKeyHash, err := ss.keyManager.GetTermKeyHash(termID)
	if err != nil {
		return nil, fmt.Errorf("term key hash retrieval failed: %w", err)
	}

	record := &SealedScoresheet{
		AppraisalID:        payload.AppraisalID,
		TermID:             termID,
		SealedBy:           sealedBy,
		CreatedAt:          now,
		EncryptedData:      encryptedData,
		EncryptionNonce:    nonce,
		EncryptionTag:      tag,
		MasterKeyID:        ss.keyManager.MasterKeyID(),
		TermKeyHash:        termKeyHash,
		DataSignature:      hex.EncodeToString(signature),
		SignaturePublicKey: hex.EncodeToString(ed25519.PublicKey(signingKey[32:])),
		PrevRecordHash:     prevHash,
		ChainHash:          hex.EncodeToString(chainHashBytes[:]),
	}

	if err := ss.insert(record); err != nil {
		return nil, fmt.Errorf("database insert failed: %w", err)
	}

	return record, nil
}

// Unseal verifies the signature of a sealed scoresheet and decrypts its
// payload
func (ss *SealStore) Unseal(record *SealedScoresheet) (*ScoresheetPayload, error) {
	publicKey, err := hex.DecodeString(record.SignaturePublicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}

	signature, err := hex.DecodeString(record.DataSignature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}

	input := signatureInput(record.EncryptedData, record.EncryptionNonce, record.EncryptionTag)
	if !ed25519.Verify(ed25519.PublicKey(publicKey), input, signature) {
		return nil, fmt.Errorf("signature verification failed, sheet may be tampered")
	}

	sealKey, err := ss.keyManager.DeriveSealKey(record.TermID, record.SealedBy)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}

	additionalData := sealAAD(record.TermID, record.SealedBy, record.AppraisalID)
	ciphertext := append(append([]byte{}, record.EncryptedData...), record.EncryptionTag...)
	plainBytes, err := vault.DecryptLocal(ciphertext, sealKey, record.EncryptionNonce, additionalData)
	if err != nil {
		return nil, fmt.Errorf("decryption failed, sheet may be corrupted: %w", err)
	}

	var payload ScoresheetPayload
	if err := json.Unmarshal(plainBytes, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal failed: %w", err)
	}

	return &payload, nil
}

// GetByAppraisal retrieves the latest sealed scoresheet for an appraisal
func (ss *SealStore) GetByAppraisal(appraisalID uint) (*SealedScoresheet, error) {
	record, err := ss.load(`WHERE appraisal_id = $1 ORDER BY id DESC LIMIT 1`, appraisalID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sealed scoresheet: %w", err)
	}
	return record, nil
}

// VerifyChain walks every sealed scoresheet of a term in insertion order and
// reports chain breaks and signature failures
func (ss *SealStore) VerifyChain(termID string) (bool, []string, error) {
	rows, err := ss.db.Query(sealedColumnsQuery+` WHERE term_id = $1 ORDER BY id ASC`, termID)
	if err != nil {
		return false, nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	prevHash := genesisHash
	recordCount := 0
	var problems []string

	for rows.Next() {
		record, err := scanSealed(rows)
		if err != nil {
			return false, nil, fmt.Errorf("scan failed: %w", err)
		}

		if record.PrevRecordHash != prevHash {
			problems = append(problems, fmt.Sprintf("chain broken at sheet %d: expected prev_hash=%s, got=%s",
				record.ID, prevHash, record.PrevRecordHash))
		}

		publicKey, err := hex.DecodeString(record.SignaturePublicKey)
		if err != nil {
			problems = append(problems, fmt.Sprintf("sheet %d: invalid public key", record.ID))
			prevHash = record.ChainHash
			continue
		}

		signature, err := hex.DecodeString(record.DataSignature)
		if err != nil {
			problems = append(problems, fmt.Sprintf("sheet %d: invalid signature", record.ID))
			prevHash = record.ChainHash
			continue
		}

		input := signatureInput(record.EncryptedData, record.EncryptionNonce, record.EncryptionTag)
		if !ed25519.Verify(ed25519.PublicKey(publicKey), input, signature) {
			problems = append(problems, fmt.Sprintf("sheet %d: signature verification failed", record.ID))
		}

		prevHash = record.ChainHash
		recordCount++
	}
	if err := rows.Err(); err != nil {
		return false, nil, err
	}

	if len(problems) > 0 {
		return false, problems, nil
	}

	return true, []string{fmt.Sprintf("chain verified: %d sheets intact", recordCount)}, nil
}

// Terms lists every term that has sealed scoresheets
func (ss *SealStore) Terms() ([]string, error) {
	rows, err := ss.db.Query(`SELECT DISTINCT term_id FROM sealed_scoresheets ORDER BY term_id`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}

	return terms, rows.Err()
}

func sealAAD(termID string, sealedBy, appraisalID uint) []byte {
	return []byte(fmt.Sprintf("term:%s:user:%d:appraisal:%d", termID, sealedBy, appraisalID))
}

func signatureInput(encryptedData, nonce, tag []byte) []byte {
	input := append(append([]byte{}, encryptedData...), nonce...)
	return append(input, tag...)
}

const sealedColumnsQuery = `
	SELECT id, appraisal_id, term_id, sealed_by, created_at, encrypted_data,
	       encryption_nonce, encryption_tag, master_key_id, term_key_hash,
	       data_signature, signature_public_key, prev_record_hash, chain_hash
	FROM sealed_scoresheets
`

func scanSealed(row interface{ Scan(...interface{}) error }) (*SealedScoresheet, error) {
	record := &SealedScoresheet{}
	err := row.Scan(
		&record.ID,
		&record.AppraisalID,
		&record.TermID,
		&record.SealedBy,
		&record.CreatedAt,
		&record.EncryptedData,
		&record.EncryptionNonce,
		&record.EncryptionTag,
		&record.MasterKeyID,
		&record.TermKeyHash,
		&record.DataSignature,
		&record.SignaturePublicKey,
		&record.PrevRecordHash,
		&record.ChainHash,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// latestHash retrieves the latest chain hash for a term
func (ss *SealStore) latestHash(termID string) (string, error) {
	var hash string
	err := ss.db.QueryRow(`
		SELECT chain_hash
		FROM sealed_scoresheets
		WHERE term_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, termID).Scan(&hash)

	if err == sql.ErrNoRows {
		// Genesis block: no previous hash
		return genesisHash, nil
	}

	return hash, err
}

func (ss *SealStore) load(where string, args ...interface{}) (*SealedScoresheet, error) {
	return scanSealed(ss.db.QueryRow(sealedColumnsQuery+" "+where, args...))
}

func (ss *SealStore) insert(record *SealedScoresheet) error {
	query := `
		INSERT INTO sealed_scoresheets (
			appraisal_id, term_id, sealed_by, created_at, encrypted_data,
			encryption_nonce, encryption_tag, master_key_id, term_key_hash,
			data_signature, signature_public_key, prev_record_hash, chain_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	return ss.db.QueryRow(
		query,
		record.AppraisalID,
		record.TermID,
		record.SealedBy,
		record.CreatedAt,
		record.EncryptedData,
		record.EncryptionNonce,
		record.EncryptionTag,
		record.MasterKeyID,
		record.TermKeyHash,
		record.DataSignature,
		record.SignaturePublicKey,
		record.PrevRecordHash,
		record.ChainHash,
	).Scan(&record.ID)
}
