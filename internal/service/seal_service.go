package service

import (
	"encoding/json"
	"fmt"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/keymanager"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/scoring"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/securestore"
)

// SealService seals the scoresheet of a completed appraisal: the final
// document plus derived scores are encrypted, signed with the appraiser's
// key and appended to the term's hash chain.
type SealService struct {
	keyManager *keymanager.KeyManager
	sealStore  *securestore.SealStore
}

// NewSealService creates a new seal service
func NewSealService(keyManager *keymanager.KeyManager, sealStore *securestore.SealStore) *SealService {
	return &SealService{keyManager: keyManager, sealStore: sealStore}
}

// termID derives the chain identifier from the appraisal period
func termID(term, year string) string {
	return fmt.Sprintf("%s/%s", term, year)
}

// Seal snapshots and seals one completed appraisal
func (s *SealService) Seal(appraisal *models.AppraisalWithNames, category models.JobCategory) (*securestore.SealedScoresheet, error) {
	tid := termID(appraisal.Term, appraisal.Year)

	if _, err := s.keyManager.EnsureUserKey(appraisal.AppraiserID); err != nil {
		return nil, fmt.Errorf("failed to ensure appraiser key: %w", err)
	}
	if err := s.keyManager.EnsureTermKey(tid); err != nil {
		return nil, fmt.Errorf("failed to ensure term key: %w", err)
	}

	document, err := json.Marshal(appraisal.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	result := scoring.Total(&appraisal.Data, category)
	role := ""
	if appraisal.Role != nil {
		role = string(*appraisal.Role)
	}

	payload := &securestore.ScoresheetPayload{
		AppraisalID:   appraisal.ID,
		AppraiseeName: appraisal.AppraiseeName,
		AppraiserName: appraisal.AppraiserName,
		Role:          role,
		Term:          appraisal.Term,
		Year:          appraisal.Year,
		OverallScore:  result.Total,
		Band:          result.Band,
		Document:      document,
	}

	return s.sealStore.Seal(tid, appraisal.AppraiserID, payload)
}

// SealInfo is the verification data exposed for one sealed scoresheet
type SealInfo struct {
	Sealed             bool     `json:"sealed"`
	SealedAt           string   `json:"sealed_at,omitempty"`
	TermID             string   `json:"term_id,omitempty"`
	ChainHash          string   `json:"chain_hash,omitempty"`
	PrevRecordHash     string   `json:"prev_record_hash,omitempty"`
	DataSignature      string   `json:"data_signature,omitempty"`
	SignaturePublicKey string   `json:"signature_public_key,omitempty"`
	ChainValid         bool     `json:"chain_valid"`
	ChainDetails       []string `json:"chain_details,omitempty"`
}

// Verify returns the seal status of an appraisal including a fresh
// verification of the term's whole chain
func (s *SealService) Verify(appraisalID uint) (*SealInfo, error) {
	record, err := s.sealStore.GetByAppraisal(appraisalID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &SealInfo{Sealed: false}, nil
	}

	valid, details, err := s.sealStore.VerifyChain(record.TermID)
	if err != nil {
		return nil, fmt.Errorf("chain verification failed: %w", err)
	}

	return &SealInfo{
		Sealed:             true,
		SealedAt:           record.CreatedAt.Format("2006-01-02 15:04:05"),
		TermID:             record.TermID,
		ChainHash:          record.ChainHash,
		PrevRecordHash:     record.PrevRecordHash,
		DataSignature:      record.DataSignature,
		SignaturePublicKey: record.SignaturePublicKey,
		ChainValid:         valid,
		ChainDetails:       details,
	}, nil
}

// VerifyAllChains validates every term chain, used by the nightly job
func (s *SealService) VerifyAllChains() (map[string][]string, error) {
	terms, err := s.sealStore.Terms()
	if err != nil {
		return nil, err
	}

	problems := make(map[string][]string)
	for _, term := range terms {
		valid, details, err := s.sealStore.VerifyChain(term)
		if err != nil {
			return nil, fmt.Errorf("chain verification failed for %s: %w", term, err)
		}
		if !valid {
			problems[term] = details
		}
	}

	return problems, nil
}
