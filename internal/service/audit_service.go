package service

import (
	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
)

// AuditService handles audit logging
type AuditService struct {
	auditRepo *repository.AuditRepository
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo *repository.AuditRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// Log creates an audit log entry, ignoring errors. A failed audit write
// must not fail the operation being audited.
func (s *AuditService) Log(userID uint, action, resource, details string) {
	_ = s.auditRepo.Create(&models.AuditLog{
		UserID:   &userID,
		Action:   action,
		Resource: resource,
		Details:  details,
	})
}

// List returns audit log entries matching the filters
func (s *AuditService) List(filters repository.AuditFilters, limit, offset int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.auditRepo.GetAll(filters, limit, offset)
}
