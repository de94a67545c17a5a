package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgInvalidAppraisalID = "Invalid appraisal ID"
	ErrMsgInvalidUserID      = "Invalid user ID"
	ErrMsgUnauthorized       = "Unauthorized"
	ErrMsgPermissionDenied   = "permission denied"
	ErrMsgNotFound           = "not found"
)
