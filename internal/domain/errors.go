package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the triage core.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidRiskTier = errors.New("invalid risk tier")
	ErrInvalidStatus   = errors.New("invalid record status")

	// Gateway failure taxonomy. Timeout and unavailability are retried with
	// bounded backoff; malformed text is not retried. All three degrade the
	// record instead of failing the submission.
	ErrGatewayTimeout     = errors.New("language model request timed out")
	ErrServiceUnavailable = errors.New("language model service unavailable")
	ErrMalformedResponse  = errors.New("language model returned unusable text")

	// ErrAlreadyEnriched signals a second enrichment write against the same
	// record. Enrichment is write-once.
	ErrAlreadyEnriched = errors.New("record already enriched or degraded")
)

// ValidationError represents a rejected submission. It is the only error
// class surfaced to the caller of Submit; nothing is persisted when it fires.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsRetryable reports whether a gateway error class is worth another attempt.
// Malformed responses are final: re-asking the model is as likely to return
// garbage again, so they degrade the record immediately.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGatewayTimeout) || errors.Is(err, ErrServiceUnavailable)
}
