package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Lifecycle errors.
var (
	// ErrInvalidTransition is returned when a lifecycle operation is attempted
	// from a state it is not legal in (e.g. approving an already-signed
	// contract, or verify-signing a draft).
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrOwnershipViolation is returned when a caller writes a placeholder
	// value owned by the other party. Rejected, never silently ignored.
	ErrOwnershipViolation = errors.New("placeholder not owned by caller")
)

// Verification errors. Each failure mode is distinct so callers can present
// channel-appropriate guidance.
var (
	ErrCodeNotFound    = errors.New("verification code not found")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrCodeAlreadyUsed = errors.New("verification code already used")
	ErrCodeMismatch    = errors.New("verification code mismatch")
)

// ErrDispatchFailed is returned when a delivery collaborator fails in
// production configuration. Retryable by the caller.
var ErrDispatchFailed = errors.New("code delivery failed")
