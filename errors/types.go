// Package errors defines the typed error taxonomy shared by the gift core.
// Components raise these; the lifecycle coordinator is the only place that
// maps them to caller-facing results.
package errors

import (
	"fmt"
)

// ErrorCode represents different categories of errors
type ErrorCode string

const (
	// ErrCodeNotFound indicates an unknown claim code. It is deliberately
	// indistinguishable from "gift exists but you may not see it".
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeAlreadyClaimed indicates the gift was claimed before this attempt
	ErrCodeAlreadyClaimed ErrorCode = "ALREADY_CLAIMED"

	// ErrCodeExpired indicates the gift passed its expiry before being claimed
	ErrCodeExpired ErrorCode = "EXPIRED"

	// ErrCodeInvalidSecret indicates the presented claim secret did not match
	ErrCodeInvalidSecret ErrorCode = "INVALID_SECRET"

	// ErrCodeInsufficientFunds indicates the holding account balance is short
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// ErrCodeNotConfigured indicates a missing wallet or network registration;
	// an operator defect, never an expected runtime condition
	ErrCodeNotConfigured ErrorCode = "NOT_CONFIGURED"

	// ErrCodeTransferTimeout indicates settlement polling was exhausted
	ErrCodeTransferTimeout ErrorCode = "TRANSFER_TIMEOUT"

	// ErrCodeTransferRejected indicates the attestation or destination network
	// explicitly rejected the settlement
	ErrCodeTransferRejected ErrorCode = "TRANSFER_REJECTED"

	// ErrCodeConflict indicates a guarded status transition lost a race
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeValidation indicates input validation errors
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNetwork indicates transient network-related errors
	ErrCodeNetwork ErrorCode = "NETWORK"

	// ErrCodeDatabase indicates database operation errors
	ErrCodeDatabase ErrorCode = "DATABASE"

	// ErrCodeUpstream indicates a malformed or failed upstream API response
	ErrCodeUpstream ErrorCode = "UPSTREAM"

	// ErrCodeInternal indicates internal system errors
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// GiftError is the error type raised by every component in the core.
type GiftError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Network string         `json:"network,omitempty"`
	Cause   error          `json:"-"`
	Context map[string]any `json:"context,omitempty"`
}

// New creates a new GiftError
func New(code ErrorCode, message string) *GiftError {
	return &GiftError{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Newf creates a new GiftError with a formatted message
func Newf(code ErrorCode, format string, args ...any) *GiftError {
	return New(code, fmt.Sprintf(format, args...))
}

// Error implements the error interface
func (e *GiftError) Error() string {
	if e.Network != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Network, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *GiftError) Unwrap() error {
	return e.Cause
}

// WithCause attaches the underlying cause
func (e *GiftError) WithCause(cause error) *GiftError {
	e.Cause = cause
	return e
}

// WithNetwork tags the error with the network it originated on
func (e *GiftError) WithNetwork(network string) *GiftError {
	e.Network = network
	return e
}

// WithContext adds context to the error
func (e *GiftError) WithContext(key string, value any) *GiftError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsRetryable returns true if the error is safe to retry without operator
// involvement. Settlement-layer terminal failures are never retryable here;
// they require the explicit retry path on the coordinator.
func (e *GiftError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeNetwork, ErrCodeUpstream:
		return true
	default:
		return false
	}
}

// Terminal reports whether the error describes an absorbing gift outcome
// from the caller's perspective.
func (e *GiftError) Terminal() bool {
	switch e.Code {
	case ErrCodeAlreadyClaimed, ErrCodeExpired, ErrCodeTransferTimeout, ErrCodeTransferRejected:
		return true
	default:
		return false
	}
}

// Common error constructors

// NewNotFound creates a not-found error for an unknown claim code
func NewNotFound() *GiftError {
	return New(ErrCodeNotFound, "gift not found")
}

// NewAlreadyClaimed creates an already-claimed error
func NewAlreadyClaimed() *GiftError {
	return New(ErrCodeAlreadyClaimed, "gift already claimed")
}

// NewExpired creates an expired error
func NewExpired() *GiftError {
	return New(ErrCodeExpired, "gift expired")
}

// NewInvalidSecret creates an invalid-secret error. The message must not
// reveal whether the claim code itself was valid.
func NewInvalidSecret() *GiftError {
	return New(ErrCodeInvalidSecret, "invalid claim secret")
}

// NewInsufficientFunds creates an insufficient-funds error
func NewInsufficientFunds(network string) *GiftError {
	return New(ErrCodeInsufficientFunds, "holding account balance insufficient").WithNetwork(network)
}

// NewNotConfigured creates a configuration-defect error
func NewNotConfigured(message string) *GiftError {
	return New(ErrCodeNotConfigured, message)
}

// NewValidation creates a validation error
func NewValidation(message string) *GiftError {
	return New(ErrCodeValidation, message)
}

// NewNetworkError creates a transient network error
func NewNetworkError(network, message string, cause error) *GiftError {
	return New(ErrCodeNetwork, message).WithNetwork(network).WithCause(cause)
}

// NewDatabaseError creates a database error
func NewDatabaseError(message string, cause error) *GiftError {
	return New(ErrCodeDatabase, message).WithCause(cause)
}

// NewUpstreamError creates an upstream response error
func NewUpstreamError(message string, cause error) *GiftError {
	return New(ErrCodeUpstream, message).WithCause(cause)
}

// NewTransferTimeout creates a settlement timeout error
func NewTransferTimeout(message string) *GiftError {
	return New(ErrCodeTransferTimeout, message)
}

// NewTransferRejected creates a settlement rejection error
func NewTransferRejected(message string) *GiftError {
	return New(ErrCodeTransferRejected, message)
}

// NewConflict creates a guarded-transition conflict error
func NewConflict(message string) *GiftError {
	return New(ErrCodeConflict, message)
}

// NewInternal creates an internal error
func NewInternal(message string, cause error) *GiftError {
	return New(ErrCodeInternal, message).WithCause(cause)
}
