package errors

import (
	"errors"
)

// Is checks if an error matches a target error
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As checks if an error can be assigned to a target type
func As(err error, target any) bool {
	return errors.As(err, target)
}

// CodeOf extracts the taxonomy code from an error, or ErrCodeInternal if the
// error is not a GiftError.
func CodeOf(err error) ErrorCode {
	var ge *GiftError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ErrCodeInternal
}

// IsCode checks if an error is a GiftError with a specific code
func IsCode(err error, code ErrorCode) bool {
	var ge *GiftError
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ge *GiftError
	if errors.As(err, &ge) {
		return ge.IsRetryable()
	}
	return false
}

// WrapGiftError wraps an error as a GiftError if it isn't already one.
// An existing GiftError keeps its code; only context is added.
func WrapGiftError(err error, code ErrorCode, message string) *GiftError {
	if err == nil {
		return nil
	}

	var ge *GiftError
	if errors.As(err, &ge) {
		ge.WithContext("wrapped_message", message)
		return ge
	}

	return New(code, message).WithCause(err)
}
