// Package domain defines the core domain models for BloomGate.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured code.
type DomainError struct {
	Code    string // Error code (e.g., "BG-FILT-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support: two DomainErrors match on Code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Details: details, Cause: e.Cause}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Details: e.Details, Cause: cause}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks that the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return code == "" || de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it is a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Filter Errors (FILT)
// ============================================================================

var (
	// ErrFilterNotFound indicates the named filter does not exist.
	ErrFilterNotFound = NewDomainError("BG-FILT-4040", "filter not found")

	// ErrFilterExists indicates a create on a name that is already taken.
	// Duplicate creation is rejected, never silently redefined.
	ErrFilterExists = NewDomainError("BG-FILT-4090", "filter already exists")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidParameter indicates a bad capacity or false-positive
	// probability on create.
	ErrInvalidParameter = NewDomainError("BG-ARG-4001", "invalid filter parameter")

	// ErrMalformedCommand indicates an unparseable protocol line. The
	// connection stays open after this error.
	ErrMalformedCommand = NewDomainError("BG-CMD-4000", "malformed command")
)

// ============================================================================
// Persistence Errors (SNAP)
// ============================================================================

var (
	// ErrSnapshotIO indicates a snapshot write failure. The prior snapshot
	// on disk is left untouched.
	ErrSnapshotIO = NewDomainError("BG-SNAP-5001", "snapshot io error")

	// ErrCorruptSnapshot indicates a truncated or corrupt snapshot file that
	// the loader refused to load.
	ErrCorruptSnapshot = NewDomainError("BG-SNAP-5002", "corrupt snapshot")
)
