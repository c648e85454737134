package internal

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider operation failure.
type ErrorKind int

const (
	// KindAuth covers bad or missing credentials and rejected sessions.
	KindAuth ErrorKind = iota
	// KindFormat covers input that does not match the expected share-URL shape.
	KindFormat
	// KindState covers wrong/expired passwords and empty shares.
	KindState
	// KindTransfer covers rejected copies, including ambiguous "already
	// exists" outside inject mode.
	KindTransfer
	// KindShareCreation covers publish and password-assignment failures.
	KindShareCreation
	// KindNotFound covers a missing, non-creatable destination.
	KindNotFound
)

// String returns the string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "AuthError"
	case KindFormat:
		return "FormatError"
	case KindState:
		return "StateError"
	case KindTransfer:
		return "TransferError"
	case KindShareCreation:
		return "ShareCreationError"
	case KindNotFound:
		return "NotFoundError"
	default:
		return "Unknown"
	}
}

// ProviderError is a classified failure from one backend operation. Code
// carries the backend's own error number when one was returned.
type ProviderError struct {
	Provider Provider
	Kind     ErrorKind
	Code     int
	Message  string
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code %d): %s", e.Provider, e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// NewProviderError creates a classified error for a backend operation.
func NewProviderError(p Provider, kind ErrorKind, code int, message string) *ProviderError {
	return &ProviderError{Provider: p, Kind: kind, Code: code, Message: message}
}

// NewAuthError reports a rejected or missing credential.
func NewAuthError(p Provider, message string) *ProviderError {
	return NewProviderError(p, KindAuth, 0, message)
}

// NewFormatError reports a share URL that does not match the backend's shape.
func NewFormatError(p Provider, url string) *ProviderError {
	return NewProviderError(p, KindFormat, 0, fmt.Sprintf("unrecognized share URL: %s", url))
}

// NewStateError reports a wrong/expired password or an empty share.
func NewStateError(p Provider, code int, message string) *ProviderError {
	return NewProviderError(p, KindState, code, message)
}

// NewTransferError reports a rejected copy.
func NewTransferError(p Provider, code int, message string) *ProviderError {
	return NewProviderError(p, KindTransfer, code, message)
}

// NewShareCreationError reports a failed publish or password assignment.
func NewShareCreationError(p Provider, code int, message string) *ProviderError {
	return NewProviderError(p, KindShareCreation, code, message)
}

// NewNotFoundError reports a destination that is missing and not creatable.
func NewNotFoundError(p Provider, path string) *ProviderError {
	return NewProviderError(p, KindNotFound, 0, fmt.Sprintf("destination not found: %s", path))
}

// KindOf extracts the classification of err. The second return is false when
// err is not a ProviderError.
func KindOf(err error) (ErrorKind, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}
