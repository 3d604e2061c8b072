package filecrypt

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors, one per failure category. Structured errors below match
// their category with errors.Is.
var (
	ErrInputNotFound        = errors.New("input not found")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMalformedContainer   = errors.New("malformed container")
	ErrAlgorithmMismatch    = errors.New("algorithm mismatch")
	ErrAuthFailed           = errors.New("authentication failed - wrong password or data corrupted or tampered")
	ErrSecureEraseFailed    = errors.New("secure erase failed")
	ErrUnsupportedVersion   = errors.New("unsupported container format version")
)

// Kind classifies an error returned by this package
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInputNotFound
	KindInvalidConfiguration
	KindMalformedContainer
	KindAlgorithmMismatch
	KindAuthenticationFailure
	KindSecureEraseFailure
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindInputNotFound:
		return "InputNotFound"
	case KindInvalidConfiguration:
		return "InvalidConfiguration"
	case KindMalformedContainer:
		return "MalformedContainer"
	case KindAlgorithmMismatch:
		return "AlgorithmMismatch"
	case KindAuthenticationFailure:
		return "AuthenticationFailure"
	case KindSecureEraseFailure:
		return "SecureEraseFailure"
	case KindIO:
		return "IO"
	default:
		return "Unknown"
	}
}

// KindOf returns the category of err, or KindUnknown for nil and foreign errors
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrSecureEraseFailed):
		return KindSecureEraseFailure
	case errors.Is(err, ErrAuthFailed):
		return KindAuthenticationFailure
	case errors.Is(err, ErrAlgorithmMismatch):
		return KindAlgorithmMismatch
	case errors.Is(err, ErrMalformedContainer):
		return KindMalformedContainer
	case errors.Is(err, ErrInvalidConfiguration):
		return KindInvalidConfiguration
	case errors.Is(err, ErrInputNotFound):
		return KindInputNotFound
	case IsIOError(err):
		return KindIO
	default:
		return KindUnknown
	}
}

// ValidationError represents a configuration or parameter validation error
type ValidationError struct {
	Field   string // The field or parameter that failed validation
	Value   any    // The invalid value
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// EncryptionError represents a failure while sealing data that is not an
// authentication failure (entropy source, cipher construction)
type EncryptionError struct {
	Operation string // "encrypt" or "decrypt"
	Path      string // File path, if applicable
	Layer     int    // 1-based layer number, if applicable
	Message   string // Human-readable error message
	Err       error  // Underlying error
}

func (e *EncryptionError) Error() string {
	if e.Path != "" && e.Layer > 0 {
		return fmt.Sprintf("%s error: %s (layer %d): %s", e.Operation, e.Path, e.Layer, e.Message)
	} else if e.Path != "" {
		return fmt.Sprintf("%s error: %s: %s", e.Operation, e.Path, e.Message)
	} else if e.Layer > 0 {
		return fmt.Sprintf("%s error (layer %d): %s", e.Operation, e.Layer, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Operation, e.Message)
}

func (e *EncryptionError) Unwrap() error {
	return e.Err
}

// IOError represents a file system I/O error
type IOError struct {
	Operation string // "read", "write", "open", "close", etc.
	Path      string // File path
	Message   string // Human-readable error message
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("io error: %s %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("io error: %s: %s", e.Operation, e.Message)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// InputNotFoundError is returned when the file to process does not exist
type InputNotFoundError struct {
	Path string
	Err  error
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("input not found: %s", e.Path)
}

func (e *InputNotFoundError) Unwrap() error {
	return e.Err
}

func (e *InputNotFoundError) Is(target error) bool {
	return target == ErrInputNotFound
}

// CorruptionError represents a container that cannot be parsed
type CorruptionError struct {
	Path    string // File path, if known
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *CorruptionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("malformed container: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("malformed container: %s", e.Message)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

func (e *CorruptionError) Is(target error) bool {
	return target == ErrMalformedContainer
}

// MismatchError is returned when a container's algorithm tag disagrees with
// the engine configuration
type MismatchError struct {
	Want string // Tag the engine is configured for
	Got  string // Tag found in the container
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("algorithm mismatch: container was encrypted with %q, engine is configured for %q", e.Got, e.Want)
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrAlgorithmMismatch
}

// AuthenticationError represents an AEAD tag check failure. The cause is
// deliberately not carried.
type AuthenticationError struct {
	Path string // File path
}

func (e *AuthenticationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("authentication error: %s: %s", e.Path, ErrAuthFailed)
	}
	return fmt.Sprintf("authentication error: %s", ErrAuthFailed)
}

func (e *AuthenticationError) Unwrap() error {
	return ErrAuthFailed
}

// EraseError represents a failure during secure erase. The file is left in
// an indeterminate, possibly partially overwritten, state.
type EraseError struct {
	Path string // File path
	Pass int    // 1-based pass number, or 0 if the failure happened outside a pass
	Op   string // "open", "stat", "write", "sync", "remove", ...
	Err  error  // Underlying error
}

func (e *EraseError) Error() string {
	if e.Pass > 0 {
		return fmt.Sprintf("secure erase: %s %s (pass %d): %v", e.Op, e.Path, e.Pass, e.Err)
	}
	return fmt.Sprintf("secure erase: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *EraseError) Unwrap() error {
	return e.Err
}

func (e *EraseError) Is(target error) bool {
	return target == ErrSecureEraseFailed
}

// PermissionDenied reports whether the erase failed on a permission check
func (e *EraseError) PermissionDenied() bool {
	return errors.Is(e.Err, fs.ErrPermission)
}

// Helper functions for creating structured errors

// NewValidationError creates a new validation error
func NewValidationError(field string, value any, message string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewEncryptionError creates a new encryption error
func NewEncryptionError(operation string, layer int, err error) error {
	return &EncryptionError{
		Operation: operation,
		Layer:     layer,
		Message:   err.Error(),
		Err:       err,
	}
}

// NewIOError creates a new I/O error
func NewIOError(operation, path string, err error) error {
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   err.Error(),
		Err:       err,
	}
}

// NewCorruptionError creates a new malformed container error
func NewCorruptionError(message string, err error) error {
	return &CorruptionError{
		Message: message,
		Err:     err,
	}
}

// Error checking helpers

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsIOError checks if an error is an I/O error
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}

// IsCorruptionError checks if an error is a malformed container error
func IsCorruptionError(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

// IsAuthenticationError checks if an error is an authentication error
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// IsPermissionDenied reports whether err is a secure erase failure caused by
// a permission check
func IsPermissionDenied(err error) bool {
	var ee *EraseError
	if errors.As(err, &ee) {
		return ee.PermissionDenied()
	}
	return false
}
