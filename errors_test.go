package filecrypt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     &ValidationError{Field: "passes", Value: 0, Message: "too few"},
			wantMsg: "validation error: passes: too few",
		},
		{
			name:    "without field",
			err:     &ValidationError{Message: "invalid configuration"},
			wantMsg: "validation error: invalid configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrInvalidConfiguration) {
				t.Error("ValidationError does not match ErrInvalidConfiguration")
			}
		})
	}

	inner := errors.New("inner")
	ve := &ValidationError{Message: "outer", Err: inner}
	if !errors.Is(ve, inner) {
		t.Error("ValidationError does not unwrap to its cause")
	}
}

func TestEncryptionError(t *testing.T) {
	tests := []struct {
		name    string
		err     *EncryptionError
		wantMsg string
	}{
		{
			name:    "path and layer",
			err:     &EncryptionError{Operation: "encrypt", Path: "/f", Layer: 2, Message: "boom"},
			wantMsg: "encrypt error: /f (layer 2): boom",
		},
		{
			name:    "path only",
			err:     &EncryptionError{Operation: "encrypt", Path: "/f", Message: "boom"},
			wantMsg: "encrypt error: /f: boom",
		},
		{
			name:    "layer only",
			err:     &EncryptionError{Operation: "decrypt", Layer: 1, Message: "boom"},
			wantMsg: "decrypt error (layer 1): boom",
		},
		{
			name:    "bare",
			err:     &EncryptionError{Operation: "encrypt", Message: "boom"},
			wantMsg: "encrypt error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("EncryptionError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestIOError(t *testing.T) {
	err := NewIOError("write", "/out", os.ErrClosed)
	if got, want := err.Error(), "io error: write /out: "+os.ErrClosed.Error(); got != want {
		t.Errorf("IOError.Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, os.ErrClosed) {
		t.Error("IOError does not unwrap to its cause")
	}
	if !IsIOError(err) || KindOf(err) != KindIO {
		t.Errorf("IOError classified as %v", KindOf(err))
	}

	noPath := &IOError{Operation: "read", Message: "short"}
	if got := noPath.Error(); got != "io error: read: short" {
		t.Errorf("IOError.Error() = %q", got)
	}
}

func TestCorruptionError(t *testing.T) {
	err := NewCorruptionError("truncated metadata", nil)
	if got := err.Error(); got != "malformed container: truncated metadata" {
		t.Errorf("CorruptionError.Error() = %q", got)
	}

	withPath := &CorruptionError{Path: "/x.encrypted", Message: "bad json"}
	if got := withPath.Error(); got != "malformed container: /x.encrypted: bad json" {
		t.Errorf("CorruptionError.Error() = %q", got)
	}
	if !errors.Is(withPath, ErrMalformedContainer) {
		t.Error("CorruptionError does not match ErrMalformedContainer")
	}

	versioned := NewCorruptionError("format version 7", ErrUnsupportedVersion)
	if !errors.Is(versioned, ErrUnsupportedVersion) || !errors.Is(versioned, ErrMalformedContainer) {
		t.Error("CorruptionError does not match both its cause and its category")
	}
}

func TestAuthenticationError(t *testing.T) {
	err := &AuthenticationError{Path: "/secret.encrypted"}
	if !errors.Is(err, ErrAuthFailed) {
		t.Error("AuthenticationError does not match ErrAuthFailed")
	}
	if got, want := err.Error(), "authentication error: /secret.encrypted: "+ErrAuthFailed.Error(); got != want {
		t.Errorf("AuthenticationError.Error() = %q, want %q", got, want)
	}
	if got := (&AuthenticationError{}).Error(); got != "authentication error: "+ErrAuthFailed.Error() {
		t.Errorf("AuthenticationError.Error() = %q", got)
	}
}

func TestMismatchError(t *testing.T) {
	err := &MismatchError{Want: TagAES, Got: TagChaCha20}
	if !errors.Is(err, ErrAlgorithmMismatch) {
		t.Error("MismatchError does not match ErrAlgorithmMismatch")
	}
	want := `algorithm mismatch: container was encrypted with "CHACHA20", engine is configured for "AES"`
	if got := err.Error(); got != want {
		t.Errorf("MismatchError.Error() = %q, want %q", got, want)
	}
}

func TestEraseError(t *testing.T) {
	perm := &EraseError{Path: "/f", Op: "open", Err: &fs.PathError{Op: "open", Path: "/f", Err: fs.ErrPermission}}
	if !perm.PermissionDenied() || !IsPermissionDenied(perm) {
		t.Error("permission failure not reported as permission denied")
	}
	if !errors.Is(perm, ErrSecureEraseFailed) {
		t.Error("EraseError does not match ErrSecureEraseFailed")
	}

	pass := &EraseError{Path: "/f", Pass: 2, Op: "write", Err: errors.New("disk full")}
	if got := pass.Error(); got != "secure erase: write /f (pass 2): disk full" {
		t.Errorf("EraseError.Error() = %q", got)
	}
	if pass.PermissionDenied() {
		t.Error("write failure reported as permission denied")
	}
	if IsPermissionDenied(errors.New("plain")) {
		t.Error("foreign error reported as permission denied")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"foreign", errors.New("other"), KindUnknown},
		{"not found", &InputNotFoundError{Path: "/x"}, KindInputNotFound},
		{"validation", NewValidationError("f", 1, "bad"), KindInvalidConfiguration},
		{"corruption", NewCorruptionError("bad", nil), KindMalformedContainer},
		{"mismatch", &MismatchError{Want: TagAES, Got: TagMultiLayer}, KindAlgorithmMismatch},
		{"authentication", &AuthenticationError{}, KindAuthenticationFailure},
		{"erase", &EraseError{Path: "/x", Op: "open", Err: fs.ErrPermission}, KindSecureEraseFailure},
		{"io", NewIOError("read", "/x", errors.New("eio")), KindIO},
		{"wrapped", fmt.Errorf("context: %w", &AuthenticationError{}), KindAuthenticationFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	if got := KindAuthenticationFailure.String(); got != "AuthenticationFailure" {
		t.Errorf("String() = %q", got)
	}
	if got := Kind(200).String(); got != "Unknown" {
		t.Errorf("String() of unknown kind = %q", got)
	}
}

func TestErrorCheckers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"IsValidationError true", NewValidationError("f", nil, "m"), IsValidationError, true},
		{"IsValidationError false", NewIOError("read", "/x", errors.New("e")), IsValidationError, false},
		{"IsIOError wrapped", fmt.Errorf("w: %w", NewIOError("read", "/x", errors.New("e"))), IsIOError, true},
		{"IsCorruptionError true", NewCorruptionError("m", nil), IsCorruptionError, true},
		{"IsCorruptionError nil", nil, IsCorruptionError, false},
		{"IsAuthenticationError true", &AuthenticationError{}, IsAuthenticationError, true},
		{"IsAuthenticationError sentinel", ErrAuthFailed, IsAuthenticationError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("check(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
