package filecrypt

import (
	"fmt"
)

// Input validation helpers

// ValidateKey checks if a key has the correct size
func ValidateKey(key []byte, expectedSize int) error {
	if key == nil {
		return &ValidationError{
			Field:   "key",
			Message: "key cannot be nil",
		}
	}

	if len(key) != expectedSize {
		return &ValidationError{
			Field:   "key",
			Value:   len(key),
			Message: fmt.Sprintf("invalid key size: got %d bytes, expected %d bytes", len(key), expectedSize),
		}
	}

	return nil
}

// ValidateSalt checks that a salt is exactly SaltSize bytes
func ValidateSalt(salt []byte) error {
	if len(salt) != SaltSize {
		return &ValidationError{
			Field:   "salt",
			Value:   len(salt),
			Message: fmt.Sprintf("invalid salt size: got %d bytes, expected %d bytes", len(salt), SaltSize),
		}
	}
	return nil
}

// ValidateNonce checks that a nonce is exactly NonceSize bytes
func ValidateNonce(nonce []byte) error {
	if len(nonce) != NonceSize {
		return &ValidationError{
			Field:   "nonce",
			Value:   len(nonce),
			Message: fmt.Sprintf("invalid nonce size: got %d bytes, expected %d bytes", len(nonce), NonceSize),
		}
	}
	return nil
}

// ValidateFilePath checks if a file path is valid (not empty)
func ValidateFilePath(path string) error {
	if path == "" {
		return &ValidationError{
			Field:   "path",
			Message: "file path cannot be empty",
		}
	}
	return nil
}

// ValidatePasses checks a secure erase pass count
func ValidatePasses(passes int) error {
	if passes < 1 {
		return &ValidationError{
			Field:   "passes",
			Value:   passes,
			Message: "at least one overwrite pass is required",
		}
	}
	if passes > MaxErasePasses {
		return &ValidationError{
			Field:   "passes",
			Value:   passes,
			Message: fmt.Sprintf("too many overwrite passes: got %d, maximum is %d", passes, MaxErasePasses),
		}
	}
	return nil
}
