package filecrypt

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Algorithm represents the AEAD cipher used for a layer
type Algorithm uint8

const (
	// AlgorithmAES256GCM uses AES-256 with Galois/Counter Mode
	AlgorithmAES256GCM Algorithm = iota + 1
	// AlgorithmChaCha20Poly1305 uses ChaCha20 stream cipher with Poly1305 MAC
	AlgorithmChaCha20Poly1305
)

// Metadata tags written to the container's algorithm field
const (
	TagAES        = "AES"
	TagChaCha20   = "CHACHA20"
	TagMultiLayer = "MULTI-LAYER"
)

// String returns the string representation of the algorithm
func (a Algorithm) String() string {
	switch a {
	case AlgorithmAES256GCM:
		return "aes-256-gcm"
	case AlgorithmChaCha20Poly1305:
		return "chacha20-poly1305"
	default:
		return "unknown"
	}
}

// Tag returns the metadata tag for the algorithm
func (a Algorithm) Tag() string {
	switch a {
	case AlgorithmAES256GCM:
		return TagAES
	case AlgorithmChaCha20Poly1305:
		return TagChaCha20
	default:
		return ""
	}
}

// Valid reports whether a is one of the supported algorithms
func (a Algorithm) Valid() bool {
	return a == AlgorithmAES256GCM || a == AlgorithmChaCha20Poly1305
}

// ParseAlgorithm parses a user-supplied algorithm name or metadata tag
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aes", "aes-256-gcm", "aes256gcm", "aes-gcm":
		return AlgorithmAES256GCM, nil
	case "chacha20", "chacha20-poly1305", "chacha", "chacha20poly1305":
		return AlgorithmChaCha20Poly1305, nil
	}
	return 0, NewValidationError("algorithm", s, fmt.Sprintf("unsupported algorithm %q", s))
}

// KDFName identifies a key derivation strategy
type KDFName string

const (
	// KDFArgon2id is the memory-hard strategy
	KDFArgon2id KDFName = "Argon2id"
	// KDFPBKDF2 is the HMAC-SHA256 fallback strategy
	KDFPBKDF2 KDFName = "PBKDF2"
)

// PBKDF2Params contains parameters for PBKDF2 key derivation
type PBKDF2Params struct {
	Iterations int // Number of iterations (DefaultPBKDF2Iterations if zero)
	KeySize    int // Derived key size in bytes (default 32)
}

// Argon2idParams contains parameters for Argon2id key derivation
type Argon2idParams struct {
	Memory      uint32 // Memory in KiB (e.g., 64*1024 for 64MB)
	Iterations  uint32 // Number of iterations (time parameter)
	Parallelism uint8  // Degree of parallelism
	KeySize     int    // Derived key size in bytes (default 32)
}

// FileType is the coarse classification stored in metadata
type FileType string

const (
	FileTypeVideo FileType = "video"
	FileTypeOther FileType = "other"
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mkv": {}, ".mov": {}, ".flv": {},
	".wmv": {}, ".webm": {}, ".m4v": {}, ".mpeg": {}, ".mpg": {},
}

// ClassifyFile classifies a filename by its extension
func ClassifyFile(name string) FileType {
	if _, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return FileTypeVideo
	}
	return FileTypeOther
}

// Sizes shared by every layer
const (
	SaltSize  = 16
	NonceSize = 12
	KeySize   = 32
	TagSize   = 16
)
