package filecrypt

import (
	"crypto/sha256"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultPBKDF2Iterations is the fixed iteration count of the fallback KDF
	DefaultPBKDF2Iterations = 100000

	// Bounds applied to every parameter set
	MaxPBKDF2Iterations = 10_000_000
	MaxArgon2Memory     = 4 * 1024 * 1024 // KiB, 4 GiB
	MaxArgon2Iterations = 64

	// Tighter bounds for header parameters that differ from the engine's own.
	// Key derivation runs before any tag check, so these cap the cost a
	// container can impose on a wrong-password attempt.
	MaxHeaderArgon2Memory      = 256 * 1024 // KiB, 256 MiB
	MaxHeaderArgon2Iterations  = 10
	MaxHeaderArgon2Parallelism = 16
	MaxHeaderPBKDF2Iterations  = 1_000_000
)

// KeyDeriver turns a password and salt into a KeySize-byte key. Implementations
// are deterministic and hold no per-call state.
type KeyDeriver interface {
	// DeriveKey derives a key from password and a SaltSize-byte salt
	DeriveKey(password, salt []byte) ([]byte, error)

	// Name returns the metadata tag of the strategy
	Name() KDFName

	// Params returns the parameters to record in metadata
	Params() KDFParams
}

// KDFParams is the serialized form of a strategy's parameters
type KDFParams struct {
	Time        uint32 `json:"time,omitempty"`
	Memory      uint32 `json:"memory,omitempty"`
	Parallelism uint8  `json:"parallelism,omitempty"`
	Iterations  int    `json:"iterations,omitempty"`
	KeyLength   int    `json:"key_length"`
}

// DefaultArgon2idParams returns Argon2id t=3, m=64 MiB, p=4
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
		KeySize:     KeySize,
	}
}

// DefaultPBKDF2Params returns PBKDF2-HMAC-SHA256 with DefaultPBKDF2Iterations
func DefaultPBKDF2Params() PBKDF2Params {
	return PBKDF2Params{
		Iterations: DefaultPBKDF2Iterations,
		KeySize:    KeySize,
	}
}

// Validate checks the Argon2id parameters
func (p Argon2idParams) Validate() error {
	switch {
	case p.Iterations == 0:
		return NewValidationError("argon2.iterations", p.Iterations, "iterations must be at least 1")
	case p.Iterations > MaxArgon2Iterations:
		return NewValidationError("argon2.iterations", p.Iterations, fmt.Sprintf("iterations must not exceed %d", MaxArgon2Iterations))
	case p.Parallelism == 0:
		return NewValidationError("argon2.parallelism", p.Parallelism, "parallelism must be at least 1")
	case p.Memory < 8*uint32(p.Parallelism):
		return NewValidationError("argon2.memory", p.Memory, "memory must be at least 8 KiB per lane")
	case p.Memory > MaxArgon2Memory:
		return NewValidationError("argon2.memory", p.Memory, fmt.Sprintf("memory must not exceed %d KiB", MaxArgon2Memory))
	case p.KeySize != KeySize:
		return NewValidationError("argon2.key_size", p.KeySize, fmt.Sprintf("key size must be %d bytes", KeySize))
	}
	return nil
}

// Validate checks the PBKDF2 parameters
func (p PBKDF2Params) Validate() error {
	switch {
	case p.Iterations < 1:
		return NewValidationError("pbkdf2.iterations", p.Iterations, "iterations must be at least 1")
	case p.Iterations > MaxPBKDF2Iterations:
		return NewValidationError("pbkdf2.iterations", p.Iterations, fmt.Sprintf("iterations must not exceed %d", MaxPBKDF2Iterations))
	case p.KeySize != KeySize:
		return NewValidationError("pbkdf2.key_size", p.KeySize, fmt.Sprintf("key size must be %d bytes", KeySize))
	}
	return nil
}

// Argon2idDeriver is the memory-hard strategy
type Argon2idDeriver struct {
	params Argon2idParams
}

// NewArgon2idDeriver creates an Argon2id deriver; params are used as given
func NewArgon2idDeriver(params Argon2idParams) (*Argon2idDeriver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2idDeriver{params: params}, nil
}

// DeriveKey derives a key using Argon2id
func (d *Argon2idDeriver) DeriveKey(password, salt []byte) ([]byte, error) {
	if err := ValidateSalt(salt); err != nil {
		return nil, err
	}
	return argon2.IDKey(
		password,
		salt,
		d.params.Iterations,
		d.params.Memory,
		d.params.Parallelism,
		uint32(d.params.KeySize),
	), nil
}

func (d *Argon2idDeriver) Name() KDFName { return KDFArgon2id }

func (d *Argon2idDeriver) Params() KDFParams {
	return d.params.kdfParams()
}

func (p Argon2idParams) kdfParams() KDFParams {
	return KDFParams{
		Time:        p.Iterations,
		Memory:      p.Memory,
		Parallelism: p.Parallelism,
		KeyLength:   p.KeySize,
	}
}

// PBKDF2Deriver is the HMAC-SHA256 fallback strategy
type PBKDF2Deriver struct {
	params PBKDF2Params
}

// NewPBKDF2Deriver creates a PBKDF2 deriver; params are used as given
func NewPBKDF2Deriver(params PBKDF2Params) (*PBKDF2Deriver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &PBKDF2Deriver{params: params}, nil
}

// DeriveKey derives a key using PBKDF2-HMAC-SHA256
func (d *PBKDF2Deriver) DeriveKey(password, salt []byte) ([]byte, error) {
	if err := ValidateSalt(salt); err != nil {
		return nil, err
	}
	return pbkdf2.Key(password, salt, d.params.Iterations, d.params.KeySize, sha256.New), nil
}

func (d *PBKDF2Deriver) Name() KDFName { return KDFPBKDF2 }

func (d *PBKDF2Deriver) Params() KDFParams {
	return d.params.kdfParams()
}

func (p PBKDF2Params) kdfParams() KDFParams {
	return KDFParams{
		Iterations: p.Iterations,
		KeyLength:  p.KeySize,
	}
}

// NewKeyDeriver rebuilds a strategy from its metadata tag and parameters
func NewKeyDeriver(name KDFName, params KDFParams) (KeyDeriver, error) {
	switch name {
	case KDFArgon2id:
		d, err := NewArgon2idDeriver(Argon2idParams{
			Memory:      params.Memory,
			Iterations:  params.Time,
			Parallelism: params.Parallelism,
			KeySize:     params.KeyLength,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	case KDFPBKDF2:
		d, err := NewPBKDF2Deriver(PBKDF2Params{
			Iterations: params.Iterations,
			KeySize:    params.KeyLength,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, NewValidationError("key_derivation", name, fmt.Sprintf("unsupported key derivation %q", name))
	}
}

// headerKeyDeriver rebuilds the strategy recorded in a container header.
// Parameters equal to cfg's own are trusted; any others must stay within the
// MaxHeader bounds.
func headerKeyDeriver(cfg Config, name KDFName, params KDFParams) (KeyDeriver, error) {
	cfg = cfg.withDefaults()
	switch name {
	case KDFArgon2id:
		if params != cfg.Argon2.kdfParams() &&
			(params.Memory > MaxHeaderArgon2Memory || params.Time > MaxHeaderArgon2Iterations || params.Parallelism > MaxHeaderArgon2Parallelism) {
			return nil, NewValidationError("kdf_params", params, fmt.Sprintf(
				"argon2id cost exceeds header limits (memory %d KiB, time %d, parallelism %d)",
				MaxHeaderArgon2Memory, MaxHeaderArgon2Iterations, MaxHeaderArgon2Parallelism))
		}
	case KDFPBKDF2:
		if params != cfg.PBKDF2.kdfParams() && params.Iterations > MaxHeaderPBKDF2Iterations {
			return nil, NewValidationError("kdf_params", params, fmt.Sprintf(
				"pbkdf2 iterations exceed header limit %d", MaxHeaderPBKDF2Iterations))
		}
	}
	return NewKeyDeriver(name, params)
}

// ZeroBytes overwrites a byte slice with zeros
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
