package filecrypt

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Config contains the engine configuration. It is validated and copied once
// by New and never changes afterwards.
type Config struct {
	// Algorithm is the cipher for single-layer mode. Ignored when MultiLayer is set.
	Algorithm Algorithm

	// UseMemoryHardKDF selects Argon2id; otherwise PBKDF2 is used
	UseMemoryHardKDF bool

	// UseCompression compresses plaintext with zstd before the first layer
	UseCompression bool

	// MultiLayer applies ChaCha20-Poly1305 then AES-256-GCM with independent keys
	MultiLayer bool

	// Argon2 parameters. The zero value means DefaultArgon2idParams.
	Argon2 Argon2idParams

	// PBKDF2 parameters. The zero value means DefaultPBKDF2Params.
	PBKDF2 PBKDF2Params
}

// DefaultConfig returns AES-256-GCM, Argon2id, compression on, single layer
func DefaultConfig() Config {
	return Config{
		Algorithm:        AlgorithmAES256GCM,
		UseMemoryHardKDF: true,
		UseCompression:   true,
		MultiLayer:       false,
		Argon2:           DefaultArgon2idParams(),
		PBKDF2:           DefaultPBKDF2Params(),
	}
}

func (c Config) withDefaults() Config {
	if c.Argon2 == (Argon2idParams{}) {
		c.Argon2 = DefaultArgon2idParams()
	}
	if c.PBKDF2 == (PBKDF2Params{}) {
		c.PBKDF2 = DefaultPBKDF2Params()
	}
	return c
}

// Validate checks every field and reports all problems at once
func (c Config) Validate() error {
	var result *multierror.Error

	c = c.withDefaults()
	if !c.MultiLayer && !c.Algorithm.Valid() {
		result = multierror.Append(result, NewValidationError("algorithm", c.Algorithm, "unsupported algorithm"))
	}
	if c.UseMemoryHardKDF {
		if err := c.Argon2.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	} else if err := c.PBKDF2.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		return &ValidationError{
			Message: fmt.Sprintf("invalid engine configuration: %v", err),
			Err:     err,
		}
	}
	return nil
}

// AlgorithmTag returns the metadata tag containers produced under this
// configuration carry
func (c Config) AlgorithmTag() string {
	if c.MultiLayer {
		return TagMultiLayer
	}
	return c.Algorithm.Tag()
}

// KeyDeriver returns the configured key derivation strategy
func (c Config) KeyDeriver() (KeyDeriver, error) {
	c = c.withDefaults()
	if c.UseMemoryHardKDF {
		d, err := NewArgon2idDeriver(c.Argon2)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	d, err := NewPBKDF2Deriver(c.PBKDF2)
	if err != nil {
		return nil, err
	}
	return d, nil
}
