package filecrypt

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/absfs/absfs"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v2"
)

// Preferences are the user's saved defaults for new operations
type Preferences struct {
	Algorithm         string `yaml:"algorithm"`
	UseArgon2         bool   `yaml:"use_argon2"`
	UseCompression    bool   `yaml:"use_compression"`
	MultiLayer        bool   `yaml:"multi_layer"`
	ShredAfterEncrypt bool   `yaml:"shred_after_encrypt"`
	ShredPasses       int    `yaml:"shred_passes"`
}

// DefaultPreferences mirrors DefaultConfig with shredding off
func DefaultPreferences() Preferences {
	return Preferences{
		Algorithm:         TagAES,
		UseArgon2:         true,
		UseCompression:    true,
		MultiLayer:        false,
		ShredAfterEncrypt: false,
		ShredPasses:       DefaultErasePasses,
	}
}

// Validate reports every invalid field
func (p Preferences) Validate() error {
	var result *multierror.Error

	if _, err := ParseAlgorithm(p.Algorithm); err != nil {
		result = multierror.Append(result, err)
	}
	if err := ValidatePasses(p.ShredPasses); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// Config converts the preferences into an engine configuration
func (p Preferences) Config() (Config, error) {
	if err := p.Validate(); err != nil {
		return Config{}, err
	}
	alg, _ := ParseAlgorithm(p.Algorithm)

	cfg := DefaultConfig()
	cfg.Algorithm = alg
	cfg.UseMemoryHardKDF = p.UseArgon2
	cfg.UseCompression = p.UseCompression
	cfg.MultiLayer = p.MultiLayer
	return cfg, nil
}

// ParsePreferences decodes YAML preferences. Keys absent from data keep
// their defaults.
func ParsePreferences(data []byte) (Preferences, error) {
	prefs := DefaultPreferences()
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return Preferences{}, &ValidationError{Field: "preferences", Message: "unreadable preferences", Err: err}
	}
	if err := prefs.Validate(); err != nil {
		return Preferences{}, &ValidationError{
			Field:   "preferences",
			Message: fmt.Sprintf("invalid preferences: %v", err),
			Err:     err,
		}
	}
	return prefs, nil
}

// LoadPreferences reads preferences from path. A missing file yields
// DefaultPreferences.
func LoadPreferences(fsys absfs.FileSystem, path string) (Preferences, error) {
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultPreferences(), nil
		}
		return Preferences{}, NewIOError("open", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Preferences{}, NewIOError("read", path, err)
	}
	return ParsePreferences(data)
}

// SavePreferences validates and writes preferences to path
func SavePreferences(fsys absfs.FileSystem, path string, prefs Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(&prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return NewIOError("mkdir", dir, err)
		}
	}

	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return NewIOError("create", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return NewIOError("write", path, err)
	}
	if err := f.Close(); err != nil {
		return NewIOError("close", path, err)
	}
	return nil
}
