package filecrypt

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const (
	// FormatVersion is the current container format version
	FormatVersion = 2

	// layer2Suffix is appended to the password for the outer layer of a
	// multi-layer container so both derived keys differ even on salt collision
	layer2Suffix = "_layer2"
)

// CryptoLayer describes one AEAD pass
type CryptoLayer struct {
	Algorithm      Algorithm
	Salt           []byte
	Nonce          []byte
	PasswordSuffix string
}

type layerJSON struct {
	Algorithm      string `json:"algorithm"`
	Salt           string `json:"salt"`
	Nonce          string `json:"nonce"`
	PasswordSuffix string `json:"password_suffix,omitempty"`
}

func (l CryptoLayer) MarshalJSON() ([]byte, error) {
	return json.Marshal(layerJSON{
		Algorithm:      l.Algorithm.Tag(),
		Salt:           hex.EncodeToString(l.Salt),
		Nonce:          hex.EncodeToString(l.Nonce),
		PasswordSuffix: l.PasswordSuffix,
	})
}

func (l *CryptoLayer) UnmarshalJSON(data []byte) error {
	var raw layerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	alg, err := algorithmFromTag(raw.Algorithm)
	if err != nil {
		return err
	}
	salt, err := hex.DecodeString(raw.Salt)
	if err != nil {
		return fmt.Errorf("invalid layer salt: %w", err)
	}
	nonce, err := hex.DecodeString(raw.Nonce)
	if err != nil {
		return fmt.Errorf("invalid layer nonce: %w", err)
	}

	*l = CryptoLayer{
		Algorithm:      alg,
		Salt:           salt,
		Nonce:          nonce,
		PasswordSuffix: raw.PasswordSuffix,
	}
	return nil
}

func algorithmFromTag(tag string) (Algorithm, error) {
	switch tag {
	case TagAES:
		return AlgorithmAES256GCM, nil
	case TagChaCha20:
		return AlgorithmChaCha20Poly1305, nil
	}
	return 0, fmt.Errorf("unknown layer algorithm %q", tag)
}

// Metadata is the self-describing header of a container. It holds everything
// needed to reverse the transformation except the password.
type Metadata struct {
	FormatVersion     int           `json:"format_version"`
	Algorithm         string        `json:"algorithm"`
	KeyDerivation     KDFName       `json:"key_derivation"`
	KDFParams         KDFParams     `json:"kdf_params"`
	Compression       bool          `json:"compression"`
	CompressionRatio  float64       `json:"compression_ratio"`
	OriginalFilename  string        `json:"original_filename"`
	OriginalExtension string        `json:"original_extension"`
	FileType          FileType      `json:"file_type"`
	FileSize          int64         `json:"file_size"`
	CompressedSize    int64         `json:"compressed_size"`
	OriginalHash      string        `json:"original_hash"`
	Layers            []CryptoLayer `json:"layers"`
}

// expectedLayout returns the layer algorithms and suffixes an algorithm tag
// implies, inner layer first
func expectedLayout(tag string) ([]Algorithm, []string, bool) {
	switch tag {
	case TagAES:
		return []Algorithm{AlgorithmAES256GCM}, []string{""}, true
	case TagChaCha20:
		return []Algorithm{AlgorithmChaCha20Poly1305}, []string{""}, true
	case TagMultiLayer:
		return []Algorithm{AlgorithmChaCha20Poly1305, AlgorithmAES256GCM}, []string{"", layer2Suffix}, true
	}
	return nil, nil, false
}

// Validate checks the structural consistency of the metadata
func (m *Metadata) Validate() error {
	if m.FormatVersion != FormatVersion {
		return NewCorruptionError(fmt.Sprintf("format version %d", m.FormatVersion), ErrUnsupportedVersion)
	}

	algs, suffixes, ok := expectedLayout(m.Algorithm)
	if !ok {
		return NewCorruptionError(fmt.Sprintf("unknown algorithm tag %q", m.Algorithm), nil)
	}
	if len(m.Layers) != len(algs) {
		return NewCorruptionError(fmt.Sprintf("algorithm %q requires %d layer(s), found %d", m.Algorithm, len(algs), len(m.Layers)), nil)
	}
	for i, layer := range m.Layers {
		if layer.Algorithm != algs[i] {
			return NewCorruptionError(fmt.Sprintf("layer %d uses %s, expected %s", i+1, layer.Algorithm, algs[i]), nil)
		}
		if layer.PasswordSuffix != suffixes[i] {
			return NewCorruptionError(fmt.Sprintf("layer %d has unexpected key variant", i+1), nil)
		}
		if err := ValidateSalt(layer.Salt); err != nil {
			return NewCorruptionError(fmt.Sprintf("layer %d: %v", i+1, err), nil)
		}
		if err := ValidateNonce(layer.Nonce); err != nil {
			return NewCorruptionError(fmt.Sprintf("layer %d: %v", i+1, err), nil)
		}
	}

	if m.FileSize < 0 || m.CompressedSize < 0 {
		return NewCorruptionError("negative size", nil)
	}
	if !m.Compression && m.CompressedSize != m.FileSize {
		return NewCorruptionError("compressed size differs from file size without compression", nil)
	}
	return nil
}
