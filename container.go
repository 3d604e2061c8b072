package filecrypt

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// Container layout:
//
//	[4 bytes]           metadata length, big-endian uint32
//	[length bytes]      metadata, JSON
//	[remaining bytes]   ciphertext of the outermost layer, tag appended
//
// The raw metadata bytes are the associated data of every layer.
const LengthPrefixSize = 4

// Container is a parsed or about-to-be-written encrypted artifact
type Container struct {
	Metadata    *Metadata
	RawMetadata []byte // Exact framed metadata bytes
	Ciphertext  []byte
}

// encodeMetadata serializes metadata into the bytes that will be framed
func encodeMetadata(m *Metadata) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if uint64(len(raw)) > math.MaxUint32 {
		return nil, NewValidationError("metadata", len(raw), "metadata too large")
	}
	return raw, nil
}

// Size returns the total size of the framed container in bytes
func (c *Container) Size() int {
	return LengthPrefixSize + len(c.RawMetadata) + len(c.Ciphertext)
}

// WriteTo writes the length prefix, metadata and ciphertext, in that order
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(c.RawMetadata)))

	var total int64
	for _, part := range [][]byte{prefix[:], c.RawMetadata, c.Ciphertext} {
		n, err := w.Write(part)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// MarshalBinary returns the framed container
func (c *Container) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, c.Size()))
	if _, err := c.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseContainer splits data into metadata and ciphertext. It checks framing
// and JSON only; structural validation is Metadata.Validate. The returned
// container aliases data.
func ParseContainer(data []byte) (*Container, error) {
	if len(data) < LengthPrefixSize {
		return nil, NewCorruptionError(fmt.Sprintf("truncated length prefix: %d bytes", len(data)), nil)
	}

	length := uint64(binary.BigEndian.Uint32(data[:LengthPrefixSize]))
	remaining := uint64(len(data) - LengthPrefixSize)
	if length > remaining {
		return nil, NewCorruptionError(fmt.Sprintf("declared metadata length %d exceeds remaining %d bytes", length, remaining), nil)
	}

	end := LengthPrefixSize + int(length)
	raw := data[LengthPrefixSize:end:end]

	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, NewCorruptionError("unreadable metadata", err)
	}

	return &Container{
		Metadata:    &m,
		RawMetadata: raw,
		Ciphertext:  data[end:],
	}, nil
}

// Inspect parses a container and returns its validated metadata without
// needing a password
func Inspect(data []byte) (*Metadata, error) {
	c, err := ParseContainer(data)
	if err != nil {
		return nil, err
	}
	if err := c.Metadata.Validate(); err != nil {
		return nil, err
	}
	return c.Metadata, nil
}
