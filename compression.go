package filecrypt

import (
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
)

// maxDecodedSize caps decompression so a corrupted frame header cannot
// request an arbitrarily large allocation
const maxDecodedSize = 1 << 34 // 16 GiB

// compress compresses data with zstd at the default level (3)
func compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer enc.Close()

	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// decompress reverses compress. sizeHint is the original size from metadata.
func decompress(data []byte, sizeHint int64) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}

	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxDecodedSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	var dst []byte
	if sizeHint > 0 && sizeHint < maxDecodedSize {
		dst = make([]byte, 0, sizeHint)
	}

	out, err := dec.DecodeAll(data, dst)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return out, nil
}

// compressionRatio returns (1 - compressed/original) * 100 rounded to two
// decimals, and 0 for empty input
func compressionRatio(originalSize, compressedSize int) float64 {
	if originalSize == 0 {
		return 0
	}
	ratio := (1 - float64(compressedSize)/float64(originalSize)) * 100
	return math.Round(ratio*100) / 100
}
