package blobstore

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Compression identifies how blob bytes are encoded at rest.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// ParseCompression parses a compression name. Empty means none.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", string(CompressionNone):
		return CompressionNone, nil
	case string(CompressionZstd):
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("unknown compression: %q", name)
	}
}

// Encoders and decoders are safe for concurrent EncodeAll/DecodeAll use and
// expensive to build, so one of each is shared.
var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdInitErr error
)

func zstdCodecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdInitErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdInitErr != nil {
			return
		}
		zstdDecoder, zstdInitErr = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder, zstdInitErr
}

func compressZstd(data []byte) ([]byte, error) {
	enc, _, err := zstdCodecs()
	if err != nil {
		return nil, fmt.Errorf("zstd init: %w", err)
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	_, dec, err := zstdCodecs()
	if err != nil {
		return nil, fmt.Errorf("zstd init: %w", err)
	}
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}
