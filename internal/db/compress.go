package db

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Raw inbound payloads are FHIR-style JSON bundles, frequently tens of
// kilobytes of highly repetitive text. They are stored zstd-compressed and
// transparently decompressed on read. Encoder and decoder are safe for
// concurrent use via EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Sprintf("db: failed to initialize zstd encoder: %v", err))
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("db: failed to initialize zstd decoder: %v", err))
	}
}

// compressPayload compresses a raw message payload for storage.
func compressPayload(raw []byte) []byte {
	return zstdEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))
}

// decompressPayload restores a payload read from storage.
func decompressPayload(stored []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(stored, nil)
	if err != nil {
		return nil, fmt.Errorf("db: failed to decompress payload: %w", err)
	}
	return out, nil
}
