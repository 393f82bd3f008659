package reconcile

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/querystate/internal/ir"
)

// maxDecodedSize bounds decompression of untrusted query blobs.
const maxDecodedSize = 1 << 20

var (
	encoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	})
	decoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	})
)

// Compress serializes a flat key/value map as canonical JSON, compresses it
// with zstd and returns it base64url encoded without padding. Equal maps
// always produce equal blobs.
func Compress(m map[string]string) (string, error) {
	data, err := ir.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}
	enc, err := encoder()
	if err != nil {
		return "", fmt.Errorf("compress: init encoder: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(enc.EncodeAll(data, nil)), nil
}

// Decompress reverses Compress. The returned query is in canonical key order.
func Decompress(blob string) (ir.Query, error) {
	packed, err := base64.RawURLEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decompress: base64: %w", err)
	}
	dec, err := decoder()
	if err != nil {
		return nil, fmt.Errorf("decompress: init decoder: %w", err)
	}
	data, err := dec.DecodeAll(packed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: zstd: %w", err)
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decompress: json: %w", err)
	}

	return ir.QueryFromMap(m), nil
}
