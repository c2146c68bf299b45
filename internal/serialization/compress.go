package serialization

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// CompressionLevel is the zstd level payloads are written with.
const CompressionLevel = 4

// StreamCompressor copies src into dst in compressed form as one frame.
type StreamCompressor interface {
	CompressStream(dst io.Writer, src io.Reader) error
}

// ZstdStream is a StreamCompressor backed by a single reusable zstd encoder.
// It is not safe for concurrent use.
type ZstdStream struct {
	encoder *zstd.Encoder
}

// NewZstdStream creates a zstd stream compressor for CompressionLevel, which
// the library resolves to its default preset.
func NewZstdStream() (*ZstdStream, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(CompressionLevel)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &ZstdStream{encoder: encoder}, nil
}

// CompressStream implements StreamCompressor.
func (z *ZstdStream) CompressStream(dst io.Writer, src io.Reader) error {
	z.encoder.Reset(dst)
	if _, err := io.Copy(z.encoder, src); err != nil {
		z.encoder.Close()
		return err
	}
	return z.encoder.Close()
}

var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}
		return decoder
	},
}

// Decompress reverses a payload's zstd compression.
func Decompress(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	decoder := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)

	out, err := decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	return out, nil
}
