package serialization

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressionLevelPreset(t *testing.T) {
	// klauspost/compress has no exact level 4; it resolves to the default preset.
	assert.Equal(t, zstd.SpeedDefault, zstd.EncoderLevelFromZstd(CompressionLevel))
}

func TestZstdStreamRoundTrip(t *testing.T) {
	z, err := NewZstdStream()
	require.NoError(t, err)

	src := bytes.Repeat([]byte("process:host-1:42 "), 64)
	var dst bytes.Buffer
	require.NoError(t, z.CompressStream(&dst, bytes.NewReader(src)))
	assert.Less(t, dst.Len(), len(src))

	out, err := Decompress(dst.Bytes())
	require.NoError(t, err)
	assert.Equal(t, src, out)
}
