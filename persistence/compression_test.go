package persistence

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressBlock_RoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("slot"), 4096)
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			block, err := compressBlock(data, c)
			require.NoError(t, err)

			out, n, err := decompressBlock(block, c)
			require.NoError(t, err)
			assert.Equal(t, len(block), n)
			assert.Equal(t, data, out)
		})
	}
}

func TestDecompressBlock_HugeRawLength(t *testing.T) {
	block := binary.LittleEndian.AppendUint32(nil, math.MaxUint32)
	block = binary.LittleEndian.AppendUint32(block, 4)
	block = append(block, 0xde, 0xad, 0xbe, 0xef)

	for _, c := range []Compression{CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			_, _, err := decompressBlock(block, c)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecode_HugeRawLength(t *testing.T) {
	header := binary.LittleEndian.AppendUint32(nil, MagicNumber)
	header = binary.LittleEndian.AppendUint32(header, Version)
	header = append(header, byte(CompressionLZ4), 0)
	header = binary.LittleEndian.AppendUint32(header, math.MaxUint32)
	header = binary.LittleEndian.AppendUint32(header, 2)
	header = append(header, 0x00, 0x00)

	var buf bytes.Buffer
	sw := newSealWriter(&buf)
	_, err := sw.Write(header)
	require.NoError(t, err)
	_, err = sw.Seal()
	require.NoError(t, err)

	_, err = Decode(&buf)
	assert.ErrorIs(t, err, ErrMalformed)
}
