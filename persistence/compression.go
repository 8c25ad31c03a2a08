package persistence

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the body compression algorithm.
type Compression uint8

const (
	// CompressionNone stores the body as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps a name ("none", "lz4", "zstd") to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

func (c Compression) valid() bool { return c <= CompressionZSTD }

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(math.MaxUint32))
}

const (
	// lz4MaxRatio bounds the LZ4 block format: a match costs at least one
	// byte per 255 bytes of output.
	lz4MaxRatio = 255
	// zstdPrealloc caps the up-front output allocation for ZSTD relative to
	// the packed size; larger bodies grow while decoding.
	zstdPrealloc = 64
)

const blockHeaderSize = 8

// compressBlock returns [rawLen u32][packedLen u32][data]. packedLen 0 means
// the data is stored uncompressed because compression did not save 10%.
func compressBlock(data []byte, c Compression) ([]byte, error) {
	var packed []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n]
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		copy(out[blockHeaderSize:], data)
		return out, nil
	}

	out := make([]byte, blockHeaderSize+len(packed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed)))
	copy(out[blockHeaderSize:], packed)
	return out, nil
}

// decompressBlock reverses compressBlock and returns the number of input bytes consumed.
func decompressBlock(data []byte, c Compression) ([]byte, int, error) {
	if len(data) < blockHeaderSize {
		return nil, 0, ErrTruncated
	}
	rawLen := binary.LittleEndian.Uint32(data[0:])
	packedLen := binary.LittleEndian.Uint32(data[4:])

	if packedLen == 0 {
		end := uint64(blockHeaderSize) + uint64(rawLen)
		if uint64(len(data)) < end {
			return nil, 0, ErrTruncated
		}
		return data[blockHeaderSize:end], int(end), nil
	}

	end := uint64(blockHeaderSize) + uint64(packedLen)
	if uint64(len(data)) < end {
		return nil, 0, ErrTruncated
	}
	packed := data[blockHeaderSize:end]

	switch c {
	case CompressionLZ4:
		if uint64(rawLen) > uint64(packedLen)*lz4MaxRatio {
			return nil, 0, fmt.Errorf("%w: lz4 block of %d bytes claims %d raw bytes", ErrMalformed, packedLen, rawLen)
		}
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(packed, out)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if uint32(n) != rawLen {
			return nil, 0, fmt.Errorf("%w: decompressed size mismatch", ErrMalformed)
		}
		return out, int(end), nil
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, 0, fmt.Errorf("zstd decoder: %w", err)
		}
		defer zstdDecoderPool.Put(dec)
		prealloc := min(uint64(rawLen), uint64(packedLen)*zstdPrealloc)
		out, err := dec.DecodeAll(packed, make([]byte, 0, prealloc))
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if uint64(len(out)) != uint64(rawLen) {
			return nil, 0, fmt.Errorf("%w: decompressed size mismatch", ErrMalformed)
		}
		return out, int(end), nil
	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}
}
