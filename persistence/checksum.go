package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
)

// castagnoli is the CRC32C table; hash/crc32 uses SSE4.2 or the ARM CRC
// extension for it when available.
var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// sealWriter checksums everything written through it. Seal appends the
// little-endian CRC32C of those bytes as the snapshot trailer.
type sealWriter struct {
	w    io.Writer
	hash hash.Hash32
	n    int64
}

func newSealWriter(w io.Writer) *sealWriter {
	return &sealWriter{w: w, hash: crc32.New(castagnoli)}
}

func (sw *sealWriter) Write(p []byte) (int, error) {
	n, err := sw.w.Write(p)
	_, _ = sw.hash.Write(p[:n])
	sw.n += int64(n)
	return n, err
}

// Seal writes the trailer and returns the total number of bytes written,
// trailer included. The writer must not be used afterwards.
func (sw *sealWriter) Seal() (int64, error) {
	n, err := sw.w.Write(binary.LittleEndian.AppendUint32(nil, sw.hash.Sum32()))
	return sw.n + int64(n), err
}

// unseal verifies the trailer of data and returns the bytes it covers.
func unseal(data []byte) ([]byte, error) {
	if len(data) < trailerSize {
		return nil, ErrTruncated
	}
	payload, trailer := data[:len(data)-trailerSize], data[len(data)-trailerSize:]
	expected := binary.LittleEndian.Uint32(trailer)
	if actual := crc32.Checksum(payload, castagnoli); actual != expected {
		return nil, &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return payload, nil
}

// ChecksumMismatchError is returned when the snapshot trailer does not match
// its contents.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// IsChecksumMismatch reports whether err is or wraps a ChecksumMismatchError.
func IsChecksumMismatch(err error) bool {
	var cm *ChecksumMismatchError
	return errors.As(err, &cm)
}
