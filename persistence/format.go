package persistence

import (
	"errors"
	"fmt"
)

const (
	// MagicNumber identifies arena snapshots (ASCII: "GAR1").
	MagicNumber = 0x47415231
	// Version is the current snapshot format version.
	Version = 1

	headerFixedSize = 4 + 4 + 1 + 1 // magic, version, compression, codec name length
	trailerSize     = 4
	maxCodecName    = 255

	flagOccupied = 1 << 0
)

var (
	ErrInvalidMagic        = errors.New("invalid magic number")
	ErrInvalidVersion      = errors.New("unsupported version")
	ErrUnknownCompression  = errors.New("unknown compression")
	ErrTruncated           = errors.New("snapshot truncated")
	ErrMalformed           = errors.New("snapshot malformed")
	ErrCodecNameTooLong    = errors.New("codec name too long")
	ErrPayloadOnVacantSlot = errors.New("payload on vacant slot")
)

// SlotRecord is the persisted form of one slot.
type SlotRecord struct {
	Generation uint64
	Occupied   bool
	Payload    []byte // codec-encoded value, nil for vacant slots
}

// Image is the persisted form of a whole arena.
type Image struct {
	// Codec names the codec that produced the payloads.
	Codec string
	// Compression is applied to the body on Encode and reported by Decode.
	Compression Compression
	Slots       []SlotRecord
	// Free lists vacant, reusable indices. Decode returns them in descending
	// order, so replaying them onto a LIFO free list reuses the lowest index first.
	Free []uint32
}

// Validate checks structural constraints that Encode relies on.
func (img *Image) Validate() error {
	if len(img.Codec) > maxCodecName {
		return ErrCodecNameTooLong
	}
	if !img.Compression.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCompression, img.Compression)
	}
	for i, s := range img.Slots {
		if !s.Occupied && len(s.Payload) > 0 {
			return fmt.Errorf("%w: slot %d", ErrPayloadOnVacantSlot, i)
		}
	}
	return nil
}
