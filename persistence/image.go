package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// Encode writes img to w and returns the number of bytes written.
func Encode(w io.Writer, img *Image) (int64, error) {
	if err := img.Validate(); err != nil {
		return 0, err
	}

	body, err := encodeBody(img)
	if err != nil {
		return 0, err
	}
	if uint64(len(body)) > math.MaxUint32 {
		return 0, fmt.Errorf("snapshot body too large: %d bytes", len(body))
	}

	block, err := compressBlock(body, img.Compression)
	if err != nil {
		return 0, fmt.Errorf("compress snapshot body: %w", err)
	}

	header := make([]byte, 0, headerFixedSize+len(img.Codec))
	header = binary.LittleEndian.AppendUint32(header, MagicNumber)
	header = binary.LittleEndian.AppendUint32(header, Version)
	header = append(header, byte(img.Compression), byte(len(img.Codec)))
	header = append(header, img.Codec...)

	sw := newSealWriter(w)
	if _, err := sw.Write(header); err != nil {
		return sw.n, err
	}
	if _, err := sw.Write(block); err != nil {
		return sw.n, err
	}
	return sw.Seal()
}

func encodeBody(img *Image) ([]byte, error) {
	body := binary.AppendUvarint(nil, uint64(len(img.Slots)))
	for _, s := range img.Slots {
		body = binary.AppendUvarint(body, s.Generation)
		if !s.Occupied {
			body = append(body, 0)
			continue
		}
		body = append(body, flagOccupied)
		body = binary.AppendUvarint(body, uint64(len(s.Payload)))
		body = append(body, s.Payload...)
	}

	free := roaring.New()
	for _, index := range img.Free {
		if !free.CheckedAdd(index) {
			return nil, fmt.Errorf("%w: free index %d listed twice", ErrMalformed, index)
		}
	}
	free.RunOptimize()
	bm, err := free.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("encode free list: %w", err)
	}
	body = binary.AppendUvarint(body, uint64(len(bm)))
	body = append(body, bm...)
	return body, nil
}

// Decode reads a snapshot produced by Encode. The whole stream is read and
// its checksum verified before anything is parsed.
func Decode(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < headerFixedSize+trailerSize {
		return nil, ErrTruncated
	}
	payload, err := unseal(data)
	if err != nil {
		return nil, err
	}

	if binary.LittleEndian.Uint32(payload[0:]) != MagicNumber {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(payload[4:]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}
	img := &Image{Compression: Compression(payload[8])}
	if !img.Compression.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, payload[8])
	}
	nameLen := int(payload[9])
	if len(payload) < headerFixedSize+nameLen {
		return nil, ErrTruncated
	}
	img.Codec = string(payload[headerFixedSize : headerFixedSize+nameLen])

	body, consumed, err := decompressBlock(payload[headerFixedSize+nameLen:], img.Compression)
	if err != nil {
		return nil, err
	}
	if headerFixedSize+nameLen+consumed != len(payload) {
		return nil, fmt.Errorf("%w: trailing bytes after body", ErrMalformed)
	}

	if err := decodeBody(body, img); err != nil {
		return nil, err
	}
	return img, nil
}

type cursor struct {
	buf []byte
	off int
}

func (c *cursor) readUvarint() (uint64, error) {
	v, n := binary.Uvarint(c.buf[c.off:])
	if n <= 0 {
		return 0, ErrTruncated
	}
	c.off += n
	return v, nil
}

func (c *cursor) readByte() (byte, error) {
	if c.off >= len(c.buf) {
		return 0, ErrTruncated
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

func (c *cursor) readBytes(n uint64) ([]byte, error) {
	if n > uint64(len(c.buf)-c.off) {
		return nil, ErrTruncated
	}
	b := c.buf[c.off : c.off+int(n)]
	c.off += int(n)
	return b, nil
}

func decodeBody(body []byte, img *Image) error {
	c := &cursor{buf: body}

	count, err := c.readUvarint()
	if err != nil {
		return err
	}
	// every slot needs at least two bytes (generation, flags)
	if count > uint64(len(body))/2 {
		return fmt.Errorf("%w: slot count %d exceeds body size", ErrMalformed, count)
	}

	img.Slots = make([]SlotRecord, count)
	for i := range img.Slots {
		gen, err := c.readUvarint()
		if err != nil {
			return err
		}
		flags, err := c.readByte()
		if err != nil {
			return err
		}
		if flags&^flagOccupied != 0 {
			return fmt.Errorf("%w: slot %d has unknown flags 0x%02x", ErrMalformed, i, flags)
		}
		rec := SlotRecord{Generation: gen, Occupied: flags&flagOccupied != 0}
		if rec.Occupied {
			size, err := c.readUvarint()
			if err != nil {
				return err
			}
			p, err := c.readBytes(size)
			if err != nil {
				return err
			}
			rec.Payload = slices.Clone(p)
		}
		img.Slots[i] = rec
	}

	size, err := c.readUvarint()
	if err != nil {
		return err
	}
	bm, err := c.readBytes(size)
	if err != nil {
		return err
	}
	free := roaring.New()
	if err := free.UnmarshalBinary(bm); err != nil {
		return fmt.Errorf("%w: free list: %v", ErrMalformed, err)
	}
	img.Free = free.ToArray()
	slices.Reverse(img.Free)

	if c.off != len(body) {
		return fmt.Errorf("%w: trailing bytes in body", ErrMalformed)
	}
	return nil
}
