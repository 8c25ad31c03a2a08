// Package persistence implements the binary snapshot format for arenas.
//
// A snapshot is a single self-describing stream:
//
//	┌──────────────────────────────────────────────┐
//	│ Header: magic "GAR1", version, compression,  │
//	│         codec name                           │
//	├──────────────────────────────────────────────┤
//	│ Body block: [rawLen u32][packedLen u32][..]  │
//	│   slot count, per slot (gen, flags, payload) │
//	│   free list as a roaring bitmap              │
//	├──────────────────────────────────────────────┤
//	│ Trailer: CRC32C of header and body           │
//	└──────────────────────────────────────────────┘
//
// The body is compressed with LZ4 or ZSTD when that saves at least 10%.
// Values are opaque payloads produced by a codec.Codec; the codec name in the
// header lets readers pick the same codec.
package persistence
