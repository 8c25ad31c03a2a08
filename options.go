package genarena

import (
	"fmt"

	"github.com/hupe1980/genarena/codec"
	"github.com/hupe1980/genarena/internal/container"
	"github.com/hupe1980/genarena/persistence"
	"github.com/hupe1980/genarena/resource"
)

type options struct {
	maxSlots         int
	segmentBits      int
	slotSize         int64
	controller       *resource.Controller
	logger           *Logger
	metricsCollector MetricsCollector
	codec            codec.Codec
	compression      persistence.Compression
}

func defaultOptions() options {
	return options{
		segmentBits:      container.DefaultSegmentBits,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		codec:            codec.Default,
		compression:      persistence.CompressionLZ4,
	}
}

func (o *options) validate() error {
	if o.maxSlots < 0 {
		return fmt.Errorf("max slots must not be negative: %d", o.maxSlots)
	}
	if o.segmentBits < 1 || o.segmentBits > container.MaxSegmentBits {
		return fmt.Errorf("segment bits must be in [1, %d]: %d", container.MaxSegmentBits, o.segmentBits)
	}
	if o.slotSize < 0 {
		return fmt.Errorf("slot size must not be negative: %d", o.slotSize)
	}
	return nil
}

// Option configures an Arena.
type Option func(*options)

// WithMaxSlots bounds the number of slots the arena may allocate.
// Inserts beyond the bound fail with ErrOutOfMemory. 0 means the full
// 32-bit index space.
func WithMaxSlots(n int) Option {
	return func(o *options) {
		o.maxSlots = n
	}
}

// WithSegmentBits sets the storage segment size to 1<<bits slots.
// Storage grows one segment at a time and never moves existing values.
func WithSegmentBits(bits int) Option {
	return func(o *options) {
		o.segmentBits = bits
	}
}

// WithResourceController charges every live value against the controller's
// memory budget. Inserts that exceed the budget fail with ErrOutOfMemory.
//
// The controller may be shared by several arenas.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithSlotSize overrides the number of bytes charged per live value.
// By default the in-memory size of a slot is used, which does not include
// memory referenced by the value (strings, slices, maps).
func WithSlotSize(bytes int64) Option {
	return func(o *options) {
		o.slotSize = bytes
	}
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector. If nil is passed,
// metrics are disabled.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithCodec configures the codec used to encode values in snapshots.
//
// If nil is passed, codec.Default is used. Restore falls back to the codec
// recorded in the snapshot header when it differs from the configured one.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression sets the snapshot body compression.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}
