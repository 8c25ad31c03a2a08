// Package slab stores arena slots, their generations and the free list.
//
// Each slot carries a generation counter. The counter is incremented exactly
// once per free -> occupied transition and never decremented, so a
// (index, generation) pair names one occupancy of one slot forever. A slot
// whose counter reaches math.MaxUint64 is retired instead of reused.
//
// Slots live in a segmented array, so *Slot pointers stay valid while the
// slab grows.
package slab
