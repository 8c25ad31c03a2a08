// Package borrow implements the per-slot reader/writer bookkeeping used by the arena.
//
// A State tracks either any number of shared borrows or a single exclusive
// borrow, never both:
//
//	Free ──TryShared──▶ Shared(n) ──ReleaseShared (n==1)──▶ Free
//	Free ──TryExclusive──▶ Exclusive ──ReleaseExclusive──▶ Free
//
// Shared(n) never moves to Exclusive directly; every shared borrow has to be
// released first.
//
// State is not safe for concurrent use. It reproduces at runtime the aliasing
// rules a compile-time borrow checker would enforce statically.
package borrow
