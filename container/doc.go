// Package container holds the in-memory payload types the broker moves
// between modules: datasets, text sets, matrices, vectors, grids,
// images, palettes and documents.
//
// Every container embeds Alloc, the ownership bookkeeping the broker's
// GC relies on: which nesting level owns the payload and whether the
// broker or the caller allocated it. Code outside the broker should
// treat Alloc as opaque.
package container
