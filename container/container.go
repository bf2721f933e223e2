package container

// AllocMode records who allocated a payload's memory.
type AllocMode uint8

const (
	// AllocExternally marks payloads owned by the caller; the broker's
	// GC must never free them.
	AllocExternally AllocMode = iota
	// AllocInternally marks payloads the broker allocated; the GC frees
	// them when the owning nesting level unwinds.
	AllocInternally
)

// String returns "external" or "internal".
func (m AllocMode) String() string {
	if m == AllocInternally {
		return "internal"
	}
	return "external"
}

// Alloc is the ownership bookkeeping embedded in every container type.
// Level is the module nesting depth that owns the payload; Mode says
// whether the broker allocated it. The record engine and GC mutate
// these through the Owned interface.
type Alloc struct {
	Mode  AllocMode `cbor:"-" yaml:"-"`
	Level int       `cbor:"-" yaml:"-"`
}

// Ownership exposes the embedded bookkeeping.
func (a *Alloc) Ownership() *Alloc {
	return a
}

// Owned is implemented by every container type via the embedded Alloc.
type Owned interface {
	Ownership() *Alloc
}
