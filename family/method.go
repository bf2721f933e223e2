package family

import "strings"

// Method encodes how a resource is physically reached. The low bits
// hold the base access method; the high bits are modifiers that can be
// OR'd onto a base method at registration time.
type Method uint16

const (
	// Base access methods.
	MethodFile      Method = iota // named file on disk
	MethodStream                  // open stream handle adopted from the caller
	MethodFDesc                   // raw file descriptor adopted from the caller
	MethodDuplicate               // in-memory container, deep-copied on import
	MethodReference               // in-memory container, shared by reference

	methodBaseMask Method = 0x00ff
)

const (
	// ViaMatrix marks a tabular resource whose backing store is a Matrix.
	ViaMatrix Method = 0x0100
	// ViaVector marks a tabular resource whose backing store is a Vector set.
	ViaVector Method = 0x0200
	// Reset requests a fresh registration even when an equivalent
	// descriptor already exists.
	Reset Method = 0x0400
)

// Base strips all modifier bits.
func (m Method) Base() Method {
	return m & methodBaseMask
}

// Via reports whether the matrix or vector masquerade modifier is set.
func (m Method) Via() bool {
	return m&(ViaMatrix|ViaVector) != 0
}

// InMemory reports whether the base method moves data without touching
// a file or stream.
func (m Method) InMemory() bool {
	b := m.Base()
	return b == MethodDuplicate || b == MethodReference
}

// ValidBase reports whether the base method is one of the five defined
// access methods.
func (m Method) ValidBase() bool {
	return m.Base() <= MethodReference
}

var methodBaseNames = [...]string{
	MethodFile:      "file",
	MethodStream:    "stream",
	MethodFDesc:     "fdesc",
	MethodDuplicate: "duplicate",
	MethodReference: "reference",
}

// String renders the base method plus any modifiers.
func (m Method) String() string {
	var b strings.Builder
	base := m.Base()
	if int(base) < len(methodBaseNames) {
		b.WriteString(methodBaseNames[base])
	} else {
		b.WriteString("invalid")
	}
	if m&ViaMatrix != 0 {
		b.WriteString("+via-matrix")
	}
	if m&ViaVector != 0 {
		b.WriteString("+via-vector")
	}
	if m&Reset != 0 {
		b.WriteString("+reset")
	}
	return b.String()
}
