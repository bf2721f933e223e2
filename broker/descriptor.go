package broker

import (
	"fmt"
	"io"

	"github.com/geokit/databroker/codec"
	"github.com/geokit/databroker/container"
	"github.com/geokit/databroker/family"
)

// Descriptor is one registered resource: the registry's record of what
// the resource is, how it is physically reached, who owns its payload,
// and where record-by-record I/O currently stands within it.
type Descriptor struct {
	// ID is unique within the session and stable for the descriptor's life.
	ID int

	// Family is the kind the resource currently presents as. A matrix
	// or vector registered with a via modifier is promoted to Dataset
	// when it satisfies a generic-table lookup; ActualFamily keeps the
	// declared kind so the promotion can be undone.
	Family       family.Family
	ActualFamily family.Family

	Geometry  family.Geometry
	Direction family.Direction
	Method    family.Method
	Status    family.Status

	// Filename is set for MethodFile resources.
	Filename string

	// Data and Resource are the two payload slots. At most one is the
	// live pointer at a time; moving the payload between them is how
	// ownership shifts between producer and consumer.
	Data     any
	Resource any

	// AllocMode says whether the broker allocated the payload;
	// AllocLevel is the nesting depth that owns it. NoLongerOwner is
	// set once the payload has been handed to another descriptor, so
	// the GC must skip it.
	AllocMode     container.AllocMode
	AllocLevel    int
	NoLongerOwner bool

	// Messenger marks a placeholder empty output container awaiting
	// real content.
	Messenger bool

	// Selected descriptors participate in record-by-record passes.
	Selected bool

	// ModuleInput distinguishes primary module input from
	// option-argument input during validation.
	ModuleInput bool

	// Open byte-level source/sink for file, stream and fdesc methods.
	rc       io.ReadCloser
	wc       io.WriteCloser
	reader   *codec.TableReader
	writer   *codec.TableWriter
	closable bool // broker opened the handle, broker closes it

	// Streaming cursors.
	curTbl        int
	curSeg        int
	curRow        int
	curHdr        int
	segHeaderSent bool
	gapFired      bool
	nCols         int // established output width, 0 while unknown
	delayedHdrs   int // segment headers written before the width was known
	mismatch      bool
	prevRow       []float64
}

// String renders a one-line summary for logs and debug dumps.
func (d *Descriptor) String() string {
	return fmt.Sprintf("object %d: %s/%s %s %s status=%s level=%d",
		d.ID, d.Family, d.ActualFamily, d.Method, d.Direction, d.Status, d.AllocLevel)
}

// Mismatch reports whether malformed input records were seen (and
// tolerated) during the current pass.
func (d *Descriptor) Mismatch() bool {
	return d.mismatch
}

// payload returns the live payload pointer: Data when set, else Resource.
func (d *Descriptor) payload() any {
	if d.Data != nil {
		return d.Data
	}
	return d.Resource
}

// resetCursors rewinds the streaming state for a fresh pass.
func (d *Descriptor) resetCursors() {
	d.curTbl = 0
	d.curSeg = -1
	d.curRow = 0
	d.curHdr = 0
	d.segHeaderSent = false
	d.gapFired = false
	d.delayedHdrs = 0
	d.mismatch = false
	d.prevRow = nil
}

// closeHandles closes any file handle the broker opened for this
// descriptor. Adopted streams and descriptors are left alone.
func (d *Descriptor) closeHandles() error {
	var first error
	if d.closable {
		if d.rc != nil {
			if err := d.rc.Close(); err != nil {
				first = err
			}
		}
		if d.wc != nil {
			if err := d.wc.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	d.rc = nil
	d.wc = nil
	d.reader = nil
	d.writer = nil
	return first
}
