package broker

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/geokit/databroker/config"
	"github.com/geokit/databroker/errors"
	"github.com/geokit/databroker/family"
	"github.com/geokit/databroker/record"
)

// sessionSeq hands out process-wide unique session IDs. This is the
// only process-level state in the package.
var sessionSeq atomic.Uint64

// Flag is the session-creation mode bitmask.
type Flag uint32

const (
	// NoExit makes even unrecoverable failures return to the host
	// instead of terminating the process. Embedding hosts (Python,
	// MATLAB, Julia bindings) always set it.
	NoExit Flag = 1 << iota
	// ExternalHost marks a session driven by a foreign-language host
	// rather than the CLI.
	ExternalHost
	// ColumnMajor requests column-major layout when matrix output is
	// finalized.
	ColumnMajor
	// Modern marks a modern-run-mode host session. The broker records it
	// for hosts to query; classic is the zero value.
	Modern
)

// ioState is the per-direction record-access state.
type ioState struct {
	enabled bool
	mode    record.Mode
	family  family.Family
	current int // position of the active descriptor in the object table, -1 before the first
	cols    int // pre-declared output width, 0 if unset

	// running counters, for diagnostics
	rec int
	seg int
	tbl int
}

// Session is one process-local broker context: the growable object
// table, the ID counter, the per-direction I/O state and the default
// settings.
//
// A session is single-threaded by design. There is no internal locking;
// sharing one across goroutines requires external synchronization.
type Session struct {
	ID      uint64
	Tag     string
	Padding int
	Flags   Flag

	defaults config.Defaults
	logger   *zap.Logger

	objects []*Descriptor       // registration order
	byID    map[int]*Descriptor // stable handle lookup
	nextID  int

	level int           // current module nesting depth
	shelf family.Family // declared family stashed across a masquerading registration

	io [2]ioState

	lastCode   errors.Code
	converters map[family.Family]Converter
	destroyed  bool
}

// Option customizes session creation.
type Option func(*Session)

// WithLogger attaches a session-specific logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithDefaults overrides the session defaults (normally loaded through
// the config package).
func WithDefaults(d config.Defaults) Option {
	return func(s *Session) { s.defaults = d }
}

// New creates a session. tag names the session in logs, padding is the
// default grid padding width, and flags is the mode bitmask.
func New(tag string, padding int, flags Flag, opts ...Option) (*Session, error) {
	if padding < 0 {
		return nil, errors.New(errors.PhaseSession, errors.CodeInvalidMode).
			Detail("padding must be non-negative, got %d", padding).Build()
	}

	s := &Session{
		ID:       sessionSeq.Add(1),
		Tag:      tag,
		Padding:  padding,
		Flags:    flags,
		defaults: config.Standard(),
		byID:     make(map[int]*Descriptor),
		nextID:   1,
	}
	for i := range s.io {
		s.io[i].current = -1
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = Logger()
	}
	s.converters = builtinConverters()

	s.logger.Debug("session created",
		zap.Uint64("session", s.ID),
		zap.String("tag", tag))
	return s, nil
}

// Destroy tears the session down: one final whole-session GC sweep,
// closing any open handles. Destroy is idempotent.
func (s *Session) Destroy() error {
	if s.destroyed {
		return nil
	}
	s.Sweep(AllLevels)
	s.destroyed = true
	s.logger.Debug("session destroyed", zap.Uint64("session", s.ID))
	return nil
}

// Level returns the current module nesting depth.
func (s *Session) Level() int {
	return s.level
}

// Enter records one level of nested module invocation and returns the
// new depth. Payloads allocated until the matching Leave are owned by
// that depth.
func (s *Session) Enter() int {
	s.level++
	return s.level
}

// Leave unwinds one nesting level: everything the departing level owns
// is swept, then the depth decreases.
func (s *Session) Leave() error {
	if s.destroyed {
		return s.report(errors.NoSession())
	}
	if s.level == 0 {
		return s.report(errors.New(errors.PhaseSession, errors.CodeInvalidMode).
			Detail("Leave without matching Enter").Build())
	}
	s.Sweep(s.level)
	s.level--
	return nil
}

// Objects returns the live descriptors in registration order. The
// slice is a copy; the descriptors are not.
func (s *Session) Objects() []*Descriptor {
	out := make([]*Descriptor, len(s.objects))
	copy(out, s.objects)
	return out
}

// Counters reports the running record/segment/table counts for one
// direction.
func (s *Session) Counters(dir family.Direction) (rec, seg, tbl int) {
	st := &s.io[dir]
	return st.rec, st.seg, st.tbl
}

// SetColumns pre-declares the output width for a direction, so segment
// headers written before the first data record need no delay.
func (s *Session) SetColumns(dir family.Direction, n int) error {
	if s.destroyed {
		return s.report(errors.NoSession())
	}
	if n < 1 {
		return s.report(errors.BadMode("column count must be positive"))
	}
	s.io[dir].cols = n
	if idx := s.io[dir].current; idx >= 0 && idx < len(s.objects) {
		s.objects[idx].nCols = n
	}
	return nil
}

// SetSelected includes or excludes a resource from record-by-record
// passes. Freshly registered resources are selected.
func (s *Session) SetSelected(id int, selected bool) error {
	d, ok := s.byID[id]
	if !ok {
		return s.report(errors.NotAValidID(id, "unknown object"))
	}
	d.Selected = selected
	return nil
}

// SetModuleInput marks a resource as primary module input rather than
// option-argument input.
func (s *Session) SetModuleInput(id int, moduleInput bool) error {
	d, ok := s.byID[id]
	if !ok {
		return s.report(errors.NotAValidID(id, "unknown object"))
	}
	d.ModuleInput = moduleInput
	return nil
}

// ShelveFamily stashes a declared family to be consumed by the next
// Register call. Host bindings use it when a registration presents a
// generic tabular family but the container's real kind is only known
// to the caller; the resolution is deferred one call.
func (s *Session) ShelveFamily(f family.Family) {
	s.shelf = f
}

// LastErrorCode returns the most recently reported error code.
func (s *Session) LastErrorCode() errors.Code {
	return s.lastCode
}
