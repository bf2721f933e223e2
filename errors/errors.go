package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which part of the broker reported the error.
type Phase string

const (
	PhaseSession   Phase = "session"   // bootstrap and teardown
	PhaseRegister  Phase = "register"  // resource registration
	PhaseLookup    Phase = "lookup"    // ID validation and lookup
	PhaseOwnership Phase = "ownership" // payload ownership and GC
	PhaseStream    Phase = "stream"    // record-by-record I/O
	PhaseMode      Phase = "mode"      // method/direction/mode validation
	PhaseConvert   Phase = "convert"   // family converter invocation
)

// Error is the structured error type used throughout the broker.
type Error struct {
	Cause  error
	Phase  Phase
	Code   Code
	Detail string
	Object int // resource ID when relevant, 0 otherwise
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(e.Code.String())

	if e.Object != 0 {
		fmt.Fprintf(&b, " (object %d)", e.Object)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two broker errors match
// when their codes match; the phase is diagnostic only.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// CodeOf extracts the broker code from err. It returns CodeOK for a nil
// error and CodeUnknown for a non-broker error.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeUnknown
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New creates a new error builder.
func New(phase Phase, code Code) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Code:  code,
		},
	}
}

// Object sets the resource ID the error refers to.
func (b *Builder) Object(id int) *Builder {
	b.err.Object = id
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NoSession is returned when an operation runs without an active session.
func NoSession() *Error {
	return &Error{Phase: PhaseSession, Code: CodeNoSession, Detail: "no active session"}
}

// NotAValidID creates a lookup failure for an unknown or mismatched resource ID.
func NotAValidID(id int, detail string) *Error {
	return &Error{Phase: PhaseLookup, Code: CodeNotAValidID, Object: id, Detail: detail}
}

// InvalidGeometry creates a registration failure for an incompatible
// family/geometry combination.
func InvalidGeometry(family, geometry string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Code:   CodeInvalidGeometry,
		Detail: fmt.Sprintf("geometry %s is not compatible with family %s", geometry, family),
	}
}

// IDExhausted is returned when the 6-digit resource ID space runs out.
func IDExhausted() *Error {
	return &Error{Phase: PhaseRegister, Code: CodeIDExhausted, Detail: "resource ID space exhausted"}
}

// FileNotFound creates a stream failure for a missing input file.
func FileNotFound(name string) *Error {
	return &Error{Phase: PhaseStream, Code: CodeFileNotFound, Detail: fmt.Sprintf("file %q not found", name)}
}

// BadPermission creates a stream failure for an unreadable input file.
func BadPermission(name string) *Error {
	return &Error{Phase: PhaseStream, Code: CodeBadPermission, Detail: fmt.Sprintf("file %q is not readable", name)}
}

// OpenFailed creates a stream failure for a file that could not be opened.
func OpenFailed(name string, cause error) *Error {
	return &Error{Phase: PhaseStream, Code: CodeOpenFailed, Detail: fmt.Sprintf("open %q", name), Cause: cause}
}

// SeekFailed creates a stream failure for a rewind that did not succeed.
func SeekFailed(name string, cause error) *Error {
	return &Error{Phase: PhaseStream, Code: CodeSeekFailed, Detail: fmt.Sprintf("seek %q", name), Cause: cause}
}

// ReadOnce creates a failure for reading an already-consumed input resource.
func ReadOnce(id int) *Error {
	return &Error{Phase: PhaseStream, Code: CodeReadOnce, Object: id, Detail: "input resource already consumed"}
}

// WriteOnce creates a failure for writing an already-finalized output resource.
func WriteOnce(id int) *Error {
	return &Error{Phase: PhaseStream, Code: CodeWriteOnce, Object: id, Detail: "output resource already finalized"}
}

// DimMismatch creates a failure for a record whose width differs from the
// established column count.
func DimMismatch(want, got int) *Error {
	return &Error{
		Phase:  PhaseStream,
		Code:   CodeDimMismatch,
		Detail: fmt.Sprintf("record has %d columns, stream is fixed at %d", got, want),
	}
}

// WrongLevel creates an ownership failure for freeing a payload at a
// nesting level that does not own it.
func WrongLevel(id, have, want int) *Error {
	return &Error{
		Phase:  PhaseOwnership,
		Code:   CodeFreeWrongLevel,
		Object: id,
		Detail: fmt.Sprintf("payload owned by level %d, freed at level %d", have, want),
	}
}

// PtrIsNull creates an ownership failure for an unexpectedly empty payload slot.
func PtrIsNull(id int, detail string) *Error {
	return &Error{Phase: PhaseOwnership, Code: CodePtrIsNull, Object: id, Detail: detail}
}

// PtrNotNull creates an ownership failure for an unexpectedly occupied payload slot.
func PtrNotNull(id int, detail string) *Error {
	return &Error{Phase: PhaseOwnership, Code: CodePtrNotNull, Object: id, Detail: detail}
}

// BadMethod creates a mode failure for an access method the operation
// does not support.
func BadMethod(detail string) *Error {
	return &Error{Phase: PhaseMode, Code: CodeInvalidMethod, Detail: detail}
}

// BadDirection creates a mode failure for a direction mismatch.
func BadDirection(detail string) *Error {
	return &Error{Phase: PhaseMode, Code: CodeInvalidDirection, Detail: detail}
}

// BadMode creates a mode failure for an invalid I/O mode.
func BadMode(detail string) *Error {
	return &Error{Phase: PhaseMode, Code: CodeInvalidMode, Detail: detail}
}

// NoConverter creates a convert failure for a family with no registered
// import/export functions.
func NoConverter(family string) *Error {
	return &Error{Phase: PhaseConvert, Code: CodeNoConverter, Detail: fmt.Sprintf("no converter registered for family %s", family)}
}

// ConvertFailed wraps a converter error.
func ConvertFailed(family string, cause error) *Error {
	return &Error{Phase: PhaseConvert, Code: CodeConvertFailed, Detail: fmt.Sprintf("family %s", family), Cause: cause}
}

// NoInput is returned when record input starts with nothing registered.
func NoInput() *Error {
	return &Error{Phase: PhaseStream, Code: CodeNoInput, Detail: "no input resources registered"}
}

// NoOutput is returned when record output starts with nothing registered.
func NoOutput() *Error {
	return &Error{Phase: PhaseStream, Code: CodeNoOutput, Detail: "no output resources registered"}
}

// NotEnabled is returned when GetRecord/PutRecord run outside a
// BeginIO/EndIO window.
func NotEnabled(direction string) *Error {
	return &Error{Phase: PhaseStream, Code: CodeAccessNotEnabled, Detail: fmt.Sprintf("record access not enabled for %s", direction)}
}

// RecordMismatch creates a failure for a malformed input record under a
// strict read mode.
func RecordMismatch(detail string) *Error {
	return &Error{Phase: PhaseStream, Code: CodeRecordMismatch, Detail: detail}
}

// Wrap wraps an existing error with broker phase and code context.
func Wrap(phase Phase, code Code, cause error, detail string) *Error {
	return &Error{Phase: phase, Code: code, Detail: detail, Cause: cause}
}
