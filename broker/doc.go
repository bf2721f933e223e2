// Package broker is the runtime through which geospatial processing
// modules and their host languages exchange heterogeneous data objects
// without knowing where the data originates or terminates.
//
// One logical resource can be reached through several physical methods:
// a named file, an open stream, a raw file descriptor, or an in-memory
// container shared by reference or deep-copied. The broker's parts:
//
//   - Registry: creates, validates, looks up and removes resource
//     descriptors by stable numeric ID.
//   - Ownership & GC: tracks which module nesting depth owns each
//     payload and sweeps exactly once when that depth unwinds, even as
//     raw pointers are reassigned between producer and consumer.
//   - Virtual files: synthetic filenames encoding a resource ID, so one
//     module's output becomes another's input with no disk I/O.
//   - Record engine: a uniform BeginIO/GetRecord/PutRecord/EndIO
//     sequence that walks any number of concatenated heterogeneous
//     sources as one stream of records, synthesizing segment and table
//     boundaries and delaying headers whose width is not yet known.
//
// # Sessions
//
//	ses, err := broker.New("myhost", 2, broker.NoExit)
//	defer ses.Destroy()
//
//	id, err := ses.Register(family.Dataset, family.MethodFile,
//	    family.GeomPoint, family.In, "track.txt")
//	err = ses.BeginIO(family.Dataset, family.In, record.ModeData)
//	for {
//	    rec, err := ses.GetRecord(record.ModeData)
//	    if rec.Kind == record.KindEOF { break }
//	    ...
//	}
//	err = ses.EndIO(family.In)
//
// A session is strictly single-threaded: there is no internal locking,
// and sharing a session across goroutines requires external
// synchronization. The nesting level tracks call-stack depth of nested
// module invocations, not concurrency; it is the sole mechanism
// deciding ownership and cleanup timing.
package broker
