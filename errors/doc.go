// Package errors provides the broker's structured error type.
//
// Every failure carries a Phase (where it happened) and a Code (what
// happened). Codes form a fixed integer enumeration with a parallel
// string table, so foreign-language hosts can switch on the number
// while logs stay readable.
//
// Errors are constructed either through convenience functions:
//
//	return errors.NotAValidID(id, "direction mismatch")
//
// or through the builder for less common shapes:
//
//	return errors.New(errors.PhaseStream, errors.CodeOpenFailed).
//	    Object(id).
//	    Cause(err).
//	    Detail("open %q", name).
//	    Build()
//
// Matching uses the standard errors.Is machinery; two broker errors
// match when their codes match:
//
//	if errors.Is(err, &errors.Error{Code: errors.CodeFileNotFound}) { ... }
//
// There are no panics on the failure path. All failure is by return value.
package errors
