// Package record defines the unit of exchange for the broker's
// record-by-record engine: one Record per Get/Put call, discriminated
// by Kind, plus the read/write Mode flags.
package record
