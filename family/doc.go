// Package family defines the broker's shared enumerations: data
// families, geometries, physical access methods, transfer directions
// and per-pass status. These are wire-level constants shared by the
// registry, the record engine and the host bindings; keep values stable.
package family
