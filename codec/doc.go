// Package codec provides the byte-level helpers behind the broker's
// built-in table converters: an ASCII table record reader/writer, a
// file opener with transparent gzip/zstd decompression, and a CBOR
// snapshot codec used for duplicate-method deep copies and dataset
// spill files.
//
// The per-family binary formats (grids, images, palettes, PostScript)
// are not implemented here; those codecs are injected into the broker
// by their owning packages.
package codec
