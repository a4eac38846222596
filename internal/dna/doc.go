// Package dna models a character rig description ("DNA") and its on-disk
// container.
//
// A Document owns the joint hierarchy, per-LOD mesh geometry, skin weights,
// sparse blend-shape deltas, animated-map registry, and the behavior graph
// that maps control values onto those outputs. Documents are immutable once
// built: Parse and Builder.Build are the only producers, every accessor is
// read-only, and derived versions are created by the calibrate package
// rather than edited in place so prior state stays available for diffing.
//
// The binary container (Encode/Decode) stores sections in a fixed order
// with length prefixes so individual sections can be read without decoding
// the rest of the file. A JSON codec (EncodeJSON/DecodeJSON) carries the
// same model for inspection and interchange. Both codecs round-trip
// exactly; Decode validates the document before returning it, so anything
// this package hands out satisfies the structural invariants in
// Document.Validate.
package dna
