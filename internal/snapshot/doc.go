// Package snapshot models the edited-geometry capture an editor hands to
// the calibration pipeline. A snapshot is a plain JSON file with per-LOD
// vertex positions plus whatever else the edit touched: texture
// coordinates and triangulation, sparse blend-shape deltas, per-vertex
// skin weights keyed by joint name, and joint rest transforms.
//
// Snapshots are inputs, never outputs. The pipeline reads them and leaves
// them untouched; nothing here mutates a snapshot after Parse, and the
// calibrator resolves names against the target document rather than
// trusting indices, so a snapshot exported from a differently ordered
// rig still applies.
package snapshot
