// Package calibrate derives new rig documents from edited-geometry
// captures.
//
// Calibrate is the exact mode: the capture kept the document's vertex
// indices and joint names, so every table transfers by index. Edits below
// the package tolerances keep the stored values bit for bit, which makes
// repeated calibration against the same capture reproduce the document
// exactly. Overwrite is the approximate mode for rebuilt or re-indexed
// meshes: rig data is pulled through a UV correspondence onto the
// capture's topology, joints are relocated through their UV anchors, and
// vertices the correspondence could not place confidently are recorded in
// the produced document's metadata.
//
// The Service wraps both modes with the per-file advisory lock and the
// archive entry the command layer relies on; callers composing their own
// pipeline can use Calibrate and Overwrite directly.
package calibrate
