// Package uvmap resolves correspondence between meshes through their
// texture coordinates. A Mapper indexes one reference mesh's UV chart and
// answers nearest-point queries: for any UV location it returns the
// closest reference triangle and the barycentric weights of the nearest
// point on it, clamped onto the triangle when the query falls outside the
// chart. Any per-vertex quantity of the reference (positions, skin
// weights, shape deltas) can then be resampled through those weights.
//
// The mapper assumes a single non-overlapping chart and does not verify
// it; overlapping charts silently resolve to whichever triangle is
// nearest. Queries that miss the chart by more than the tolerance are
// flagged low confidence rather than rejected, so a handful of unmapped
// vertices never aborts a whole transfer. The only hard failure is a
// reference without texture coordinates or triangulation at all.
//
// Lookups are accelerated by a uniform grid over triangle bounding boxes
// and are safe to run concurrently; MapAll fans a batch out across
// GOMAXPROCS workers.
package uvmap
