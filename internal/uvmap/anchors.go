package uvmap

import (
	"cogentcore.org/core/math32"

	"rigdna/internal/dna"
)

// JointAnchors derives a UV anchor per joint as the skin-weight-weighted
// mean of the mesh's vertex UVs. present reports which joints influence
// the mesh at all; anchors of absent joints are zero and should not be
// relocated.
func JointAnchors(mesh *dna.Mesh, jointCount int) (anchors []math32.Vector2, present []bool) {
	anchors = make([]math32.Vector2, jointCount)
	present = make([]bool, jointCount)
	if len(mesh.UVs) == 0 {
		return anchors, present
	}

	totals := make([]float32, jointCount)
	for vi, influences := range mesh.Weights {
		uv := mesh.UVs[vi]
		for _, jw := range influences {
			anchors[jw.Joint] = anchors[jw.Joint].Add(uv.MulScalar(jw.Weight))
			totals[jw.Joint] += jw.Weight
		}
	}
	for j := range anchors {
		if totals[j] > 0 {
			anchors[j] = anchors[j].DivScalar(totals[j])
			present[j] = true
		}
	}
	return anchors, present
}
