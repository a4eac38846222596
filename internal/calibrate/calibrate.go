package calibrate

import (
	"sort"

	"cogentcore.org/core/math32"

	"rigdna/internal/dna"
	"rigdna/internal/snapshot"
)

// Tolerances below which an edit is treated as unchanged and the stored
// value kept bit for bit. Repeated calibration against the same capture
// then reproduces the document exactly instead of drifting.
const (
	// VertexTolerance bounds bind-position drift, in centimeters.
	VertexTolerance = 1e-6
	// ShapeDeltaTolerance drops blend-shape displacements too small to
	// pose a vertex.
	ShapeDeltaTolerance = 1e-6
	// JointTolerance bounds rest-transform drift: centimeters for
	// translation, degrees for rotation.
	JointTolerance = 1e-3
)

// Calibrate applies an edited-geometry capture to a document whose vertex
// indices and joint names the capture preserved, returning the derived
// document. Bind positions, blend-shape deltas, skin weights, and joint
// rest transforms come from the capture; the behavior graph carries over
// verbatim. Blend-shape deltas stay relative, so unedited shapes follow
// the new bind pose without being touched. Returns *IndexMismatchError
// when the capture does not line up with the document.
func Calibrate(doc *dna.Document, snap *snapshot.Snapshot) (*dna.Document, error) {
	if err := checkIndices(doc, snap); err != nil {
		return nil, err
	}

	meshes := make([]dna.Mesh, doc.MeshCount())
	for i := range meshes {
		src, err := doc.Mesh(i)
		if err != nil {
			return nil, err
		}
		meshes[i] = calibrateMesh(doc, src, &snap.LODs[i])
	}

	return doc.Edit().
		SetJoints(calibrateJoints(doc.Joints(), snap)).
		SetMeshes(meshes).
		SetBlendShapes(calibrateShapes(doc, snap)).
		Build()
}

// checkIndices verifies the Calibrate precondition before any table is
// rebuilt: matching LOD and vertex counts, and capture joint and shape
// names that all resolve in the document.
func checkIndices(doc *dna.Document, snap *snapshot.Snapshot) error {
	if len(snap.LODs) != doc.MeshCount() {
		return &IndexMismatchError{Kind: "lod", LOD: -1, Want: doc.MeshCount(), Got: len(snap.LODs)}
	}
	for i := range snap.LODs {
		lod := &snap.LODs[i]
		mesh, err := doc.Mesh(i)
		if err != nil {
			return err
		}
		if len(lod.Positions) != mesh.VertexCount() {
			return &IndexMismatchError{Kind: "vertex", LOD: i, Want: mesh.VertexCount(), Got: len(lod.Positions)}
		}
		for _, weights := range lod.Weights {
			for name := range weights {
				if _, ok := doc.JointIndex(name); !ok {
					return &IndexMismatchError{Kind: "joint", LOD: i, Name: name}
				}
			}
		}
		for _, edit := range lod.Shapes {
			if findShape(doc.BlendShapes(), edit.Name, uint16(i)) < 0 {
				return &IndexMismatchError{Kind: "shape", LOD: i, Name: edit.Name}
			}
		}
	}
	for _, rest := range snap.Joints {
		if _, ok := doc.JointIndex(rest.Name); !ok {
			return &IndexMismatchError{Kind: "joint", LOD: -1, Name: rest.Name}
		}
	}
	return nil
}

func calibrateMesh(doc *dna.Document, src *dna.Mesh, lod *snapshot.LOD) dna.Mesh {
	m := dna.Mesh{
		Name:      src.Name,
		Positions: append([]math32.Vector3(nil), src.Positions...),
		UVs:       append([]math32.Vector2(nil), src.UVs...),
		Triangles: append([][3]uint32(nil), src.Triangles...),
	}
	for v := range m.Positions {
		if lod.Positions[v].Sub(m.Positions[v]).Length() > VertexTolerance {
			m.Positions[v] = lod.Positions[v]
		}
	}
	switch {
	case lod.Weights != nil:
		m.Weights = make([][]dna.JointWeight, len(lod.Weights))
		for v, named := range lod.Weights {
			m.Weights[v] = resolveWeights(doc, named)
		}
	case src.Weights != nil:
		m.Weights = make([][]dna.JointWeight, len(src.Weights))
		for v, w := range src.Weights {
			m.Weights[v] = append([]dna.JointWeight(nil), w...)
		}
	}
	return m
}

// resolveWeights turns one vertex's named weights into joint-indexed
// entries, sorted by joint and renormalized to sum to one. Names were
// resolved by checkIndices; entries at or below zero are dropped.
func resolveWeights(doc *dna.Document, named snapshot.VertexWeights) []dna.JointWeight {
	out := make([]dna.JointWeight, 0, len(named))
	var sum float32
	for name, w := range named {
		if w <= 0 {
			continue
		}
		idx, _ := doc.JointIndex(name)
		out = append(out, dna.JointWeight{Joint: uint16(idx), Weight: w})
		sum += w
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Joint < out[j].Joint })
	if sum > 0 {
		inv := 1 / sum
		for i := range out {
			out[i].Weight *= inv
		}
	}
	return out
}

func calibrateShapes(doc *dna.Document, snap *snapshot.Snapshot) []dna.BlendShape {
	src := doc.BlendShapes()
	shapes := make([]dna.BlendShape, len(src))
	for i, s := range src {
		shapes[i] = dna.BlendShape{
			Name:   s.Name,
			LOD:    s.LOD,
			Deltas: append([]dna.ShapeDelta(nil), s.Deltas...),
		}
	}
	for li := range snap.LODs {
		for _, edit := range snap.LODs[li].Shapes {
			idx := findShape(shapes, edit.Name, uint16(li))
			shapes[idx].Deltas = sparsifyDeltas(edit.Deltas)
		}
	}
	return shapes
}

func findShape(shapes []dna.BlendShape, name string, lod uint16) int {
	for i, s := range shapes {
		if s.LOD == lod && s.Name == name {
			return i
		}
	}
	return -1
}

// sparsifyDeltas keeps only displacements large enough to pose a vertex,
// sorted by vertex index.
func sparsifyDeltas(deltas []snapshot.VertexDelta) []dna.ShapeDelta {
	out := make([]dna.ShapeDelta, 0, len(deltas))
	for _, d := range deltas {
		if d.Delta.Length() > ShapeDeltaTolerance {
			out = append(out, dna.ShapeDelta{Vertex: d.Vertex, Delta: d.Delta})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vertex < out[j].Vertex })
	return out
}

func calibrateJoints(src []dna.Joint, snap *snapshot.Snapshot) []dna.Joint {
	joints := append([]dna.Joint(nil), src...)
	for i := range joints {
		rest, ok := snap.JointRest(joints[i].Name)
		if !ok {
			continue
		}
		j := &joints[i]
		if rest.Translation.Sub(j.Translation).Length() > JointTolerance {
			j.Translation = rest.Translation
		}
		applyRotation(&j.Rotation.X, rest.Rotation.X)
		applyRotation(&j.Rotation.Y, rest.Rotation.Y)
		applyRotation(&j.Rotation.Z, rest.Rotation.Z)
		if rest.Scale.Sub(j.Scale).Length() > JointTolerance {
			j.Scale = rest.Scale
		}
	}
	return joints
}

// applyRotation replaces one Euler component when it moved past the
// tolerance. Deltas of a full turn or more are angle wrapping, not edits,
// and keep the stored value.
func applyRotation(stored *float32, edited float32) {
	if d := math32.Abs(edited - *stored); d > JointTolerance && d < 360 {
		*stored = edited
	}
}
