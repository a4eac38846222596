package calibrate

import (
	"testing"

	"cogentcore.org/core/math32"

	"rigdna/internal/dna"
	"rigdna/internal/snapshot"
)

// testDoc builds the reference rig the suite edits: two joints, one LOD
// whose quad spans the unit UV square, full skin weights, one blend
// shape, and a small behavior graph that must carry over untouched.
func testDoc(t *testing.T) *dna.Document {
	t.Helper()
	b := dna.NewBuilder("hero_face")
	b.SetJoints([]dna.Joint{
		{Name: "neck_01", Parent: -1, Translation: math32.Vec3(0, 0, 150), Scale: math32.Vec3(1, 1, 1)},
		{Name: "jaw", Parent: 0, Translation: math32.Vec3(0, 2, 10), Rotation: math32.Vec3(0, 0, -4), Scale: math32.Vec3(1, 1, 1)},
	})
	b.SetMeshes([]dna.Mesh{{
		Name: "face_lod0",
		Positions: []math32.Vector3{
			math32.Vec3(-1, 0, 0),
			math32.Vec3(1, 0, 0),
			math32.Vec3(1, 2, 0),
			math32.Vec3(-1, 2, 0),
		},
		UVs: []math32.Vector2{
			math32.Vec2(0, 0),
			math32.Vec2(1, 0),
			math32.Vec2(1, 1),
			math32.Vec2(0, 1),
		},
		Triangles: [][3]uint32{{0, 1, 3}, {1, 2, 3}},
		Weights: [][]dna.JointWeight{
			{{Joint: 0, Weight: 1}},
			{{Joint: 0, Weight: 0.6}, {Joint: 1, Weight: 0.4}},
			{{Joint: 1, Weight: 1}},
			{{Joint: 0, Weight: 0.5}, {Joint: 1, Weight: 0.5}},
		},
	}})
	b.SetBlendShapes([]dna.BlendShape{{
		Name: "jawOpen",
		LOD:  0,
		Deltas: []dna.ShapeDelta{
			{Vertex: 2, Delta: math32.Vec3(0, -0.8, 0.1)},
			{Vertex: 3, Delta: math32.Vec3(0, -0.4, 0)},
		},
	}})
	b.SetAnimatedMaps([]dna.AnimatedMap{{Name: "face_wrinkle"}})
	b.SetGraph(dna.BehaviorGraph{
		Controls: []dna.Control{{Name: "CTRL_expressions.jawOpen"}},
		JointBehaviors: []dna.JointBehavior{{
			Joint:   1,
			Channel: 0,
			Keys: []dna.TransformKey{
				{In: 0, Out: dna.JointOutput{}},
				{In: 1, Out: dna.JointOutput{0, 0.2, 0, 24, 0, 0, 0, 0, 0}},
			},
		}},
		ShapeBehaviors: []dna.ShapeBehavior{{
			Shape:   0,
			Channel: 0,
			Keys:    []dna.ScalarKey{{In: 0, Out: 0}, {In: 1, Out: 1}},
		}},
	})
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return doc
}

// identitySnapshot captures the document's stored geometry unchanged:
// same positions per LOD, no weight, shape, or joint edits.
func identitySnapshot(doc *dna.Document) *snapshot.Snapshot {
	lods := make([]snapshot.LOD, doc.MeshCount())
	for i := range lods {
		mesh, _ := doc.Mesh(i)
		lods[i] = snapshot.LOD{
			Positions: append([]math32.Vector3(nil), mesh.Positions...),
			UVs:       append([]math32.Vector2(nil), mesh.UVs...),
			Triangles: append([][3]uint32(nil), mesh.Triangles...),
		}
	}
	return &snapshot.Snapshot{Name: doc.Meta().Name, LODs: lods}
}

func encodeDoc(t *testing.T, doc *dna.Document) []byte {
	t.Helper()
	data, err := dna.Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}
