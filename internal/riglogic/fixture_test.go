package riglogic

import (
	"testing"

	"cogentcore.org/core/math32"

	"rigdna/internal/dna"
)

// jawGraph wires every pipeline stage: two raw controls, one corrective
// expression, one interpolative solver and direct behaviors driving a
// joint, two shapes and a map.
func jawGraph() dna.BehaviorGraph {
	return dna.BehaviorGraph{
		Controls: []dna.Control{
			{Name: "CTRL_expressions.jawOpen"},
			{Name: "CTRL_expressions.mouthSmile"},
		},
		Expressions: []dna.PSDExpression{
			{Name: "jawOpen_mouthSmile", Inputs: []uint16{0, 1}},
		},
		Solvers: []dna.RBFSolver{{
			Name:      "jaw_corrective",
			Mode:      dna.ModeInterpolative,
			Distance:  dna.DistanceEuclidean,
			Kernel:    dna.KernelGaussian,
			Normalize: dna.NormalizeAlways,
			Radius:    1,
			Inputs:    []uint16{0},
			Poses: []dna.RBFPose{
				{Name: "rest", Input: []float32{0}},
				{
					Name:   "open",
					Input:  []float32{1},
					Joints: []dna.PoseJointDelta{{Joint: 1, Delta: dna.JointOutput{0, 2, 0, 10, 0, 0, 0, 0, 0}}},
					Shapes: []dna.PoseShapeWeight{{Shape: 0, Weight: 0.5}},
					Maps:   []dna.PoseMapWeight{{Map: 0, Weight: 0.25}},
				},
			},
		}},
		JointBehaviors: []dna.JointBehavior{{
			Joint:   1,
			Channel: 0,
			Keys: []dna.TransformKey{
				{In: 0},
				{In: 1, Out: dna.JointOutput{0, 0, 0, 30, 0, 0, 0, 0, 0}},
			},
		}},
		ShapeBehaviors: []dna.ShapeBehavior{
			{Shape: 0, Channel: 0, Keys: []dna.ScalarKey{{In: 0, Out: 0}, {In: 1, Out: 0.4}}},
			{Shape: 1, Channel: 2, Keys: []dna.ScalarKey{{In: 0, Out: 0}, {In: 1, Out: 1}}},
		},
		MapBehaviors: []dna.MapBehavior{
			{Map: 0, Channel: 1, Keys: []dna.ScalarKey{{In: 0, Out: 0}, {In: 1, Out: 0.6}}},
		},
	}
}

func jawDocumentWithGraph(t *testing.T, g dna.BehaviorGraph) *dna.Document {
	t.Helper()
	b := dna.NewBuilder("eval_fixture")
	b.SetJoints([]dna.Joint{
		{Name: "spine_04", Parent: -1, Scale: math32.Vec3(1, 1, 1)},
		{Name: "jaw", Parent: 0, Translation: math32.Vec3(0, 2.5, 12), Scale: math32.Vec3(1, 1, 1)},
	})
	b.AddMesh(dna.Mesh{
		Name: "head_lod0",
		Positions: []math32.Vector3{
			math32.Vec3(0, 0, 0),
			math32.Vec3(1, 0, 0),
			math32.Vec3(0, 1, 0),
		},
		Triangles: [][3]uint32{{0, 1, 2}},
	})
	b.SetBlendShapes([]dna.BlendShape{
		{Name: "jawOpen", LOD: 0, Deltas: []dna.ShapeDelta{{Vertex: 1, Delta: math32.Vec3(0, -0.4, 0)}}},
		{Name: "jawOpenSmile", LOD: 0, Deltas: []dna.ShapeDelta{{Vertex: 2, Delta: math32.Vec3(0, -0.2, 0.1)}}},
	})
	b.SetAnimatedMaps([]dna.AnimatedMap{{Name: "head_wm1_jawOpen"}})
	b.SetGraph(g)
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build document: %v", err)
	}
	return doc
}

func jawDocument(t *testing.T) *dna.Document {
	t.Helper()
	return jawDocumentWithGraph(t, jawGraph())
}

func jawTestRig(t *testing.T) *Rig {
	t.Helper()
	r, err := NewRig(jawDocument(t))
	if err != nil {
		t.Fatalf("compile rig: %v", err)
	}
	return r
}
