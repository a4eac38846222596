package dna

import (
	"testing"

	"cogentcore.org/core/math32"
)

// testDocument builds a small but fully populated rig: two joints, one
// LOD with a two-triangle UV chart, a sparse blend shape, an animated
// map, and a behavior graph exercising every behavior kind.
func testDocument(t *testing.T) *Document {
	t.Helper()
	doc, err := testBuilder().Build()
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}
	return doc
}

func testBuilder() *Builder {
	b := NewBuilder("ada")
	b.SetJoints([]Joint{
		{Name: "spine_04", Parent: -1, Translation: math32.Vec3(0, 0, 150), Scale: math32.Vec3(1, 1, 1)},
		{Name: "jaw", Parent: 0, Translation: math32.Vec3(0, 2.5, 12), Rotation: math32.Vec3(0, 0, -4), Scale: math32.Vec3(1, 1, 1)},
	})
	b.SetMeshes([]Mesh{{
		Name: "head_lod0",
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
		Triangles: [][3]uint32{{0, 1, 2}, {0, 2, 3}},
		Weights: [][]JointWeight{
			{{Joint: 0, Weight: 1}},
			{{Joint: 0, Weight: 0.75}, {Joint: 1, Weight: 0.25}},
			{{Joint: 1, Weight: 1}},
			{{Joint: 0, Weight: 0.5}, {Joint: 1, Weight: 0.5}},
		},
	}})
	b.SetBlendShapes([]BlendShape{{
		Name: "jawOpen",
		LOD:  0,
		Deltas: []ShapeDelta{
			{Vertex: 1, Delta: math32.Vec3(0, -0.4, 0)},
			{Vertex: 2, Delta: math32.Vec3(0, -0.9, 0.1)},
		},
	}})
	b.SetAnimatedMaps([]AnimatedMap{{Name: "head_wm1_normal"}})
	b.SetGraph(BehaviorGraph{
		Controls: []Control{
			{Name: "CTRL_expressions.jawOpen"},
			{Name: "CTRL_expressions.mouthClose"},
		},
		Expressions: []PSDExpression{
			{Name: "jawOpen_mouthClose", Inputs: []uint16{0, 1}},
		},
		Solvers: []RBFSolver{{
			Name:     "jaw_corrective",
			Mode:     ModeInterpolative,
			Distance: DistanceEuclidean,
			Kernel:   KernelGaussian,
			Radius:   1,
			Inputs:   []uint16{0},
			Poses: []RBFPose{
				{
					Name:   "rest",
					Input:  []float32{0},
					Joints: []PoseJointDelta{{Joint: 1, Delta: JointOutput{}}},
				},
				{
					Name:   "open",
					Input:  []float32{1},
					Joints: []PoseJointDelta{{Joint: 1, Delta: JointOutput{0, 0.2, 0, 12, 0, 0, 0, 0, 0}}},
					Shapes: []PoseShapeWeight{{Shape: 0, Weight: 0.35}},
				},
			},
		}},
		JointBehaviors: []JointBehavior{{
			Joint:   1,
			Channel: 0,
			Keys: []TransformKey{
				{In: 0, Out: JointOutput{}},
				{In: 1, Out: JointOutput{0, 0, 0, 30, 0, 0, 0, 0, 0}},
			},
		}},
		ShapeBehaviors: []ShapeBehavior{{
			Shape:   0,
			Channel: 0,
			Keys:    []ScalarKey{{In: 0, Out: 0}, {In: 1, Out: 1}},
		}},
		MapBehaviors: []MapBehavior{{
			Map:     0,
			Channel: 2,
			Keys:    []ScalarKey{{In: 0, Out: 0}, {In: 1, Out: 0.8}},
		}},
	})
	return b
}
