package riglogic

import (
	"testing"

	"cogentcore.org/core/base/tolassert"
	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"

	"rigdna/internal/dna"
)

func TestEvaluateAtRest(t *testing.T) {
	inst := NewInstance(jawTestRig(t))
	inst.Evaluate()

	assert.Equal(t, make([]float32, 18), inst.JointDeltas())
	assert.Equal(t, []float32{0, 0}, inst.ShapeWeights())
	assert.Equal(t, []float32{0}, inst.MapWeights())
}

func TestEvaluateFullOpen(t *testing.T) {
	inst := NewInstance(jawTestRig(t))
	inst.SetControl(0, 1)
	inst.Evaluate()

	// The query lands exactly on the open pose, so the solver reproduces
	// its stored outputs bit for bit; the behavior endpoint adds on top.
	jaw := inst.JointDelta(1)
	assert.Equal(t, float32(2), jaw[1])
	assert.Equal(t, float32(40), jaw[3])
	assert.Equal(t, dna.JointOutput{}, inst.JointDelta(0))

	tolassert.EqualTol(t, 0.9, inst.ShapeWeights()[0], 1e-6)
	assert.Equal(t, float32(0), inst.ShapeWeights()[1])
	assert.Equal(t, float32(0.25), inst.MapWeights()[0])
}

func TestEvaluateHalfOpen(t *testing.T) {
	inst := NewInstance(jawTestRig(t))
	inst.SetControl(0, 0.5)
	inst.Evaluate()

	// Midway between the symmetric poses the normalized blend is an even
	// split: half the open pose plus the behavior at its midpoint.
	jaw := inst.JointDelta(1)
	tolassert.EqualTol(t, 1, jaw[1], 1e-4)
	tolassert.EqualTol(t, 20, jaw[3], 1e-4)
	tolassert.EqualTol(t, 0.45, inst.ShapeWeights()[0], 1e-4)
	tolassert.EqualTol(t, 0.125, inst.MapWeights()[0], 1e-4)
}

func TestEvaluateBehaviorOnlyJaw(t *testing.T) {
	g := dna.BehaviorGraph{
		Controls: []dna.Control{{Name: "CTRL_expressions.jawOpen"}},
		JointBehaviors: []dna.JointBehavior{{
			Joint:   1,
			Channel: 0,
			Keys: []dna.TransformKey{
				{In: 0},
				{In: 1, Out: dna.JointOutput{0, 0, 0, 30, 0, 0, 0, 0, 0}},
			},
		}},
	}
	r, err := NewRig(jawDocumentWithGraph(t, g))
	assert.NoError(t, err)

	// With no solvers in the graph the jaw rotation comes from the linear
	// keys alone: exact at the endpoints, halved at the midpoint.
	inst := NewInstance(r)
	for _, tc := range []struct{ control, want float32 }{
		{0, 0},
		{0.5, 15},
		{1, 30},
	} {
		inst.SetControl(0, tc.control)
		inst.Evaluate()
		tolassert.EqualTol(t, tc.want, inst.JointDelta(1)[3], 1e-6)
		assert.Equal(t, dna.JointOutput{}, inst.JointDelta(0))
	}
}

func TestEvaluateExpressionChannel(t *testing.T) {
	inst := NewInstance(jawTestRig(t))
	inst.SetControl(0, 1)
	inst.SetControl(1, 0.5)
	inst.Evaluate()

	// The corrective channel carries the product of its drivers.
	tolassert.EqualTol(t, 0.5, inst.ShapeWeights()[1], 1e-6)
	tolassert.EqualTol(t, 0.55, inst.MapWeights()[0], 1e-4)
}

func TestEvaluateClampsInputs(t *testing.T) {
	r := jawTestRig(t)

	over := NewInstance(r)
	over.SetControl(0, 1.8)
	over.Evaluate()
	exact := NewInstance(r)
	exact.SetControl(0, 1)
	exact.Evaluate()
	assert.Equal(t, exact.JointDeltas(), over.JointDeltas())
	assert.Equal(t, exact.ShapeWeights(), over.ShapeWeights())
	assert.Equal(t, exact.MapWeights(), over.MapWeights())

	under := NewInstance(r)
	under.SetControl(0, -2.5)
	under.Evaluate()
	rest := NewInstance(r)
	rest.Evaluate()
	assert.Equal(t, rest.JointDeltas(), under.JointDeltas())
}

func TestEvaluateClampsShapeAndMapOutputs(t *testing.T) {
	b := dna.NewBuilder("clamp_fixture")
	b.SetJoints([]dna.Joint{{Name: "brow", Parent: -1}})
	b.AddMesh(dna.Mesh{
		Name:      "brow_lod0",
		Positions: []math32.Vector3{{}, {X: 1}, {Y: 1}},
		Triangles: [][3]uint32{{0, 1, 2}},
	})
	b.SetBlendShapes([]dna.BlendShape{{Name: "browRaise", LOD: 0, Deltas: []dna.ShapeDelta{{Vertex: 0, Delta: math32.Vector3{Y: 0.1}}}}})
	b.SetAnimatedMaps([]dna.AnimatedMap{{Name: "brow_wm"}})
	b.SetGraph(dna.BehaviorGraph{
		Controls: []dna.Control{{Name: "CTRL_brow"}},
		JointBehaviors: []dna.JointBehavior{{
			Joint:   0,
			Channel: 0,
			Keys:    []dna.TransformKey{{In: 0}, {In: 1, Out: dna.JointOutput{0, 0, 0, 120, 0, 0, 0, 0, 0}}},
		}},
		ShapeBehaviors: []dna.ShapeBehavior{
			{Shape: 0, Channel: 0, Keys: []dna.ScalarKey{{In: 0, Out: -0.5}, {In: 1, Out: 1.6}}},
		},
		MapBehaviors: []dna.MapBehavior{
			{Map: 0, Channel: 0, Keys: []dna.ScalarKey{{In: 0, Out: -1}, {In: 1, Out: 2}}},
		},
	})
	doc, err := b.Build()
	assert.NoError(t, err)
	r, err := NewRig(doc)
	assert.NoError(t, err)

	inst := NewInstance(r)
	inst.Evaluate()
	assert.Equal(t, float32(0), inst.ShapeWeights()[0])
	assert.Equal(t, float32(0), inst.MapWeights()[0])

	inst.SetControl(0, 1)
	inst.Evaluate()
	assert.Equal(t, float32(1), inst.ShapeWeights()[0])
	assert.Equal(t, float32(1), inst.MapWeights()[0])
	// Joint deltas are never clamped.
	assert.Equal(t, float32(120), inst.JointDelta(0)[3])
}

func TestEvaluateAdditiveMode(t *testing.T) {
	g := jawGraph()
	g.Solvers[0].Mode = dna.ModeAdditive
	g.Solvers[0].Normalize = dna.NormalizeAboveOne
	r, err := NewRig(jawDocumentWithGraph(t, g))
	assert.NoError(t, err)

	inst := NewInstance(r)
	inst.SetControl(0, 1)
	inst.Evaluate()

	// Additive mode layers raw kernel falloff, so even an exact pose hit
	// keeps the rest pose's residual weight in the normalized sum.
	e := math32.Exp(-4)
	jaw := inst.JointDelta(1)
	tolassert.EqualTol(t, 10/(1+e)+30, jaw[3], 1e-3)
	assert.Less(t, jaw[3], float32(40))
	tolassert.EqualTol(t, 0.5/(1+e)+0.4, inst.ShapeWeights()[0], 1e-3)
}

func TestEvaluateQuaternionSolver(t *testing.T) {
	b := dna.NewBuilder("quat_fixture")
	b.SetJoints([]dna.Joint{{Name: "neck_01", Parent: -1}})
	b.SetGraph(dna.BehaviorGraph{
		Controls: []dna.Control{
			{Name: "neck_01.qx"},
			{Name: "neck_01.qy"},
			{Name: "neck_01.qz"},
			{Name: "neck_01.qw"},
		},
		Solvers: []dna.RBFSolver{{
			Name:      "neck_correctives",
			Mode:      dna.ModeInterpolative,
			Distance:  dna.DistanceQuaternion,
			Kernel:    dna.KernelGaussian,
			Normalize: dna.NormalizeAlways,
			Radius:    90,
			Inputs:    []uint16{0, 1, 2, 3},
			Poses: []dna.RBFPose{
				{Name: "rest", Input: []float32{0, 0, 0, 1}},
				{
					Name:   "bent",
					Input:  quatValues(1, 0, 0, 90),
					Joints: []dna.PoseJointDelta{{Joint: 0, Delta: dna.JointOutput{0, 0, 0, 0, 0, 0, 0, 0.1, 0}}},
				},
			},
		}},
	})
	doc, err := b.Build()
	assert.NoError(t, err)
	r, err := NewRig(doc)
	assert.NoError(t, err)

	inst := NewInstance(r)
	for i, v := range quatValues(1, 0, 0, 45) {
		inst.SetControl(i, v)
	}
	inst.Evaluate()
	// 45 degrees sits symmetrically between the poses.
	tolassert.EqualTol(t, 0.05, inst.JointDelta(0)[7], 1e-4)

	for i, v := range quatValues(1, 0, 0, 90) {
		inst.SetControl(i, v)
	}
	inst.Evaluate()
	tolassert.EqualTol(t, 0.1, inst.JointDelta(0)[7], 1e-3)
}

func TestSetControlByName(t *testing.T) {
	inst := NewInstance(jawTestRig(t))

	assert.True(t, inst.SetControlByName("CTRL_expressions.jawOpen", 1))
	assert.False(t, inst.SetControlByName("CTRL_expressions.browRaise", 1))

	inst.Evaluate()
	assert.Equal(t, float32(40), inst.JointDelta(1)[3])

	inst.Reset()
	inst.Evaluate()
	assert.Equal(t, dna.JointOutput{}, inst.JointDelta(1))
}

func TestEvaluateDeterministic(t *testing.T) {
	r := jawTestRig(t)

	run := func() ([]float32, []float32, []float32) {
		inst := NewInstance(r)
		inst.SetControl(0, 0.337)
		inst.SetControl(1, 0.62)
		inst.Evaluate()
		inst.Evaluate()
		joints := append([]float32(nil), inst.JointDeltas()...)
		shapes := append([]float32(nil), inst.ShapeWeights()...)
		maps := append([]float32(nil), inst.MapWeights()...)
		return joints, shapes, maps
	}

	j1, s1, m1 := run()
	j2, s2, m2 := run()
	assert.Equal(t, j1, j2)
	assert.Equal(t, s1, s2)
	assert.Equal(t, m1, m2)
}

func TestEvaluateAllocationFree(t *testing.T) {
	inst := NewInstance(jawTestRig(t))

	allocs := testing.AllocsPerRun(200, func() {
		inst.SetControl(0, 0.41)
		inst.SetControl(1, 0.73)
		inst.Evaluate()
	})
	assert.Zero(t, allocs)
}
