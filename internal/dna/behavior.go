package dna

import "fmt"

// The behavior graph addresses outputs through a combined channel vector:
// raw controls occupy indices [0, len(Controls)) and pose-space expression
// outputs follow at [len(Controls), ChannelCount()). Behaviors and solver
// queries read channels; only expressions read raw controls directly.

// Control is a named scalar input, clamped to [0,1] at evaluation.
type Control struct {
	Name string
}

// PSDExpression derives a corrective channel as the product of one or more
// raw controls. Inputs must index the control table; an input pointing at
// another expression's channel is rejected as a cycle when the document is
// built.
type PSDExpression struct {
	Name   string
	Inputs []uint16
}

// RBFDistanceMethod selects how a solver measures the distance between its
// query coordinate and a target pose.
type RBFDistanceMethod uint8

const (
	DistanceEuclidean RBFDistanceMethod = iota
	DistanceQuaternion
	DistanceSwingAngle
	DistanceTwistAngle
)

var distanceNames = map[RBFDistanceMethod]string{
	DistanceEuclidean:  "euclidean",
	DistanceQuaternion: "quaternion",
	DistanceSwingAngle: "swing-angle",
	DistanceTwistAngle: "twist-angle",
}

func (m RBFDistanceMethod) String() string { return enumName(distanceNames, uint8(m)) }

// MarshalText implements encoding.TextMarshaler.
func (m RBFDistanceMethod) MarshalText() ([]byte, error) { return enumText(distanceNames, uint8(m)) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *RBFDistanceMethod) UnmarshalText(text []byte) error {
	v, err := enumValue(distanceNames, "distance method", text)
	*m = RBFDistanceMethod(v)
	return err
}

// RBFKernel selects the falloff applied to a normalized pose distance.
type RBFKernel uint8

const (
	KernelGaussian RBFKernel = iota
	KernelExponential
	KernelLinear
	KernelCubic
	KernelQuintic
)

var kernelNames = map[RBFKernel]string{
	KernelGaussian:    "gaussian",
	KernelExponential: "exponential",
	KernelLinear:      "linear",
	KernelCubic:       "cubic",
	KernelQuintic:     "quintic",
}

func (k RBFKernel) String() string { return enumName(kernelNames, uint8(k)) }

// MarshalText implements encoding.TextMarshaler.
func (k RBFKernel) MarshalText() ([]byte, error) { return enumText(kernelNames, uint8(k)) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RBFKernel) UnmarshalText(text []byte) error {
	v, err := enumValue(kernelNames, "kernel", text)
	*k = RBFKernel(v)
	return err
}

// RBFMode selects how kernel weights become blend weights. Interpolative
// solves the pose kernel system so sample poses reproduce exactly;
// additive uses raw kernel falloff as layered correctives.
type RBFMode uint8

const (
	ModeInterpolative RBFMode = iota
	ModeAdditive
)

var modeNames = map[RBFMode]string{
	ModeInterpolative: "interpolative",
	ModeAdditive:      "additive",
}

func (m RBFMode) String() string { return enumName(modeNames, uint8(m)) }

// MarshalText implements encoding.TextMarshaler.
func (m RBFMode) MarshalText() ([]byte, error) { return enumText(modeNames, uint8(m)) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *RBFMode) UnmarshalText(text []byte) error {
	v, err := enumValue(modeNames, "solver mode", text)
	*m = RBFMode(v)
	return err
}

// RBFNormalizeMethod selects when blend weights are rescaled to sum to one.
type RBFNormalizeMethod uint8

const (
	NormalizeAlways RBFNormalizeMethod = iota
	NormalizeAboveOne
)

var normalizeNames = map[RBFNormalizeMethod]string{
	NormalizeAlways:   "always",
	NormalizeAboveOne: "above-one",
}

func (m RBFNormalizeMethod) String() string { return enumName(normalizeNames, uint8(m)) }

// MarshalText implements encoding.TextMarshaler.
func (m RBFNormalizeMethod) MarshalText() ([]byte, error) { return enumText(normalizeNames, uint8(m)) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *RBFNormalizeMethod) UnmarshalText(text []byte) error {
	v, err := enumValue(normalizeNames, "normalize method", text)
	*m = RBFNormalizeMethod(v)
	return err
}

// TwistAxis names the axis the swing/twist distance methods decompose
// around.
type TwistAxis uint8

const (
	TwistX TwistAxis = iota
	TwistY
	TwistZ
)

var twistNames = map[TwistAxis]string{
	TwistX: "x",
	TwistY: "y",
	TwistZ: "z",
}

func (a TwistAxis) String() string { return enumName(twistNames, uint8(a)) }

// MarshalText implements encoding.TextMarshaler.
func (a TwistAxis) MarshalText() ([]byte, error) { return enumText(twistNames, uint8(a)) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *TwistAxis) UnmarshalText(text []byte) error {
	v, err := enumValue(twistNames, "twist axis", text)
	*a = TwistAxis(v)
	return err
}

// DefaultRadius is the pose radius used when a solver stores zero and does
// not request an automatic one. Degrees for the rotational distance
// methods.
const DefaultRadius = 50.0

// JointOutput is one joint transform delta: tx ty tz in centimeters,
// rx ry rz in degrees, sx sy sz as scale deltas.
type JointOutput = [9]float32

// RBFPose pairs a target coordinate in the solver's input space with the
// outputs the rig should reach there.
type RBFPose struct {
	Name   string
	Input  []float32 // len == len(RBFSolver.Inputs)
	Joints []PoseJointDelta
	Shapes []PoseShapeWeight
	Maps   []PoseMapWeight
}

// PoseJointDelta is a pose's transform contribution for one joint.
type PoseJointDelta struct {
	Joint uint16
	Delta JointOutput
}

// PoseShapeWeight is a pose's weight contribution for one blend shape.
type PoseShapeWeight struct {
	Shape  uint16
	Weight float32
}

// PoseMapWeight is a pose's weight contribution for one animated map.
type PoseMapWeight struct {
	Map    uint16
	Weight float32
}

// RBFSolver interpolates discrete target poses by proximity in its input
// space. The quaternion-family distance methods require exactly four
// inputs holding qx qy qz qw of one driver transform; multi-driver setups
// are modeled as separate solvers.
type RBFSolver struct {
	Name            string
	Mode            RBFMode
	Distance        RBFDistanceMethod
	Kernel          RBFKernel
	Normalize       RBFNormalizeMethod
	TwistAxis       TwistAxis
	Radius          float32
	AutomaticRadius bool
	Inputs          []uint16 // channel indices forming the query coordinate
	Poses           []RBFPose
}

// ScalarKey is one breakpoint of a piecewise-linear scalar response.
type ScalarKey struct {
	In  float32
	Out float32
}

// TransformKey is one breakpoint of a piecewise-linear transform response.
type TransformKey struct {
	In  float32
	Out JointOutput
}

// JointBehavior drives one joint's transform delta from one channel.
// Multi-control influence is expressed as several behaviors summing onto
// the same joint.
type JointBehavior struct {
	Joint   uint16
	Channel uint16
	Keys    []TransformKey // ascending In
}

// ShapeBehavior drives one blend shape's weight from one channel.
type ShapeBehavior struct {
	Shape   uint16
	Channel uint16
	Keys    []ScalarKey // ascending In
}

// MapBehavior drives one animated map's weight from one channel.
type MapBehavior struct {
	Map     uint16
	Channel uint16
	Keys    []ScalarKey // ascending In
}

// BehaviorGraph is the control-to-output mapping embedded in a document.
type BehaviorGraph struct {
	Controls       []Control
	Expressions    []PSDExpression
	Solvers        []RBFSolver
	JointBehaviors []JointBehavior
	ShapeBehaviors []ShapeBehavior
	MapBehaviors   []MapBehavior
}

// ChannelCount reports the width of the combined channel vector.
func (g *BehaviorGraph) ChannelCount() int {
	return len(g.Controls) + len(g.Expressions)
}

// ControlIndex resolves a control name to its channel index.
func (g *BehaviorGraph) ControlIndex(name string) (int, bool) {
	for i, c := range g.Controls {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (g BehaviorGraph) clone() BehaviorGraph {
	out := BehaviorGraph{
		Controls:       append([]Control(nil), g.Controls...),
		Expressions:    make([]PSDExpression, len(g.Expressions)),
		Solvers:        make([]RBFSolver, len(g.Solvers)),
		JointBehaviors: make([]JointBehavior, len(g.JointBehaviors)),
		ShapeBehaviors: make([]ShapeBehavior, len(g.ShapeBehaviors)),
		MapBehaviors:   make([]MapBehavior, len(g.MapBehaviors)),
	}
	for i, e := range g.Expressions {
		e.Inputs = append([]uint16(nil), e.Inputs...)
		out.Expressions[i] = e
	}
	for i, s := range g.Solvers {
		s.Inputs = append([]uint16(nil), s.Inputs...)
		poses := make([]RBFPose, len(s.Poses))
		for j, p := range s.Poses {
			p.Input = append([]float32(nil), p.Input...)
			p.Joints = append([]PoseJointDelta(nil), p.Joints...)
			p.Shapes = append([]PoseShapeWeight(nil), p.Shapes...)
			p.Maps = append([]PoseMapWeight(nil), p.Maps...)
			poses[j] = p
		}
		s.Poses = poses
		out.Solvers[i] = s
	}
	for i, b := range g.JointBehaviors {
		b.Keys = append([]TransformKey(nil), b.Keys...)
		out.JointBehaviors[i] = b
	}
	for i, b := range g.ShapeBehaviors {
		b.Keys = append([]ScalarKey(nil), b.Keys...)
		out.ShapeBehaviors[i] = b
	}
	for i, b := range g.MapBehaviors {
		b.Keys = append([]ScalarKey(nil), b.Keys...)
		out.MapBehaviors[i] = b
	}
	return out
}

func enumName[K ~uint8](names map[K]string, v uint8) string {
	if name, ok := names[K(v)]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", v)
}

func enumText[K ~uint8](names map[K]string, v uint8) ([]byte, error) {
	name, ok := names[K(v)]
	if !ok {
		return nil, fmt.Errorf("dna: unknown enum value %d", v)
	}
	return []byte(name), nil
}

func enumValue[K ~uint8](names map[K]string, kind string, text []byte) (uint8, error) {
	for v, name := range names {
		if name == string(text) {
			return uint8(v), nil
		}
	}
	return 0, fmt.Errorf("dna: unknown %s %q", kind, string(text))
}
