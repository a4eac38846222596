package riglogic

import (
	"fmt"

	"rigdna/internal/dna"
)

// Rig is the compiled, immutable form of one document's behavior graph.
// Safe to share across any number of instances and goroutines.
type Rig struct {
	doc   *dna.Document
	graph *dna.BehaviorGraph

	solvers      []compiledSolver
	controlIndex map[string]int

	maxInputs int
	maxPoses  int
}

type compiledSolver struct {
	solver *dna.RBFSolver
	radius float32
	lu     *luFactors // interpolative mode only
}

// NewRig compiles a document's behavior graph for evaluation. The graph
// is checked here even though document producers validate, so the
// evaluator's no-error-path contract never depends on where the document
// came from. Interpolative solver kernel matrices are factorized once;
// degenerate pose sets fail compilation.
func NewRig(doc *dna.Document) (*Rig, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	g := doc.Graph()
	r := &Rig{
		doc:          doc,
		graph:        g,
		controlIndex: make(map[string]int, len(g.Controls)),
	}
	for i, c := range g.Controls {
		r.controlIndex[c.Name] = i
	}
	r.solvers = make([]compiledSolver, len(g.Solvers))
	for i := range g.Solvers {
		s := &g.Solvers[i]
		cs := compiledSolver{solver: s, radius: effectiveRadius(s)}
		if len(s.Inputs) > r.maxInputs {
			r.maxInputs = len(s.Inputs)
		}
		if len(s.Poses) > r.maxPoses {
			r.maxPoses = len(s.Poses)
		}
		if s.Mode == dna.ModeInterpolative {
			lu, err := factorizePoses(s, cs.radius)
			if err != nil {
				return nil, fmt.Errorf("riglogic: solver %q: %w", s.Name, err)
			}
			cs.lu = lu
		}
		r.solvers[i] = cs
	}
	return r, nil
}

// effectiveRadius resolves the pose radius a solver normalizes distances
// by: the automatic mean-distance radius when requested, the stored
// radius otherwise, and the package default when neither yields a
// positive value.
func effectiveRadius(s *dna.RBFSolver) float32 {
	if s.AutomaticRadius {
		rest := restCoordinate(s)
		var sum float32
		for i := range s.Poses {
			sum += poseDistance(s.Distance, s.TwistAxis, rest, s.Poses[i].Input)
		}
		if mean := sum / float32(len(s.Poses)); mean > 0 {
			return mean
		}
	}
	if s.Radius > 0 {
		return s.Radius
	}
	return dna.DefaultRadius
}

// restCoordinate is the query the rig sits at with every control released:
// zeros, except the rotational methods whose rest is the identity
// orientation.
func restCoordinate(s *dna.RBFSolver) []float32 {
	rest := make([]float32, len(s.Inputs))
	switch s.Distance {
	case dna.DistanceQuaternion, dna.DistanceSwingAngle, dna.DistanceTwistAngle:
		rest[3] = 1
	}
	return rest
}

func factorizePoses(s *dna.RBFSolver, radius float32) (*luFactors, error) {
	n := len(s.Poses)
	m := make([]float32, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := poseDistance(s.Distance, s.TwistAxis, s.Poses[i].Input, s.Poses[j].Input)
			m[i*n+j] = kernelWeight(s.Kernel, d/radius)
		}
	}
	return luFactorize(m, n)
}

// Document returns the document the rig was compiled from.
func (r *Rig) Document() *dna.Document { return r.doc }

// ControlCount reports the number of raw controls.
func (r *Rig) ControlCount() int { return len(r.graph.Controls) }

// ControlIndex resolves a control name.
func (r *Rig) ControlIndex(name string) (int, bool) {
	i, ok := r.controlIndex[name]
	return i, ok
}

// ControlName returns the name of control i.
func (r *Rig) ControlName(i int) string { return r.graph.Controls[i].Name }

// JointCount reports the number of joints driven by the rig.
func (r *Rig) JointCount() int { return r.doc.JointCount() }

// JointName returns the name of joint i.
func (r *Rig) JointName(i int) string { return r.doc.Joints()[i].Name }

// ShapeCount reports the number of blend shapes.
func (r *Rig) ShapeCount() int { return len(r.doc.BlendShapes()) }

// ShapeName returns the name of blend shape i.
func (r *Rig) ShapeName(i int) string { return r.doc.BlendShapes()[i].Name }

// MapCount reports the number of animated maps.
func (r *Rig) MapCount() int { return len(r.doc.AnimatedMaps()) }

// MapName returns the name of animated map i.
func (r *Rig) MapName(i int) string { return r.doc.AnimatedMaps()[i].Name }
