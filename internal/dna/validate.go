package dna

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Validate checks the structural invariants: topologically ordered joints
// with unique names, geometry tables sized to their mesh, skin weights
// summing to one, and a closed behavior graph. Parse and Builder.Build run
// this before releasing a document, so evaluation never re-checks.
func (d *Document) Validate() error {
	if err := d.validateJoints(); err != nil {
		return err
	}
	if err := d.validateMeshes(); err != nil {
		return err
	}
	if err := d.validateShapes(); err != nil {
		return err
	}
	if err := d.validateMaps(); err != nil {
		return err
	}
	return d.validateGraph()
}

func (d *Document) validateJoints() error {
	seen := make(map[string]struct{}, len(d.joints))
	for i, j := range d.joints {
		if j.Name == "" {
			return fmt.Errorf("dna: joint %d has no name", i)
		}
		if _, dup := seen[j.Name]; dup {
			return fmt.Errorf("dna: duplicate joint name %q", j.Name)
		}
		seen[j.Name] = struct{}{}
		if j.Parent < -1 || j.Parent >= i {
			return fmt.Errorf("dna: joint %q parent %d breaks topological order", j.Name, j.Parent)
		}
	}
	return nil
}

func (d *Document) validateMeshes() error {
	for lod := range d.meshes {
		m := &d.meshes[lod]
		n := len(m.Positions)
		if m.UVs != nil && len(m.UVs) != n {
			return fmt.Errorf("dna: lod %d has %d uvs for %d vertices", lod, len(m.UVs), n)
		}
		for ti, tri := range m.Triangles {
			for _, v := range tri {
				if int(v) >= n {
					return fmt.Errorf("dna: lod %d triangle %d references vertex %d of %d", lod, ti, v, n)
				}
			}
		}
		if m.Weights == nil {
			continue
		}
		if len(m.Weights) != n {
			return fmt.Errorf("dna: lod %d has weights for %d of %d vertices", lod, len(m.Weights), n)
		}
		for vi, weights := range m.Weights {
			var sum float32
			for _, w := range weights {
				if int(w.Joint) >= len(d.joints) {
					return fmt.Errorf("dna: lod %d vertex %d: %w", lod, vi,
						&DanglingReferenceError{Kind: "joint", Index: int(w.Joint), Where: "skin weight"})
				}
				sum += w.Weight
			}
			if len(weights) > 0 && math32.Abs(sum-1) > WeightTolerance {
				return fmt.Errorf("dna: lod %d vertex %d skin weights sum to %v", lod, vi, sum)
			}
		}
	}
	return nil
}

func (d *Document) validateShapes() error {
	type key struct {
		name string
		lod  uint16
	}
	seen := make(map[key]struct{}, len(d.shapes))
	for i, s := range d.shapes {
		if s.Name == "" {
			return fmt.Errorf("dna: blend shape %d has no name", i)
		}
		k := key{s.Name, s.LOD}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("dna: duplicate blend shape %q at lod %d", s.Name, s.LOD)
		}
		seen[k] = struct{}{}
		if int(s.LOD) >= len(d.meshes) {
			return fmt.Errorf("dna: blend shape %q targets missing lod %d", s.Name, s.LOD)
		}
		limit := len(d.meshes[s.LOD].Positions)
		for _, delta := range s.Deltas {
			if int(delta.Vertex) >= limit {
				return fmt.Errorf("dna: blend shape %q delta references vertex %d of %d", s.Name, delta.Vertex, limit)
			}
		}
	}
	return nil
}

func (d *Document) validateMaps() error {
	seen := make(map[string]struct{}, len(d.maps))
	for i, m := range d.maps {
		if m.Name == "" {
			return fmt.Errorf("dna: animated map %d has no name", i)
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("dna: duplicate animated map %q", m.Name)
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}

func (d *Document) validateGraph() error {
	g := &d.graph
	channels := g.ChannelCount()

	for _, e := range g.Expressions {
		if len(e.Inputs) == 0 {
			return fmt.Errorf("dna: expression %q has no inputs", e.Name)
		}
		for _, in := range e.Inputs {
			switch {
			case int(in) < len(g.Controls):
			case int(in) < channels:
				return &CyclicExpressionError{Expression: e.Name, Input: int(in)}
			default:
				return &DanglingReferenceError{Kind: "control", Index: int(in), Where: "expression " + e.Name}
			}
		}
	}

	for _, s := range g.Solvers {
		if len(s.Poses) == 0 {
			return fmt.Errorf("dna: solver %q has no target poses", s.Name)
		}
		if len(s.Inputs) == 0 {
			return fmt.Errorf("dna: solver %q has no inputs", s.Name)
		}
		if s.Radius < 0 {
			return fmt.Errorf("dna: solver %q has negative radius", s.Name)
		}
		switch s.Distance {
		case DistanceQuaternion, DistanceSwingAngle, DistanceTwistAngle:
			if len(s.Inputs) != 4 {
				return fmt.Errorf("dna: solver %q needs 4 quaternion inputs, has %d", s.Name, len(s.Inputs))
			}
		}
		for _, in := range s.Inputs {
			if int(in) >= channels {
				return &DanglingReferenceError{Kind: "channel", Index: int(in), Where: "solver " + s.Name}
			}
		}
		for _, p := range s.Poses {
			if len(p.Input) != len(s.Inputs) {
				return fmt.Errorf("dna: solver %q pose %q has %d coordinates for %d inputs", s.Name, p.Name, len(p.Input), len(s.Inputs))
			}
			for _, jd := range p.Joints {
				if int(jd.Joint) >= len(d.joints) {
					return &DanglingReferenceError{Kind: "joint", Index: int(jd.Joint), Where: "solver " + s.Name}
				}
			}
			for _, sw := range p.Shapes {
				if int(sw.Shape) >= len(d.shapes) {
					return &DanglingReferenceError{Kind: "shape", Index: int(sw.Shape), Where: "solver " + s.Name}
				}
			}
			for _, mw := range p.Maps {
				if int(mw.Map) >= len(d.maps) {
					return &DanglingReferenceError{Kind: "map", Index: int(mw.Map), Where: "solver " + s.Name}
				}
			}
		}
	}

	for i, b := range g.JointBehaviors {
		where := fmt.Sprintf("joint behavior %d", i)
		if int(b.Joint) >= len(d.joints) {
			return &DanglingReferenceError{Kind: "joint", Index: int(b.Joint), Where: where}
		}
		if int(b.Channel) >= channels {
			return &DanglingReferenceError{Kind: "channel", Index: int(b.Channel), Where: where}
		}
		if err := checkTransformKeys(where, b.Keys); err != nil {
			return err
		}
	}
	for i, b := range g.ShapeBehaviors {
		where := fmt.Sprintf("shape behavior %d", i)
		if int(b.Shape) >= len(d.shapes) {
			return &DanglingReferenceError{Kind: "shape", Index: int(b.Shape), Where: where}
		}
		if int(b.Channel) >= channels {
			return &DanglingReferenceError{Kind: "channel", Index: int(b.Channel), Where: where}
		}
		if err := checkScalarKeys(where, b.Keys); err != nil {
			return err
		}
	}
	for i, b := range g.MapBehaviors {
		where := fmt.Sprintf("map behavior %d", i)
		if int(b.Map) >= len(d.maps) {
			return &DanglingReferenceError{Kind: "map", Index: int(b.Map), Where: where}
		}
		if int(b.Channel) >= channels {
			return &DanglingReferenceError{Kind: "channel", Index: int(b.Channel), Where: where}
		}
		if err := checkScalarKeys(where, b.Keys); err != nil {
			return err
		}
	}
	return nil
}

func checkScalarKeys(where string, keys []ScalarKey) error {
	if len(keys) == 0 {
		return fmt.Errorf("dna: %s has no keys", where)
	}
	for i := 1; i < len(keys); i++ {
		if keys[i].In <= keys[i-1].In {
			return fmt.Errorf("dna: %s keys not strictly ascending at %d", where, i)
		}
	}
	return nil
}

func checkTransformKeys(where string, keys []TransformKey) error {
	if len(keys) == 0 {
		return fmt.Errorf("dna: %s has no keys", where)
	}
	for i := 1; i < len(keys); i++ {
		if keys[i].In <= keys[i-1].In {
			return fmt.Errorf("dna: %s keys not strictly ascending at %d", where, i)
		}
	}
	return nil
}
