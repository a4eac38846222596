package riglogic

import (
	"rigdna/internal/dna"
)

// Instance is one mutable evaluation state over a shared Rig. Every
// buffer Evaluate touches is sized at construction, so evaluation never
// allocates. An instance is not safe for concurrent use; run one per
// goroutine over the same rig instead.
type Instance struct {
	rig *Rig

	controls []float32 // raw values as set by the caller, clamped on evaluate
	channels []float32 // clamped controls followed by expression outputs

	query   []float32 // scratch: one solver's query coordinate
	kvec    []float32 // scratch: kernel falloff per pose
	weights []float32 // scratch: solved blend weight per pose

	joints []float32 // 9 values per joint, flattened
	shapes []float32
	maps   []float32
}

// NewInstance allocates evaluation state for a rig.
func NewInstance(r *Rig) *Instance {
	return &Instance{
		rig:      r,
		controls: make([]float32, len(r.graph.Controls)),
		channels: make([]float32, r.graph.ChannelCount()),
		query:    make([]float32, r.maxInputs),
		kvec:     make([]float32, r.maxPoses),
		weights:  make([]float32, r.maxPoses),
		joints:   make([]float32, r.doc.JointCount()*9),
		shapes:   make([]float32, len(r.doc.BlendShapes())),
		maps:     make([]float32, len(r.doc.AnimatedMaps())),
	}
}

// Rig returns the rig this instance evaluates.
func (inst *Instance) Rig() *Rig { return inst.rig }

// SetControl stores a raw control value. Values outside [0,1] are kept
// as stored and clamped during Evaluate.
func (inst *Instance) SetControl(i int, v float32) { inst.controls[i] = v }

// SetControlByName stores a raw control value by name and reports
// whether the rig has such a control.
func (inst *Instance) SetControlByName(name string, v float32) bool {
	i, ok := inst.rig.controlIndex[name]
	if !ok {
		return false
	}
	inst.controls[i] = v
	return true
}

// Controls returns the live raw control buffer. Mutating it is
// equivalent to calling SetControl per index.
func (inst *Instance) Controls() []float32 { return inst.controls }

// Reset zeroes all raw controls.
func (inst *Instance) Reset() { clear(inst.controls) }

// Evaluate runs the full pipeline for the current control values:
// clamp controls, derive expression channels, blend solver poses, apply
// direct behaviors, then clamp shape and map outputs. Joint deltas are
// left unclamped. The pipeline visits solvers and behaviors in document
// order with no data-dependent reordering, so identical inputs produce
// bit-identical outputs.
func (inst *Instance) Evaluate() {
	g := inst.rig.graph
	nc := len(g.Controls)

	for i, v := range inst.controls {
		inst.channels[i] = clamp01(v)
	}
	for i := range g.Expressions {
		e := &g.Expressions[i]
		p := float32(1)
		for _, c := range e.Inputs {
			p *= inst.channels[c]
		}
		inst.channels[nc+i] = p
	}

	clear(inst.joints)
	clear(inst.shapes)
	clear(inst.maps)

	for i := range inst.rig.solvers {
		inst.applySolver(&inst.rig.solvers[i])
	}

	for i := range g.JointBehaviors {
		b := &g.JointBehaviors[i]
		addTransformKeys(inst.joints[int(b.Joint)*9:], b.Keys, inst.channels[b.Channel])
	}
	for i := range g.ShapeBehaviors {
		b := &g.ShapeBehaviors[i]
		inst.shapes[b.Shape] += evalScalarKeys(b.Keys, inst.channels[b.Channel])
	}
	for i := range g.MapBehaviors {
		b := &g.MapBehaviors[i]
		inst.maps[b.Map] += evalScalarKeys(b.Keys, inst.channels[b.Channel])
	}

	for i, v := range inst.shapes {
		inst.shapes[i] = clamp01(v)
	}
	for i, v := range inst.maps {
		inst.maps[i] = clamp01(v)
	}
}

// applySolver blends one solver's poses into the output buffers. A query
// landing exactly on an interpolative pose bypasses the linear system so
// the stored sample is reproduced bit for bit.
func (inst *Instance) applySolver(cs *compiledSolver) {
	s := cs.solver
	q := inst.query[:len(s.Inputs)]
	for i, ch := range s.Inputs {
		q[i] = inst.channels[ch]
	}

	n := len(s.Poses)
	w := inst.weights[:n]

	switch s.Mode {
	case dna.ModeInterpolative:
		kv := inst.kvec[:n]
		exact := -1
		for i := range s.Poses {
			d := poseDistance(s.Distance, s.TwistAxis, q, s.Poses[i].Input)
			if d == 0 {
				exact = i
				break
			}
			kv[i] = kernelWeight(s.Kernel, d/cs.radius)
		}
		if exact >= 0 {
			clear(w)
			w[exact] = 1
		} else {
			cs.lu.solve(kv, w)
		}
	default:
		for i := range s.Poses {
			d := poseDistance(s.Distance, s.TwistAxis, q, s.Poses[i].Input)
			w[i] = kernelWeight(s.Kernel, d/cs.radius)
		}
	}

	normalizeWeights(s.Normalize, w)

	for i := range s.Poses {
		wi := w[i]
		if wi == 0 {
			continue
		}
		p := &s.Poses[i]
		for _, jd := range p.Joints {
			base := int(jd.Joint) * 9
			for k := 0; k < 9; k++ {
				inst.joints[base+k] += wi * jd.Delta[k]
			}
		}
		for _, sw := range p.Shapes {
			inst.shapes[sw.Shape] += wi * sw.Weight
		}
		for _, mw := range p.Maps {
			inst.maps[mw.Map] += wi * mw.Weight
		}
	}
}

func normalizeWeights(m dna.RBFNormalizeMethod, w []float32) {
	var sum float32
	for _, v := range w {
		sum += v
	}
	switch {
	case m == dna.NormalizeAlways && sum > 1e-10:
	case m == dna.NormalizeAboveOne && sum > 1:
	default:
		return
	}
	inv := 1 / sum
	for i := range w {
		w[i] *= inv
	}
}

// JointDeltas returns the live flattened joint output buffer, nine
// values per joint in tx ty tz rx ry rz sx sy sz order. Valid until the
// next Evaluate.
func (inst *Instance) JointDeltas() []float32 { return inst.joints }

// JointDelta returns a copy of joint j's transform delta.
func (inst *Instance) JointDelta(j int) dna.JointOutput {
	var out dna.JointOutput
	copy(out[:], inst.joints[j*9:j*9+9])
	return out
}

// ShapeWeights returns the live blend shape weight buffer, indexed like
// the document's shape table. Valid until the next Evaluate.
func (inst *Instance) ShapeWeights() []float32 { return inst.shapes }

// MapWeights returns the live animated map weight buffer, indexed like
// the document's map table. Valid until the next Evaluate.
func (inst *Instance) MapWeights() []float32 { return inst.maps }
