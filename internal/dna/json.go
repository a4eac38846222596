package dna

import (
	"encoding/json"
	"fmt"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"
)

// The JSON form carries the same model as the binary container, shaped for
// human inspection: vectors as coordinate arrays, enums as names. Values
// survive the float32 round trip exactly, so converting binary to JSON and
// back reproduces the document field for field.

type jsonDocument struct {
	Version       uint16          `json:"version"`
	Name          string          `json:"name"`
	ID            string          `json:"id"`
	Joints        []jsonJoint     `json:"joints"`
	Meshes        []jsonMesh      `json:"meshes"`
	BlendShapes   []jsonShape     `json:"blendShapes"`
	AnimatedMaps  []string        `json:"animatedMaps"`
	Graph         jsonGraph       `json:"behaviorGraph"`
	LowConfidence []jsonFlaggedAt `json:"lowConfidence,omitempty"`
}

type jsonJoint struct {
	Name        string     `json:"name"`
	Parent      int        `json:"parent"`
	Translation [3]float32 `json:"translation"`
	Rotation    [3]float32 `json:"rotation"`
	Scale       [3]float32 `json:"scale"`
}

type jsonMesh struct {
	Name      string          `json:"name"`
	Positions [][3]float32    `json:"positions"`
	UVs       [][2]float32    `json:"uvs"`
	Triangles [][3]uint32     `json:"triangles,omitempty"`
	Weights   [][]jsonInfluence `json:"skinWeights"`
}

type jsonInfluence struct {
	Joint  uint16  `json:"joint"`
	Weight float32 `json:"weight"`
}

type jsonShape struct {
	Name   string      `json:"name"`
	LOD    uint16      `json:"lod"`
	Deltas []jsonDelta `json:"deltas"`
}

type jsonDelta struct {
	Vertex uint32     `json:"vertex"`
	Delta  [3]float32 `json:"delta"`
}

type jsonFlaggedAt struct {
	LOD    uint16 `json:"lod"`
	Vertex uint32 `json:"vertex"`
}

type jsonGraph struct {
	Controls       []string           `json:"controls"`
	Expressions    []jsonExpression   `json:"psdExpressions,omitempty"`
	Solvers        []jsonSolver       `json:"rbfSolvers,omitempty"`
	JointBehaviors []jsonJointBehavior `json:"jointBehaviors,omitempty"`
	ShapeBehaviors []jsonScalarBehavior `json:"blendShapeBehaviors,omitempty"`
	MapBehaviors   []jsonScalarBehavior `json:"animatedMapBehaviors,omitempty"`
}

type jsonExpression struct {
	Name   string   `json:"name"`
	Inputs []uint16 `json:"inputs"`
}

type jsonSolver struct {
	Name            string             `json:"name"`
	Mode            RBFMode            `json:"mode"`
	Distance        RBFDistanceMethod  `json:"distanceMethod"`
	Kernel          RBFKernel          `json:"kernel"`
	Normalize       RBFNormalizeMethod `json:"normalizeMethod"`
	TwistAxis       TwistAxis          `json:"twistAxis"`
	Radius          float32            `json:"radius"`
	AutomaticRadius bool               `json:"automaticRadius,omitempty"`
	Inputs          []uint16           `json:"inputs"`
	Poses           []jsonPose         `json:"poses"`
}

type jsonPose struct {
	Name   string            `json:"name"`
	Input  []float32         `json:"input"`
	Joints []jsonPoseJoint   `json:"joints,omitempty"`
	Shapes []jsonPoseScalar  `json:"blendShapes,omitempty"`
	Maps   []jsonPoseScalar  `json:"animatedMaps,omitempty"`
}

type jsonPoseJoint struct {
	Joint uint16     `json:"joint"`
	Delta [9]float32 `json:"delta"`
}

type jsonPoseScalar struct {
	Target uint16  `json:"target"`
	Weight float32 `json:"weight"`
}

type jsonJointBehavior struct {
	Joint   uint16             `json:"joint"`
	Channel uint16             `json:"channel"`
	Keys    []jsonTransformKey `json:"keys"`
}

type jsonTransformKey struct {
	In  float32    `json:"in"`
	Out [9]float32 `json:"out"`
}

type jsonScalarBehavior struct {
	Target  uint16          `json:"target"`
	Channel uint16          `json:"channel"`
	Keys    []jsonScalarKey `json:"keys"`
}

type jsonScalarKey struct {
	In  float32 `json:"in"`
	Out float32 `json:"out"`
}

// EncodeJSON serializes the document to its JSON form, indented for
// reading.
func EncodeJSON(d *Document) ([]byte, error) {
	out := jsonDocument{
		Version:      d.version,
		Name:         d.meta.Name,
		ID:           d.meta.ID,
		Joints:       make([]jsonJoint, len(d.joints)),
		Meshes:       make([]jsonMesh, len(d.meshes)),
		BlendShapes:  make([]jsonShape, len(d.shapes)),
		AnimatedMaps: make([]string, len(d.maps)),
	}
	for i, j := range d.joints {
		out.Joints[i] = jsonJoint{
			Name:        j.Name,
			Parent:      j.Parent,
			Translation: vecArray(j.Translation),
			Rotation:    vecArray(j.Rotation),
			Scale:       vecArray(j.Scale),
		}
	}
	for i := range d.meshes {
		m := &d.meshes[i]
		jm := jsonMesh{Name: m.Name, Positions: make([][3]float32, len(m.Positions))}
		for v, pos := range m.Positions {
			jm.Positions[v] = vecArray(pos)
		}
		if m.UVs != nil {
			jm.UVs = make([][2]float32, len(m.UVs))
			for v, uv := range m.UVs {
				jm.UVs[v] = [2]float32{uv.X, uv.Y}
			}
		}
		jm.Triangles = m.Triangles
		if m.Weights != nil {
			jm.Weights = make([][]jsonInfluence, len(m.Weights))
			for v, weights := range m.Weights {
				entry := make([]jsonInfluence, len(weights))
				for k, w := range weights {
					entry[k] = jsonInfluence{Joint: w.Joint, Weight: w.Weight}
				}
				jm.Weights[v] = entry
			}
		}
		out.Meshes[i] = jm
	}
	for i, s := range d.shapes {
		js := jsonShape{Name: s.Name, LOD: s.LOD, Deltas: make([]jsonDelta, len(s.Deltas))}
		for k, delta := range s.Deltas {
			js.Deltas[k] = jsonDelta{Vertex: delta.Vertex, Delta: vecArray(delta.Delta)}
		}
		out.BlendShapes[i] = js
	}
	for i, m := range d.maps {
		out.AnimatedMaps[i] = m.Name
	}
	out.Graph = graphToJSON(&d.graph)
	for _, v := range d.meta.LowConfidence {
		out.LowConfidence = append(out.LowConfidence, jsonFlaggedAt{LOD: v.LOD, Vertex: v.Vertex})
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecodeJSON parses the JSON form and validates the result exactly as
// Decode does for the binary container. Documents missing an ID are
// assigned a fresh one.
func DecodeJSON(data []byte) (*Document, error) {
	var in jsonDocument
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("dna: parse json: %w", err)
	}
	if in.Version != 0 && in.Version != FormatVersion {
		return nil, &UnsupportedVersionError{Version: in.Version}
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	joints := sliceOrNil[Joint](len(in.Joints))
	for i, j := range in.Joints {
		joints[i] = Joint{
			Name:        j.Name,
			Parent:      j.Parent,
			Translation: arrayVec(j.Translation),
			Rotation:    arrayVec(j.Rotation),
			Scale:       arrayVec(j.Scale),
		}
	}
	meshes := sliceOrNil[Mesh](len(in.Meshes))
	for i, jm := range in.Meshes {
		m := Mesh{Name: jm.Name, Positions: sliceOrNil[math32.Vector3](len(jm.Positions))}
		for v, pos := range jm.Positions {
			m.Positions[v] = arrayVec(pos)
		}
		if jm.UVs != nil {
			m.UVs = make([]math32.Vector2, len(jm.UVs))
			for v, uv := range jm.UVs {
				m.UVs[v] = math32.Vec2(uv[0], uv[1])
			}
		}
		m.Triangles = nilIfEmpty(jm.Triangles)
		if jm.Weights != nil {
			m.Weights = make([][]JointWeight, len(jm.Weights))
			for v, entry := range jm.Weights {
				weights := sliceOrNil[JointWeight](len(entry))
				for k, w := range entry {
					weights[k] = JointWeight{Joint: w.Joint, Weight: w.Weight}
				}
				m.Weights[v] = weights
			}
		}
		meshes[i] = m
	}
	shapes := sliceOrNil[BlendShape](len(in.BlendShapes))
	for i, js := range in.BlendShapes {
		s := BlendShape{Name: js.Name, LOD: js.LOD, Deltas: sliceOrNil[ShapeDelta](len(js.Deltas))}
		for k, delta := range js.Deltas {
			s.Deltas[k] = ShapeDelta{Vertex: delta.Vertex, Delta: arrayVec(delta.Delta)}
		}
		shapes[i] = s
	}
	maps := sliceOrNil[AnimatedMap](len(in.AnimatedMaps))
	for i, name := range in.AnimatedMaps {
		maps[i] = AnimatedMap{Name: name}
	}
	var lowConfidence []LowConfidenceVertex
	for _, v := range in.LowConfidence {
		lowConfidence = append(lowConfidence, LowConfidenceVertex{LOD: v.LOD, Vertex: v.Vertex})
	}

	b := &Builder{doc: Document{
		version: FormatVersion,
		meta:    Metadata{Name: in.Name, ID: in.ID, LowConfidence: lowConfidence},
		joints:  joints,
		meshes:  meshes,
		shapes:  shapes,
		maps:    maps,
		graph:   graphFromJSON(in.Graph),
	}}
	return b.Build()
}

func graphToJSON(g *BehaviorGraph) jsonGraph {
	out := jsonGraph{Controls: make([]string, len(g.Controls))}
	for i, c := range g.Controls {
		out.Controls[i] = c.Name
	}
	for _, e := range g.Expressions {
		out.Expressions = append(out.Expressions, jsonExpression{Name: e.Name, Inputs: e.Inputs})
	}
	for _, s := range g.Solvers {
		js := jsonSolver{
			Name:            s.Name,
			Mode:            s.Mode,
			Distance:        s.Distance,
			Kernel:          s.Kernel,
			Normalize:       s.Normalize,
			TwistAxis:       s.TwistAxis,
			Radius:          s.Radius,
			AutomaticRadius: s.AutomaticRadius,
			Inputs:          s.Inputs,
		}
		for _, p := range s.Poses {
			jp := jsonPose{Name: p.Name, Input: p.Input}
			for _, jd := range p.Joints {
				jp.Joints = append(jp.Joints, jsonPoseJoint{Joint: jd.Joint, Delta: jd.Delta})
			}
			for _, sw := range p.Shapes {
				jp.Shapes = append(jp.Shapes, jsonPoseScalar{Target: sw.Shape, Weight: sw.Weight})
			}
			for _, mw := range p.Maps {
				jp.Maps = append(jp.Maps, jsonPoseScalar{Target: mw.Map, Weight: mw.Weight})
			}
			js.Poses = append(js.Poses, jp)
		}
		out.Solvers = append(out.Solvers, js)
	}
	for _, b := range g.JointBehaviors {
		jb := jsonJointBehavior{Joint: b.Joint, Channel: b.Channel}
		for _, k := range b.Keys {
			jb.Keys = append(jb.Keys, jsonTransformKey{In: k.In, Out: k.Out})
		}
		out.JointBehaviors = append(out.JointBehaviors, jb)
	}
	for _, b := range g.ShapeBehaviors {
		out.ShapeBehaviors = append(out.ShapeBehaviors, scalarBehaviorToJSON(b.Shape, b.Channel, b.Keys))
	}
	for _, b := range g.MapBehaviors {
		out.MapBehaviors = append(out.MapBehaviors, scalarBehaviorToJSON(b.Map, b.Channel, b.Keys))
	}
	return out
}

func scalarBehaviorToJSON(target, channel uint16, keys []ScalarKey) jsonScalarBehavior {
	out := jsonScalarBehavior{Target: target, Channel: channel}
	for _, k := range keys {
		out.Keys = append(out.Keys, jsonScalarKey{In: k.In, Out: k.Out})
	}
	return out
}

func graphFromJSON(in jsonGraph) BehaviorGraph {
	g := BehaviorGraph{Controls: sliceOrNil[Control](len(in.Controls))}
	for i, name := range in.Controls {
		g.Controls[i] = Control{Name: name}
	}
	for _, e := range in.Expressions {
		g.Expressions = append(g.Expressions, PSDExpression{Name: e.Name, Inputs: nilIfEmpty(e.Inputs)})
	}
	for _, js := range in.Solvers {
		s := RBFSolver{
			Name:            js.Name,
			Mode:            js.Mode,
			Distance:        js.Distance,
			Kernel:          js.Kernel,
			Normalize:       js.Normalize,
			TwistAxis:       js.TwistAxis,
			Radius:          js.Radius,
			AutomaticRadius: js.AutomaticRadius,
			Inputs:          nilIfEmpty(js.Inputs),
		}
		for _, jp := range js.Poses {
			p := RBFPose{Name: jp.Name, Input: nilIfEmpty(jp.Input)}
			for _, jd := range jp.Joints {
				p.Joints = append(p.Joints, PoseJointDelta{Joint: jd.Joint, Delta: jd.Delta})
			}
			for _, sw := range jp.Shapes {
				p.Shapes = append(p.Shapes, PoseShapeWeight{Shape: sw.Target, Weight: sw.Weight})
			}
			for _, mw := range jp.Maps {
				p.Maps = append(p.Maps, PoseMapWeight{Map: mw.Target, Weight: mw.Weight})
			}
			s.Poses = append(s.Poses, p)
		}
		g.Solvers = append(g.Solvers, s)
	}
	for _, jb := range in.JointBehaviors {
		b := JointBehavior{Joint: jb.Joint, Channel: jb.Channel}
		for _, k := range jb.Keys {
			b.Keys = append(b.Keys, TransformKey{In: k.In, Out: k.Out})
		}
		g.JointBehaviors = append(g.JointBehaviors, b)
	}
	for _, jb := range in.ShapeBehaviors {
		g.ShapeBehaviors = append(g.ShapeBehaviors, ShapeBehavior{Shape: jb.Target, Channel: jb.Channel, Keys: scalarKeysFromJSON(jb.Keys)})
	}
	for _, jb := range in.MapBehaviors {
		g.MapBehaviors = append(g.MapBehaviors, MapBehavior{Map: jb.Target, Channel: jb.Channel, Keys: scalarKeysFromJSON(jb.Keys)})
	}
	return g
}

func scalarKeysFromJSON(in []jsonScalarKey) []ScalarKey {
	out := sliceOrNil[ScalarKey](len(in))
	for i, k := range in {
		out[i] = ScalarKey{In: k.In, Out: k.Out}
	}
	return out
}


func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

// sliceOrNil sizes a destination table, keeping zero-length tables nil to
// match the binary decoder's canonical form.
func sliceOrNil[T any](n int) []T {
	if n == 0 {
		return nil
	}
	return make([]T, n)
}

func vecArray(v math32.Vector3) [3]float32 { return [3]float32{v.X, v.Y, v.Z} }

func arrayVec(a [3]float32) math32.Vector3 { return math32.Vec3(a[0], a[1], a[2]) }
