package snapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"cogentcore.org/core/math32"
)

// Snapshot is one immutable edited-geometry capture.
type Snapshot struct {
	Name   string
	LODs   []LOD
	Joints []JointRest
}

// LOD carries the edited geometry for one level of detail. Positions are
// required; everything else is present only when the edit changed it.
type LOD struct {
	Positions []math32.Vector3
	UVs       []math32.Vector2
	Triangles [][3]uint32
	Shapes    []ShapeEdit
	Weights   []VertexWeights // indexed by vertex
}

// ShapeEdit is an edited sparse morph target, matched to the document's
// blend shapes by name.
type ShapeEdit struct {
	Name   string
	Deltas []VertexDelta
}

// VertexDelta displaces one vertex from the bind pose.
type VertexDelta struct {
	Vertex uint32
	Delta  math32.Vector3
}

// VertexWeights binds one vertex to named joints. Names are resolved
// against the target document's joint table when the snapshot is applied.
type VertexWeights map[string]float32

// JointRest is an edited joint rest transform: translation in
// centimeters, rotation in Euler degrees. A capture that omits the scale
// is read as unit scale.
type JointRest struct {
	Name        string
	Translation math32.Vector3
	Rotation    math32.Vector3
	Scale       math32.Vector3
}

// JointRest returns the edited rest transform for a joint name.
func (s *Snapshot) JointRest(name string) (JointRest, bool) {
	for _, j := range s.Joints {
		if j.Name == name {
			return j, true
		}
	}
	return JointRest{}, false
}

// Load reads and parses a snapshot file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON snapshot and checks its internal consistency.
// Whether the snapshot fits a particular document is the calibrator's
// question, not answered here.
func Parse(data []byte) (*Snapshot, error) {
	var js jsonSnapshot
	if err := json.Unmarshal(data, &js); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	s := fromJSON(&js)
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return s, nil
}

// Encode renders a snapshot as indented JSON.
func Encode(s *Snapshot) ([]byte, error) {
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return json.MarshalIndent(toJSON(s), "", "  ")
}

func (s *Snapshot) validate() error {
	if len(s.LODs) == 0 {
		return fmt.Errorf("snapshot has no geometry")
	}
	for li, lod := range s.LODs {
		nv := len(lod.Positions)
		if nv == 0 {
			return fmt.Errorf("lod %d has no positions", li)
		}
		if lod.UVs != nil && len(lod.UVs) != nv {
			return fmt.Errorf("lod %d has %d uvs for %d vertices", li, len(lod.UVs), nv)
		}
		if lod.Weights != nil && len(lod.Weights) != nv {
			return fmt.Errorf("lod %d has %d weight entries for %d vertices", li, len(lod.Weights), nv)
		}
		for ti, tri := range lod.Triangles {
			for _, vi := range tri {
				if int(vi) >= nv {
					return fmt.Errorf("lod %d triangle %d references vertex %d of %d", li, ti, vi, nv)
				}
			}
		}
		for _, shape := range lod.Shapes {
			if shape.Name == "" {
				return fmt.Errorf("lod %d has an unnamed shape edit", li)
			}
			for _, d := range shape.Deltas {
				if int(d.Vertex) >= nv {
					return fmt.Errorf("lod %d shape %q references vertex %d of %d", li, shape.Name, d.Vertex, nv)
				}
			}
		}
	}
	for _, j := range s.Joints {
		if j.Name == "" {
			return fmt.Errorf("snapshot has an unnamed joint transform")
		}
	}
	return nil
}

type jsonSnapshot struct {
	Name   string      `json:"name"`
	LODs   []jsonLOD   `json:"lods"`
	Joints []jsonJoint `json:"joints,omitempty"`
}

type jsonLOD struct {
	Positions [][3]float32         `json:"positions"`
	UVs       [][2]float32         `json:"uvs,omitempty"`
	Triangles [][3]uint32          `json:"triangles,omitempty"`
	Shapes    []jsonShape          `json:"shapes,omitempty"`
	Weights   []map[string]float32 `json:"skinWeights,omitempty"`
}

type jsonShape struct {
	Name   string      `json:"name"`
	Deltas []jsonDelta `json:"deltas"`
}

type jsonDelta struct {
	Vertex uint32     `json:"vertex"`
	Delta  [3]float32 `json:"delta"`
}

type jsonJoint struct {
	Name        string     `json:"name"`
	Translation [3]float32 `json:"translation"`
	Rotation    [3]float32 `json:"rotation"`
	Scale       [3]float32 `json:"scale"`
}

func fromJSON(js *jsonSnapshot) *Snapshot {
	s := &Snapshot{Name: js.Name}
	for _, jl := range js.LODs {
		lod := LOD{Triangles: jl.Triangles}
		for _, p := range jl.Positions {
			lod.Positions = append(lod.Positions, math32.Vec3(p[0], p[1], p[2]))
		}
		for _, uv := range jl.UVs {
			lod.UVs = append(lod.UVs, math32.Vec2(uv[0], uv[1]))
		}
		for _, sh := range jl.Shapes {
			edit := ShapeEdit{Name: sh.Name}
			for _, d := range sh.Deltas {
				edit.Deltas = append(edit.Deltas, VertexDelta{
					Vertex: d.Vertex,
					Delta:  math32.Vec3(d.Delta[0], d.Delta[1], d.Delta[2]),
				})
			}
			lod.Shapes = append(lod.Shapes, edit)
		}
		for _, w := range jl.Weights {
			lod.Weights = append(lod.Weights, VertexWeights(w))
		}
		s.LODs = append(s.LODs, lod)
	}
	for _, jj := range js.Joints {
		scale := math32.Vec3(jj.Scale[0], jj.Scale[1], jj.Scale[2])
		if scale == (math32.Vector3{}) {
			scale = math32.Vec3(1, 1, 1)
		}
		s.Joints = append(s.Joints, JointRest{
			Name:        jj.Name,
			Translation: math32.Vec3(jj.Translation[0], jj.Translation[1], jj.Translation[2]),
			Rotation:    math32.Vec3(jj.Rotation[0], jj.Rotation[1], jj.Rotation[2]),
			Scale:       scale,
		})
	}
	return s
}

func toJSON(s *Snapshot) *jsonSnapshot {
	js := &jsonSnapshot{Name: s.Name}
	for _, lod := range s.LODs {
		jl := jsonLOD{Triangles: lod.Triangles}
		for _, p := range lod.Positions {
			jl.Positions = append(jl.Positions, [3]float32{p.X, p.Y, p.Z})
		}
		for _, uv := range lod.UVs {
			jl.UVs = append(jl.UVs, [2]float32{uv.X, uv.Y})
		}
		for _, sh := range lod.Shapes {
			jsh := jsonShape{Name: sh.Name}
			for _, d := range sh.Deltas {
				jsh.Deltas = append(jsh.Deltas, jsonDelta{
					Vertex: d.Vertex,
					Delta:  [3]float32{d.Delta.X, d.Delta.Y, d.Delta.Z},
				})
			}
			jl.Shapes = append(jl.Shapes, jsh)
		}
		for _, w := range lod.Weights {
			jl.Weights = append(jl.Weights, map[string]float32(w))
		}
		js.LODs = append(js.LODs, jl)
	}
	for _, j := range s.Joints {
		js.Joints = append(js.Joints, jsonJoint{
			Name:        j.Name,
			Translation: [3]float32{j.Translation.X, j.Translation.Y, j.Translation.Z},
			Rotation:    [3]float32{j.Rotation.X, j.Rotation.Y, j.Rotation.Z},
			Scale:       [3]float32{j.Scale.X, j.Scale.Y, j.Scale.Z},
		})
	}
	return js
}
