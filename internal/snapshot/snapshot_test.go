package snapshot

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"cogentcore.org/core/math32"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		Name: "head_edit",
		LODs: []LOD{{
			Positions: []math32.Vector3{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}},
			UVs:       []math32.Vector2{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}},
			Triangles: [][3]uint32{{0, 1, 2}, {1, 3, 2}},
			Shapes: []ShapeEdit{{
				Name:   "jawOpen",
				Deltas: []VertexDelta{{Vertex: 2, Delta: math32.Vec3(0, -0.4, 0)}},
			}},
			Weights: []VertexWeights{
				{"spine_04": 1},
				{"spine_04": 0.25, "jaw": 0.75},
				{"jaw": 1},
				{"jaw": 1},
			},
		}},
		Joints: []JointRest{{
			Name:        "jaw",
			Translation: math32.Vec3(0, 2.5, 12),
			Rotation:    math32.Vec3(0, 0, -4),
			Scale:       math32.Vec3(1, 1, 1),
		}},
	}
}

func TestRoundTrip(t *testing.T) {
	want := testSnapshot()
	data, err := Encode(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestParseFields(t *testing.T) {
	const doc = `{
	  "name": "brow_edit",
	  "lods": [{
	    "positions": [[0,0,0],[1,0,0],[0,1,0]],
	    "skinWeights": [{"brow": 1}, {"brow": 1}, {"brow": 1}]
	  }],
	  "joints": [{"name": "brow", "translation": [0,0,9], "rotation": [0,0,0]}]
	}`

	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Name != "brow_edit" {
		t.Errorf("name = %q", s.Name)
	}
	if len(s.LODs) != 1 {
		t.Fatalf("lod count = %d, want 1", len(s.LODs))
	}
	if got := s.LODs[0].Positions[1]; got != math32.Vec3(1, 0, 0) {
		t.Errorf("position = %v", got)
	}
	if s.LODs[0].UVs != nil {
		t.Errorf("expected no uvs, got %v", s.LODs[0].UVs)
	}
	if w := s.LODs[0].Weights[1]["brow"]; w != 1 {
		t.Errorf("weight = %v, want 1", w)
	}

	rest, ok := s.JointRest("brow")
	if !ok || rest.Translation.Z != 9 {
		t.Errorf("joint rest = %+v, ok = %v", rest, ok)
	}
	if rest.Scale != math32.Vec3(1, 1, 1) {
		t.Errorf("omitted scale = %v, want unit", rest.Scale)
	}
	if _, ok := s.JointRest("jaw"); ok {
		t.Error("unexpected joint rest for jaw")
	}
}

func TestValidateRejectsInconsistentInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
		want   string
	}{
		{"no lods", func(s *Snapshot) { s.LODs = nil }, "no geometry"},
		{"no positions", func(s *Snapshot) { s.LODs[0].Positions = nil }, "no positions"},
		{"uv count", func(s *Snapshot) { s.LODs[0].UVs = s.LODs[0].UVs[:2] }, "uvs"},
		{"weight count", func(s *Snapshot) { s.LODs[0].Weights = s.LODs[0].Weights[:1] }, "weight entries"},
		{"triangle range", func(s *Snapshot) { s.LODs[0].Triangles[0][1] = 99 }, "references vertex"},
		{"shape vertex", func(s *Snapshot) { s.LODs[0].Shapes[0].Deltas[0].Vertex = 44 }, "references vertex"},
		{"unnamed shape", func(s *Snapshot) { s.LODs[0].Shapes[0].Name = "" }, "unnamed shape"},
		{"unnamed joint", func(s *Snapshot) { s.Joints[0].Name = "" }, "unnamed joint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSnapshot()
			tt.mutate(s)
			_, err := Encode(s)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte("{")); err == nil {
		t.Fatal("expected error for malformed input")
	}
}

func TestLoad(t *testing.T) {
	data, err := Encode(testSnapshot())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "edit.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Name != "head_edit" {
		t.Errorf("name = %q", s.Name)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
