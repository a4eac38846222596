package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cogentcore.org/core/math32"

	"rigdna/internal/dna"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// NewDocument builds a small but complete rig: two joints, one LOD whose
// quad carries a two-triangle UV chart and fully weighted skin, a jaw
// blend shape, and a behavior graph driving both outputs from a single
// control.
func NewDocument(t testing.TB, name string) *dna.Document {
	t.Helper()

	b := dna.NewBuilder(name)
	b.SetJoints([]dna.Joint{
		{Name: "neck_01", Parent: -1, Translation: math32.Vec3(0, 0, 148), Scale: math32.Vec3(1, 1, 1)},
		{Name: "jaw", Parent: 0, Translation: math32.Vec3(0, 2, 10), Rotation: math32.Vec3(0, 0, -3), Scale: math32.Vec3(1, 1, 1)},
	})
	b.SetMeshes([]dna.Mesh{{
		Name: "face_lod0",
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
		Weights: [][]dna.JointWeight{
			{{Joint: 0, Weight: 1}},
			{{Joint: 0, Weight: 0.6}, {Joint: 1, Weight: 0.4}},
			{{Joint: 1, Weight: 1}},
			{{Joint: 0, Weight: 0.5}, {Joint: 1, Weight: 0.5}},
		},
	}})
	b.SetBlendShapes([]dna.BlendShape{{
		Name: "jawOpen",
		LOD:  0,
		Deltas: []dna.ShapeDelta{
			{Vertex: 1, Delta: math32.Vec3(0, -0.3, 0)},
			{Vertex: 2, Delta: math32.Vec3(0, -0.7, 0.1)},
		},
	}})
	b.SetAnimatedMaps([]dna.AnimatedMap{{Name: "face_wrinkle"}})
	b.SetGraph(dna.BehaviorGraph{
		Controls: []dna.Control{{Name: "CTRL_expressions.jawOpen"}},
		JointBehaviors: []dna.JointBehavior{{
			Joint:   1,
			Channel: 0,
			Keys: []dna.TransformKey{
				{In: 0, Out: dna.JointOutput{}},
				{In: 1, Out: dna.JointOutput{0, 0.2, 0, 24, 0, 0, 0, 0, 0}},
			},
		}},
		ShapeBehaviors: []dna.ShapeBehavior{{
			Shape:   0,
			Channel: 0,
			Keys:    []dna.ScalarKey{{In: 0, Out: 0}, {In: 1, Out: 1}},
		}},
		MapBehaviors: []dna.MapBehavior{{
			Map:     0,
			Channel: 0,
			Keys:    []dna.ScalarKey{{In: 0, Out: 0}, {In: 1, Out: 0.6}},
		}},
	})
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build fixture document: %v", err)
	}
	return doc
}

// WriteDocument encodes a fresh fixture rig to path, creating parent
// directories as needed, and returns the document. The codec follows the
// path extension the way dna.Save does.
func WriteDocument(t testing.TB, path, name string) *dna.Document {
	t.Helper()

	doc := NewDocument(t, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := dna.Save(path, doc); err != nil {
		t.Fatalf("write document %s: %v", path, err)
	}
	return doc
}
