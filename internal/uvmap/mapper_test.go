package uvmap

import (
	"context"
	"testing"

	"cogentcore.org/core/base/tolassert"
	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"

	"rigdna/internal/dna"
)

// unitSquareMesh is a unit UV quad split along the (1,0)-(0,1) diagonal.
func unitSquareMesh() *dna.Mesh {
	return &dna.Mesh{
		Name: "square_lod0",
		Positions: []math32.Vector3{
			{}, {X: 1}, {X: 1, Y: 1}, {Y: 1},
		},
		UVs: []math32.Vector2{
			{}, {X: 1}, {X: 1, Y: 1}, {Y: 1},
		},
		Triangles: [][3]uint32{{0, 1, 3}, {1, 2, 3}},
	}
}

func newTestMapper(t *testing.T, mesh *dna.Mesh) *Mapper {
	t.Helper()
	m, err := New(mesh, 0)
	if err != nil {
		t.Fatalf("index mesh: %v", err)
	}
	return m
}

func TestNewRequiresChart(t *testing.T) {
	var merr *MappingError

	bare := &dna.Mesh{
		Name:      "bare_lod0",
		Positions: []math32.Vector3{{}, {X: 1}, {Y: 1}},
		Triangles: [][3]uint32{{0, 1, 2}},
	}
	_, err := New(bare, 0)
	assert.ErrorAs(t, err, &merr)
	assert.Equal(t, "bare_lod0", merr.Mesh)

	cloud := &dna.Mesh{
		Name:      "cloud_lod0",
		Positions: []math32.Vector3{{}, {X: 1}, {Y: 1}},
		UVs:       []math32.Vector2{{}, {X: 1}, {Y: 1}},
	}
	_, err = New(cloud, 0)
	assert.ErrorAs(t, err, &merr)
}

func TestLookupSharedEdge(t *testing.T) {
	m := newTestMapper(t, unitSquareMesh())

	// The point sits exactly on the diagonal both triangles share.
	mp := m.Lookup(math32.Vec2(0.5, 0.5))
	assert.Equal(t, 0, mp.Triangle)
	assert.Equal(t, float32(0), mp.Distance)
	assert.False(t, mp.LowConfidence)
	tolassert.EqualTolSlice(t,
		[]float32{0, 0.5, 0.5},
		[]float32{mp.Weights.X, mp.Weights.Y, mp.Weights.Z}, 1e-6)
}

func TestLookupInside(t *testing.T) {
	mesh := unitSquareMesh()
	m := newTestMapper(t, mesh)

	mp := m.Lookup(math32.Vec2(0.25, 0.25))
	assert.Equal(t, 0, mp.Triangle)
	assert.Equal(t, float32(0), mp.Distance)

	// Blending positions through the weights reconstructs the query,
	// since the chart and the geometry coincide on this mesh.
	pos := m.BlendVector3(mesh.Positions, mp)
	tolassert.EqualTol(t, 0.25, pos.X, 1e-6)
	tolassert.EqualTol(t, 0.25, pos.Y, 1e-6)

	corner := m.Lookup(math32.Vec2(1, 1))
	assert.Equal(t, float32(0), corner.Distance)
	tolassert.EqualTol(t, 1, m.BlendScalar([]float32{0, 0, 1, 0}, corner), 1e-6)
}

func TestLookupOutsideClamps(t *testing.T) {
	m := newTestMapper(t, unitSquareMesh())

	mp := m.Lookup(math32.Vec2(1.5, 0.5))
	assert.Equal(t, 1, mp.Triangle)
	tolassert.EqualTol(t, 0.5, mp.Distance, 1e-6)
	assert.True(t, mp.LowConfidence)
	tolassert.EqualTolSlice(t,
		[]float32{0.5, 0.5, 0},
		[]float32{mp.Weights.X, mp.Weights.Y, mp.Weights.Z}, 1e-6)

	// Weights stay a convex combination even when clamped.
	sum := mp.Weights.X + mp.Weights.Y + mp.Weights.Z
	tolassert.EqualTol(t, 1, sum, 1e-6)
}

func TestLookupToleranceBoundary(t *testing.T) {
	m := newTestMapper(t, unitSquareMesh())
	assert.Equal(t, float32(DefaultTolerance), m.Tolerance())

	near := m.Lookup(math32.Vec2(0.5, -0.0005))
	assert.False(t, near.LowConfidence)

	far := m.Lookup(math32.Vec2(0.5, -0.002))
	assert.True(t, far.LowConfidence)

	assert.Equal(t, 1, LowConfidenceCount([]Mapping{near, far}))
}

// stripMesh is a row of n quads whose chart spans [0,1] in U, enough
// triangles for the grid to spread across many cells.
func stripMesh(n int) *dna.Mesh {
	m := &dna.Mesh{Name: "strip_lod0"}
	for i := 0; i <= n; i++ {
		u := float32(i) / float32(n)
		m.Positions = append(m.Positions,
			math32.Vec3(float32(i), 0, 0),
			math32.Vec3(float32(i), 1, 0))
		m.UVs = append(m.UVs, math32.Vec2(u, 0), math32.Vec2(u, 1))
	}
	for i := 0; i < n; i++ {
		a := uint32(2 * i)
		m.Triangles = append(m.Triangles,
			[3]uint32{a, a + 2, a + 1},
			[3]uint32{a + 1, a + 2, a + 3})
	}
	return m
}

func TestLookupMatchesBruteForce(t *testing.T) {
	mesh := stripMesh(40)
	m := newTestMapper(t, mesh)

	for i := 0; i < 200; i++ {
		p := math32.Vec2(
			1.3*float32(i)/199-0.15,
			1.4*float32(i%13)/12-0.2,
		)
		got := m.Lookup(p)

		bestSq := math32.Infinity
		bestTri := -1
		for ti := range mesh.Triangles {
			d2, _ := m.project(ti, p)
			if d2 < bestSq {
				bestSq = d2
				bestTri = ti
			}
		}
		assert.Equal(t, bestTri, got.Triangle, "point %v", p)
		tolassert.EqualTol(t, math32.Sqrt(bestSq), got.Distance, 1e-6, "point %v", p)
	}
}

func TestMapAllMatchesLookup(t *testing.T) {
	m := newTestMapper(t, unitSquareMesh())

	var points []math32.Vector2
	for i := 0; i < 300; i++ {
		points = append(points, math32.Vec2(
			float32(i%17)*0.1-0.3,
			float32(i%23)*0.07-0.2,
		))
	}

	got, err := m.MapAll(context.Background(), points)
	assert.NoError(t, err)
	assert.Len(t, got, len(points))
	for i, p := range points {
		assert.Equal(t, m.Lookup(p), got[i])
	}
}

func TestMapAllCancelled(t *testing.T) {
	m := newTestMapper(t, unitSquareMesh())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.MapAll(ctx, make([]math32.Vector2, 64))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJointAnchors(t *testing.T) {
	mesh := unitSquareMesh()
	mesh.Weights = [][]dna.JointWeight{
		{{Joint: 0, Weight: 1}},
		{{Joint: 0, Weight: 0.5}, {Joint: 1, Weight: 0.5}},
		{{Joint: 1, Weight: 1}},
		{{Joint: 0, Weight: 1}},
	}

	anchors, present := JointAnchors(mesh, 3)
	assert.True(t, present[0])
	assert.True(t, present[1])
	assert.False(t, present[2])

	tolassert.EqualTol(t, 0.5/2.5, anchors[0].X, 1e-6)
	tolassert.EqualTol(t, 1/2.5, anchors[0].Y, 1e-6)
	tolassert.EqualTol(t, 1.5/1.5, anchors[1].X, 1e-6)
	tolassert.EqualTol(t, 1/1.5, anchors[1].Y, 1e-6)
}

func TestJointAnchorsWithoutChart(t *testing.T) {
	mesh := &dna.Mesh{
		Name:      "bare_lod0",
		Positions: []math32.Vector3{{}, {X: 1}},
		Weights:   [][]dna.JointWeight{{{Joint: 0, Weight: 1}}, {{Joint: 0, Weight: 1}}},
	}
	_, present := JointAnchors(mesh, 1)
	assert.False(t, present[0])
}
