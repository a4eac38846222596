package uvmap

import (
	"context"
	"runtime"

	"cogentcore.org/core/math32"
	"golang.org/x/sync/errgroup"

	"rigdna/internal/dna"
)

// DefaultTolerance is the UV-space distance beyond which a mapping is
// flagged low confidence.
const DefaultTolerance = 1e-3

// Mapping locates one query point on the reference chart: the nearest
// triangle, the barycentric weights of its corners (clamped onto the
// triangle when the query falls outside), and how far the chart was
// missed.
type Mapping struct {
	Triangle      int
	Weights       math32.Vector3
	Distance      float32
	LowConfidence bool
}

// Mapper answers nearest-point queries against one reference mesh's UV
// chart. Immutable after New; safe for concurrent lookups.
type Mapper struct {
	mesh      *dna.Mesh
	grid      *triangleGrid
	tolerance float32
}

// New indexes a reference mesh for correspondence lookups. A
// non-positive tolerance selects DefaultTolerance. A mesh without
// texture coordinates or triangulation cannot be mapped against and
// fails with a MappingError.
func New(mesh *dna.Mesh, tolerance float32) (*Mapper, error) {
	if len(mesh.UVs) == 0 {
		return nil, &MappingError{Mesh: mesh.Name, Reason: "no texture coordinates"}
	}
	if len(mesh.Triangles) == 0 {
		return nil, &MappingError{Mesh: mesh.Name, Reason: "no triangulation"}
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Mapper{
		mesh:      mesh,
		grid:      newTriangleGrid(mesh.UVs, mesh.Triangles),
		tolerance: tolerance,
	}, nil
}

// Mesh returns the reference mesh the mapper indexes.
func (m *Mapper) Mesh() *dna.Mesh { return m.mesh }

// Tolerance reports the low-confidence distance threshold in UV units.
func (m *Mapper) Tolerance() float32 { return m.tolerance }

// Lookup resolves the chart location nearest to p. Ties between equally
// near triangles go to the lower triangle index.
func (m *Mapper) Lookup(p math32.Vector2) Mapping {
	best := Mapping{Triangle: -1}
	bestSq := math32.Infinity

	cx, cy := m.grid.cellOf(p)
	maxRing := max(m.grid.nx, m.grid.ny)
	for r := 0; r <= maxRing; r++ {
		if best.Triangle >= 0 {
			// No triangle in ring r can be nearer than r-1 whole cells.
			bound := float32(r-1) * m.grid.minCell
			if bound > 0 && bound*bound > bestSq {
				break
			}
		}
		m.grid.ring(cx, cy, r, func(cell []int32) {
			for _, ti := range cell {
				d2, w := m.project(int(ti), p)
				if d2 < bestSq || (d2 == bestSq && int(ti) < best.Triangle) {
					bestSq = d2
					best.Triangle = int(ti)
					best.Weights = w
				}
			}
		})
		if bestSq == 0 {
			break
		}
	}

	best.Distance = math32.Sqrt(bestSq)
	best.LowConfidence = best.Distance > m.tolerance
	return best
}

// project measures the squared UV distance from p to triangle ti along
// with the clamped barycentric weights of the nearest point on it.
func (m *Mapper) project(ti int, p math32.Vector2) (float32, math32.Vector3) {
	tri := m.mesh.Triangles[ti]
	a := m.mesh.UVs[tri[0]]
	b := m.mesh.UVs[tri[1]]
	c := m.mesh.UVs[tri[2]]

	bary := math32.BarycoordFromPoint(
		math32.Vec3(p.X, p.Y, 0),
		math32.Vec3(a.X, a.Y, 0),
		math32.Vec3(b.X, b.Y, 0),
		math32.Vec3(c.X, c.Y, 0),
	)
	if bary.X >= 0 && bary.Y >= 0 && bary.Z >= 0 {
		return 0, bary
	}

	// Outside the triangle, or the triangle is degenerate: clamp to the
	// nearest edge.
	bestSq := math32.Infinity
	var weights math32.Vector3
	edge := func(p0, p1 math32.Vector2, corners func(t float32) math32.Vector3) {
		if p0 == p1 {
			if d2 := p.DistanceToSquared(p0); d2 < bestSq {
				bestSq = d2
				weights = corners(0)
			}
			return
		}
		l := math32.NewLine2(p0, p1)
		cp := l.ClosestPointToPoint(p)
		if d2 := p.DistanceToSquared(cp); d2 < bestSq {
			bestSq = d2
			weights = corners(cp.DistanceTo(p0) / p1.DistanceTo(p0))
		}
	}
	edge(a, b, func(t float32) math32.Vector3 { return math32.Vec3(1-t, t, 0) })
	edge(b, c, func(t float32) math32.Vector3 { return math32.Vec3(0, 1-t, t) })
	edge(c, a, func(t float32) math32.Vector3 { return math32.Vec3(t, 0, 1-t) })
	return bestSq, weights
}

// MapAll resolves every point, fanned out across GOMAXPROCS workers.
// Points resolve independently and misses are flagged per mapping, never
// returned as errors; the only failure is context cancellation.
func (m *Mapper) MapAll(ctx context.Context, points []math32.Vector2) ([]Mapping, error) {
	out := make([]Mapping, len(points))
	grp, ctx := errgroup.WithContext(ctx)
	workers := runtime.GOMAXPROCS(0)
	chunk := max(1, (len(points)+workers-1)/workers)
	for start := 0; start < len(points); start += chunk {
		end := min(start+chunk, len(points))
		grp.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				out[i] = m.Lookup(points[i])
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Corners returns the reference vertex indices of a mapping's triangle.
func (m *Mapper) Corners(mp Mapping) [3]uint32 { return m.mesh.Triangles[mp.Triangle] }

// BlendVector3 interpolates a per-reference-vertex quantity at a mapped
// location.
func (m *Mapper) BlendVector3(values []math32.Vector3, mp Mapping) math32.Vector3 {
	tri := m.mesh.Triangles[mp.Triangle]
	v := values[tri[0]].MulScalar(mp.Weights.X)
	v = v.Add(values[tri[1]].MulScalar(mp.Weights.Y))
	return v.Add(values[tri[2]].MulScalar(mp.Weights.Z))
}

// BlendScalar interpolates a per-reference-vertex scalar at a mapped
// location.
func (m *Mapper) BlendScalar(values []float32, mp Mapping) float32 {
	tri := m.mesh.Triangles[mp.Triangle]
	return values[tri[0]]*mp.Weights.X + values[tri[1]]*mp.Weights.Y + values[tri[2]]*mp.Weights.Z
}

// LowConfidenceCount reports how many mappings missed the chart.
func LowConfidenceCount(maps []Mapping) int {
	n := 0
	for _, mp := range maps {
		if mp.LowConfidence {
			n++
		}
	}
	return n
}
