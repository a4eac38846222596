package uvmap

import (
	"cogentcore.org/core/math32"
)

// triangleGrid is a uniform spatial index over triangle bounding boxes in
// UV space. Cells hold the indices of every triangle whose box overlaps
// them, so a lookup only tests candidates near its query cell and walks
// outward ring by ring.
type triangleGrid struct {
	bounds  math32.Box2
	nx, ny  int
	invX    float32 // cells per UV unit, zero on a degenerate axis
	invY    float32
	minCell float32 // smallest positive cell extent, bounds the ring search
	cells   [][]int32
}

func newTriangleGrid(uvs []math32.Vector2, tris [][3]uint32) *triangleGrid {
	bounds := math32.B2Empty()
	for _, uv := range uvs {
		bounds.ExpandByPoint(uv)
	}

	n := int(math32.Ceil(math32.Sqrt(float32(len(tris)))))
	n = min(max(n, 1), 128)

	g := &triangleGrid{bounds: bounds, nx: n, ny: n}
	size := bounds.Size()
	if size.X > 0 {
		g.invX = float32(g.nx) / size.X
	} else {
		g.nx = 1
	}
	if size.Y > 0 {
		g.invY = float32(g.ny) / size.Y
	} else {
		g.ny = 1
	}
	switch {
	case g.invX > 0 && g.invY > 0:
		g.minCell = math32.Min(1/g.invX, 1/g.invY)
	case g.invX > 0:
		g.minCell = 1 / g.invX
	case g.invY > 0:
		g.minCell = 1 / g.invY
	}
	g.cells = make([][]int32, g.nx*g.ny)

	for ti, tri := range tris {
		lo := uvs[tri[0]]
		hi := lo
		for _, vi := range tri[1:] {
			uv := uvs[vi]
			lo.X = math32.Min(lo.X, uv.X)
			lo.Y = math32.Min(lo.Y, uv.Y)
			hi.X = math32.Max(hi.X, uv.X)
			hi.Y = math32.Max(hi.Y, uv.Y)
		}
		x0, y0 := g.cellOf(lo)
		x1, y1 := g.cellOf(hi)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				g.cells[y*g.nx+x] = append(g.cells[y*g.nx+x], int32(ti))
			}
		}
	}
	return g
}

func (g *triangleGrid) cellOf(p math32.Vector2) (int, int) {
	x, y := 0, 0
	if g.invX > 0 {
		x = int((p.X - g.bounds.Min.X) * g.invX)
		x = min(max(x, 0), g.nx-1)
	}
	if g.invY > 0 {
		y = int((p.Y - g.bounds.Min.Y) * g.invY)
		y = min(max(y, 0), g.ny-1)
	}
	return x, y
}

// ring calls fn for every in-bounds cell at Chebyshev distance r from
// (cx, cy). Cells are visited in a fixed order, so lookups stay
// deterministic.
func (g *triangleGrid) ring(cx, cy, r int, fn func([]int32)) {
	if r == 0 {
		fn(g.cells[cy*g.nx+cx])
		return
	}
	x0, x1 := cx-r, cx+r
	y0, y1 := cy-r, cy+r
	for x := x0; x <= x1; x++ {
		if x < 0 || x >= g.nx {
			continue
		}
		if y0 >= 0 {
			fn(g.cells[y0*g.nx+x])
		}
		if y1 < g.ny {
			fn(g.cells[y1*g.nx+x])
		}
	}
	for y := y0 + 1; y < y1; y++ {
		if y < 0 || y >= g.ny {
			continue
		}
		if x0 >= 0 {
			fn(g.cells[y*g.nx+x0])
		}
		if x1 < g.nx {
			fn(g.cells[y*g.nx+x1])
		}
	}
}
