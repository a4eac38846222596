package riglogic

import (
	"fmt"

	"github.com/chewxy/math32"
)

// luFactors holds the LU decomposition of a solver's pose kernel matrix,
// computed once when the rig is built. Solving against it at evaluation
// time touches only caller-provided buffers.
type luFactors struct {
	n    int
	lu   []float32 // row-major, L below the diagonal (unit), U on and above
	perm []int
}

// luFactorize decomposes the n-by-n row-major matrix m with partial
// pivoting. m is consumed. A pivot collapsing to zero means two target
// poses are indistinguishable under the solver's distance method.
func luFactorize(m []float32, n int) (*luFactors, error) {
	const minPivot = 1e-7

	f := &luFactors{n: n, lu: m, perm: make([]int, n)}
	for i := range f.perm {
		f.perm[i] = i
	}
	for col := 0; col < n; col++ {
		pivot := col
		best := math32.Abs(m[col*n+col])
		for row := col + 1; row < n; row++ {
			if v := math32.Abs(m[row*n+col]); v > best {
				best = v
				pivot = row
			}
		}
		if best < minPivot {
			return nil, fmt.Errorf("kernel matrix is singular at column %d", col)
		}
		if pivot != col {
			for k := 0; k < n; k++ {
				m[col*n+k], m[pivot*n+k] = m[pivot*n+k], m[col*n+k]
			}
			f.perm[col], f.perm[pivot] = f.perm[pivot], f.perm[col]
		}
		inv := 1 / m[col*n+col]
		for row := col + 1; row < n; row++ {
			factor := m[row*n+col] * inv
			m[row*n+col] = factor
			for k := col + 1; k < n; k++ {
				m[row*n+k] -= factor * m[col*n+k]
			}
		}
	}
	return f, nil
}

// solve computes x such that A·x = b. b is left untouched; x must have
// length n and may not alias b.
func (f *luFactors) solve(b, x []float32) {
	n := f.n
	for i := 0; i < n; i++ {
		x[i] = b[f.perm[i]]
	}
	for i := 1; i < n; i++ {
		sum := x[i]
		for k := 0; k < i; k++ {
			sum -= f.lu[i*n+k] * x[k]
		}
		x[i] = sum
	}
	for i := n - 1; i >= 0; i-- {
		sum := x[i]
		for k := i + 1; k < n; k++ {
			sum -= f.lu[i*n+k] * x[k]
		}
		x[i] = sum / f.lu[i*n+i]
	}
}
