package riglogic

import (
	"testing"

	"cogentcore.org/core/base/tolassert"
	"github.com/stretchr/testify/assert"
)

func TestLUSolve(t *testing.T) {
	// Known solution x = (1, -2, 3); the first column forces a pivot swap.
	m := []float32{
		2, 1, 1,
		4, -6, 0,
		-2, 7, 2,
	}
	f, err := luFactorize(m, 3)
	assert.NoError(t, err)

	b := []float32{3, 16, -10}
	x := make([]float32, 3)
	f.solve(b, x)
	tolassert.EqualTolSlice(t, []float32{1, -2, 3}, x, 1e-5)

	// The right-hand side is left intact for reuse.
	assert.Equal(t, []float32{3, 16, -10}, b)
}

func TestLUSolveIdentity(t *testing.T) {
	m := []float32{
		1, 0,
		0, 1,
	}
	f, err := luFactorize(m, 2)
	assert.NoError(t, err)

	x := make([]float32, 2)
	f.solve([]float32{0.25, 0.75}, x)
	assert.Equal(t, []float32{0.25, 0.75}, x)
}

func TestLUFactorizeSingular(t *testing.T) {
	m := []float32{
		1, 1,
		1, 1,
	}
	_, err := luFactorize(m, 2)
	assert.ErrorContains(t, err, "singular")
}
