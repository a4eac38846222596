package riglogic

import (
	"testing"

	"cogentcore.org/core/base/tolassert"
	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"

	"rigdna/internal/dna"
)

func TestKernelWeight(t *testing.T) {
	kernels := []dna.RBFKernel{
		dna.KernelGaussian,
		dna.KernelExponential,
		dna.KernelLinear,
		dna.KernelCubic,
		dna.KernelQuintic,
	}
	for _, k := range kernels {
		assert.Equal(t, float32(1), kernelWeight(k, 0), k.String())
		near := kernelWeight(k, 0.5)
		far := kernelWeight(k, 0.9)
		assert.Greater(t, near, far, k.String())
		assert.GreaterOrEqual(t, far, float32(0), k.String())
	}

	tolassert.EqualTol(t, math32.Exp(-1), kernelWeight(dna.KernelGaussian, 0.5), 1e-6)
	tolassert.EqualTol(t, math32.Exp(-5), kernelWeight(dna.KernelExponential, 0.5), 1e-6)
	tolassert.EqualTol(t, 0.5, kernelWeight(dna.KernelLinear, 0.5), 1e-6)
	tolassert.EqualTol(t, 0.125, kernelWeight(dna.KernelCubic, 0.5), 1e-6)
	tolassert.EqualTol(t, 0.03125, kernelWeight(dna.KernelQuintic, 0.5), 1e-6)

	// The polynomial kernels cut off at the radius; the exponential
	// family only approaches zero.
	assert.Equal(t, float32(0), kernelWeight(dna.KernelLinear, 1))
	assert.Equal(t, float32(0), kernelWeight(dna.KernelCubic, 1.5))
	assert.Equal(t, float32(0), kernelWeight(dna.KernelQuintic, 2))
	assert.Greater(t, kernelWeight(dna.KernelGaussian, 2), float32(0))
	assert.Greater(t, kernelWeight(dna.KernelExponential, 2), float32(0))
}

func TestEvalScalarKeys(t *testing.T) {
	keys := []dna.ScalarKey{{In: 0, Out: 0}, {In: 0.5, Out: 0.2}, {In: 1, Out: 1}}

	// Keys and out-of-range inputs reproduce endpoints exactly.
	assert.Equal(t, float32(0), evalScalarKeys(keys, -0.5))
	assert.Equal(t, float32(0), evalScalarKeys(keys, 0))
	assert.Equal(t, float32(0.2), evalScalarKeys(keys, 0.5))
	assert.Equal(t, float32(1), evalScalarKeys(keys, 1))
	assert.Equal(t, float32(1), evalScalarKeys(keys, 3))

	tolassert.EqualTol(t, 0.1, evalScalarKeys(keys, 0.25), 1e-6)
	tolassert.EqualTol(t, 0.6, evalScalarKeys(keys, 0.75), 1e-6)
}

func TestAddTransformKeys(t *testing.T) {
	keys := []dna.TransformKey{
		{In: 0},
		{In: 1, Out: dna.JointOutput{0, 2, 0, 30, 0, 0, 0, 0, 0}},
	}

	dst := make([]float32, 9)
	addTransformKeys(dst, keys, 0.5)
	tolassert.EqualTol(t, 1, dst[1], 1e-6)
	tolassert.EqualTol(t, 15, dst[3], 1e-6)
	assert.Equal(t, float32(0), dst[0])

	// Contributions accumulate rather than overwrite.
	addTransformKeys(dst, keys, 1)
	tolassert.EqualTol(t, 3, dst[1], 1e-6)
	tolassert.EqualTol(t, 45, dst[3], 1e-6)

	// Endpoint values hold outside the key range.
	clear(dst)
	addTransformKeys(dst, keys, 4)
	assert.Equal(t, float32(30), dst[3])
	clear(dst)
	addTransformKeys(dst, keys, -1)
	assert.Equal(t, float32(0), dst[3])
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, float32(0), clamp01(-0.1))
	assert.Equal(t, float32(0.4), clamp01(0.4))
	assert.Equal(t, float32(1), clamp01(1.7))
}
