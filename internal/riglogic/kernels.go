package riglogic

import (
	"github.com/chewxy/math32"

	"rigdna/internal/dna"
)

// kernelWeight maps a normalized pose distance x = distance/radius to a
// falloff weight. Every kernel is 1 at x=0 and decays with distance; the
// polynomial kernels reach zero at the radius, the exponential family
// only approaches it.
func kernelWeight(k dna.RBFKernel, x float32) float32 {
	switch k {
	case dna.KernelGaussian:
		return math32.Exp(-4 * x * x)
	case dna.KernelExponential:
		return math32.Exp(-10 * x)
	case dna.KernelCubic:
		c := max(0, 1-x)
		return c * c * c
	case dna.KernelQuintic:
		c := max(0, 1-x)
		return c * c * c * c * c
	default:
		return max(0, 1-x)
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// evalScalarKeys evaluates a piecewise-linear response at x. Outside the
// key range the endpoint values hold, so configured endpoints reproduce
// exactly.
func evalScalarKeys(keys []dna.ScalarKey, x float32) float32 {
	if x <= keys[0].In {
		return keys[0].Out
	}
	last := len(keys) - 1
	if x >= keys[last].In {
		return keys[last].Out
	}
	for i := 1; i <= last; i++ {
		if x <= keys[i].In {
			k0, k1 := keys[i-1], keys[i]
			t := (x - k0.In) / (k1.In - k0.In)
			return k0.Out + (k1.Out-k0.Out)*t
		}
	}
	return keys[last].Out
}

// addTransformKeys adds a piecewise-linear 9-wide transform response at x
// into dst.
func addTransformKeys(dst []float32, keys []dna.TransformKey, x float32) {
	if x <= keys[0].In {
		for k, v := range keys[0].Out {
			dst[k] += v
		}
		return
	}
	last := len(keys) - 1
	if x >= keys[last].In {
		for k, v := range keys[last].Out {
			dst[k] += v
		}
		return
	}
	for i := 1; i <= last; i++ {
		if x <= keys[i].In {
			k0, k1 := &keys[i-1], &keys[i]
			t := (x - k0.In) / (k1.In - k0.In)
			for k := 0; k < 9; k++ {
				dst[k] += k0.Out[k] + (k1.Out[k]-k0.Out[k])*t
			}
			return
		}
	}
}
