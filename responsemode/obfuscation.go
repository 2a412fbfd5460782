package responsemode

import (
	"fmt"
	"math"
	"math/rand"
)

// defaultBucketWidth is used when a range request omits Precision.
const defaultBucketWidth = 10.0

// applyRange buckets value into a [lo, hi) interval of the requested
// width and reports the width actually used, so the caller can publish
// it back in ObfuscationApplied.
func applyRange(value, width float64) (string, float64, error) {
	if width <= 0 {
		width = defaultBucketWidth
	}
	lo := math.Floor(value/width) * width
	hi := lo + width
	return fmt.Sprintf("%g-%g", lo, hi), width, nil
}

// applyNoise adds Laplace-distributed noise scaled by noiseLevel*|value|.
// noiseLevel == 0 disables the mechanism entirely and returns value
// unchanged, per the "no noise requested" case; a negative noiseLevel
// is rejected as meaningless.
func applyNoise(value, noiseLevel float64) (float64, error) {
	if noiseLevel < 0 {
		return 0, fmt.Errorf("noise obfuscation requires a non-negative noise level, got %g", noiseLevel)
	}
	if noiseLevel == 0 {
		return value, nil
	}
	return value + sampleLaplace(noiseLevel*math.Abs(value)), nil
}

// sampleLaplace draws from a Laplace(0, scale) distribution using
// inverse-CDF sampling from a uniform variate in (-1/2, 1/2).
func sampleLaplace(scale float64) float64 {
	u := rand.Float64() - 0.5
	sign := 1.0
	if u < 0 {
		sign = -1.0
	}
	return -scale * sign * math.Log(1-2*math.Abs(u))
}

// applyRounding rounds value to the nearest multiple of precision.
func applyRounding(value, precision float64) (float64, error) {
	if precision <= 0 {
		return 0, fmt.Errorf("rounding obfuscation requires a positive precision, got %g", precision)
	}
	return math.Round(value/precision) * precision, nil
}
