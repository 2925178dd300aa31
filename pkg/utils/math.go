package utils

import "math"

// NormalizeL2 scales x in place to unit L2 norm. A zero vector is left
// unchanged, since there is no direction to preserve.
func NormalizeL2(x []float32) {
	norm := L2Norm(x)
	if norm == 0 {
		return
	}
	inv := float32(1 / norm)
	for i := range x {
		x[i] *= inv
	}
}

// L2Norm returns the Euclidean norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v * v)
	}
	return math.Sqrt(sum)
}

// MeanVector returns the component-wise arithmetic mean of vecs. All vectors
// must have the same length; returns nil for an empty input.
func MeanVector(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	out := make([]float32, len(vecs[0]))
	for _, vec := range vecs {
		for i, v := range vec {
			out[i] += v
		}
	}
	n := float32(len(vecs))
	for i := range out {
		out[i] /= n
	}
	return out
}
