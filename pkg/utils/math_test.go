package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("got %v", v)
	}
	if n := L2Norm(v); math.Abs(n-1) > 1e-6 {
		t.Errorf("norm = %f", n)
	}

	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Error("zero vector should be unchanged")
	}
}

func TestMeanVector(t *testing.T) {
	got := MeanVector([][]float32{{1, 0, 2}, {3, 2, 4}})
	want := []float32{2, 1, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mean[%d] = %f, want %f", i, got[i], want[i])
		}
	}
	if MeanVector(nil) != nil {
		t.Error("empty input should return nil")
	}
}
