package math32

import (
	"math"
	"testing"
)

func TestDot(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	if got := Dot(a, b); got != 32 {
		t.Fatalf("Dot = %v, want 32", got)
	}
	if got := Dot(nil, nil); got != 0 {
		t.Fatalf("Dot(nil, nil) = %v, want 0", got)
	}
}

func TestSquaredL2(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 6, 3}
	if got := SquaredL2(a, b); got != 25 {
		t.Fatalf("SquaredL2 = %v, want 25", got)
	}
	if got := SquaredL2(a, a); got != 0 {
		t.Fatalf("SquaredL2(a, a) = %v, want 0", got)
	}
}

func TestSquaredL2Precision(t *testing.T) {
	a := []float32{1e-3, 2e-3}
	b := []float32{0, 0}
	want := 1e-6 + 4e-6
	if got := float64(SquaredL2(a, b)); math.Abs(got-want) > 1e-9 {
		t.Fatalf("SquaredL2 = %v, want ~%v", got, want)
	}
}
