package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1000, 48000, 1.0, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestDeterministicNoise(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 64)
	b := DeterministicNoise(42, 1.0, 64)
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
	}
}

func TestImpulse(t *testing.T) {
	imp := Impulse(8, 3)
	for i, v := range imp {
		want := 0.0
		if i == 3 {
			want = 1
		}
		if v != want {
			t.Fatalf("imp[%d] = %v, want %v", i, v, want)
		}
	}

	for i, v := range Impulse(4, 10) {
		if v != 0 {
			t.Fatalf("out-of-bounds impulse: imp[%d] = %v", i, v)
		}
	}
}

func TestDC(t *testing.T) {
	for i, v := range DC(0.5, 4) {
		if v != 0.5 {
			t.Fatalf("DC[%d] = %v, want 0.5", i, v)
		}
	}
}

func TestPlanarCopies(t *testing.T) {
	src := []float64{1, 2, 3}
	block := Planar(src, src)
	block[0][0] = 9

	if src[0] != 1 {
		t.Fatal("Planar must copy its inputs")
	}
	if block[1][0] != 1 {
		t.Fatal("channels must not alias each other")
	}
}

func TestSplit(t *testing.T) {
	blocks := Split([]float64{1, 2, 3, 4, 5}, 2)
	if len(blocks) != 3 {
		t.Fatalf("len = %d, want 3", len(blocks))
	}
	if len(blocks[2]) != 1 || blocks[2][0] != 5 {
		t.Fatalf("last block = %v, want [5]", blocks[2])
	}
	if Split([]float64{1}, 0) != nil {
		t.Fatal("Split with size 0 must return nil")
	}
}
