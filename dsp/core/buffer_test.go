package core

import "testing"

func TestEnsureLenReuse(t *testing.T) {
	buf := make([]float64, 4, 8)

	out := EnsureLen(buf, 6)
	if len(out) != 6 {
		t.Fatalf("len = %d, want 6", len(out))
	}

	if cap(out) != cap(buf) {
		t.Fatalf("cap = %d, want %d", cap(out), cap(buf))
	}
}

func TestCopyInto(t *testing.T) {
	dst := make([]float64, 2)

	n := CopyInto(dst, []float64{1, 2, 3})
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}

	if dst[0] != 1 || dst[1] != 2 {
		t.Fatalf("unexpected dst: %#v", dst)
	}
}

func TestZero(t *testing.T) {
	buf := []float64{1, 2, 3}
	Zero(buf)

	for i, v := range buf {
		if v != 0 {
			t.Fatalf("buf[%d] = %v, want 0", i, v)
		}
	}
}

func TestFrames(t *testing.T) {
	tests := []struct {
		name     string
		channels [][]float64
		want     int
	}{
		{name: "none", channels: nil, want: 0},
		{name: "mono", channels: [][]float64{make([]float64, 5)}, want: 5},
		{name: "equal", channels: [][]float64{make([]float64, 4), make([]float64, 4)}, want: 4},
		{name: "ragged", channels: [][]float64{make([]float64, 6), make([]float64, 3)}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Frames(tt.channels); got != tt.want {
				t.Fatalf("Frames() = %d, want %d", got, tt.want)
			}
		})
	}
}
