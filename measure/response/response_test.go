package response

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-phaser/internal/testutil"
)

func TestMagnitudeOfImpulseIsFlat(t *testing.T) {
	mags, err := Magnitude(testutil.Impulse(64, 0), 256)
	if err != nil {
		t.Fatalf("Magnitude() error = %v", err)
	}

	if len(mags) != 129 {
		t.Fatalf("len = %d, want 129", len(mags))
	}

	for k, m := range mags {
		if math.Abs(m-1) > 1e-12 {
			t.Fatalf("bin %d: %v, want 1", k, m)
		}
	}
}

func TestMagnitudeOfDelayedImpulseIsFlat(t *testing.T) {
	// A pure delay is an allpass: same magnitude, linear phase.
	mags, err := Magnitude(testutil.Impulse(32, 7), 128)
	if err != nil {
		t.Fatalf("Magnitude() error = %v", err)
	}

	for k, m := range mags {
		if math.Abs(m-1) > 1e-12 {
			t.Fatalf("bin %d: %v, want 1", k, m)
		}
	}
}

func TestMagnitudeOfTwoTapAverager(t *testing.T) {
	// h = [0.5, 0.5]: |H(w)| = |cos(w/2)|.
	const n = 64

	mags, err := Magnitude([]float64{0.5, 0.5}, n)
	if err != nil {
		t.Fatalf("Magnitude() error = %v", err)
	}

	for k, m := range mags {
		w := 2 * math.Pi * float64(k) / n
		want := math.Abs(math.Cos(w / 2))
		if math.Abs(m-want) > 1e-12 {
			t.Fatalf("bin %d: %v, want %v", k, m, want)
		}
	}
}

func TestMaxDeviationDB(t *testing.T) {
	dev, err := MaxDeviationDB(testutil.Impulse(16, 3), 64)
	if err != nil {
		t.Fatalf("MaxDeviationDB() error = %v", err)
	}
	if dev > 1e-9 {
		t.Fatalf("deviation = %v dB, want 0", dev)
	}

	dev, err = MaxDeviationDB([]float64{0.5, 0}, 64)
	if err != nil {
		t.Fatalf("MaxDeviationDB() error = %v", err)
	}
	if math.Abs(dev-20*math.Log10(2)) > 1e-9 {
		t.Fatalf("deviation = %v dB, want %v", dev, 20*math.Log10(2))
	}
}

func TestSpectrumValidation(t *testing.T) {
	if _, err := Spectrum(nil, 64); !errors.Is(err, ErrEmptyIR) {
		t.Fatalf("empty IR: err = %v, want ErrEmptyIR", err)
	}
	if _, err := Spectrum([]float64{1}, 1); err == nil {
		t.Fatal("fft size 1: expected error")
	}
	if _, err := Spectrum(make([]float64, 65), 64); err == nil {
		t.Fatal("IR longer than fft: expected error")
	}
}

func TestBinFrequencyAndAt(t *testing.T) {
	if got := BinFrequency(16, 1024, 48000); got != 750 {
		t.Fatalf("BinFrequency = %v, want 750", got)
	}

	mags := []float64{0, 1, 2, 3, 4}
	got, err := At(mags, 1.5*48000/8, 8, 48000)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1.5) > 1e-12 {
		t.Fatalf("At() = %v, want 1.5", got)
	}

	if got, _ := At(mags, 1e9, 8, 48000); got != 4 {
		t.Fatalf("At(beyond Nyquist) = %v, want 4", got)
	}

	if _, err := At(mags, 100, 8, 0); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("err = %v, want ErrInvalidSampleRate", err)
	}
}
