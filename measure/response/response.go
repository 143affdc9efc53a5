package response

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by response analysis functions.
var (
	ErrEmptyIR           = errors.New("response: impulse response is empty")
	ErrInvalidSampleRate = errors.New("response: sample rate must be positive")
)

// Spectrum returns the complex spectrum bins [0..fftSize/2] of ir zero-padded
// to fftSize. ir longer than fftSize is rejected rather than truncated.
func Spectrum(ir []float64, fftSize int) ([]complex128, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyIR
	}

	if fftSize < 2 {
		return nil, fmt.Errorf("response: fft size must be >= 2: %d", fftSize)
	}

	if len(ir) > fftSize {
		return nil, fmt.Errorf("response: impulse response length %d exceeds fft size %d", len(ir), fftSize)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("response: fft plan: %w", err)
	}

	in := make([]complex128, fftSize)
	for i, v := range ir {
		in[i] = complex(v, 0)
	}

	out := make([]complex128, fftSize)

	err = plan.Forward(out, in)
	if err != nil {
		return nil, fmt.Errorf("response: forward fft: %w", err)
	}

	return out[:fftSize/2+1], nil
}

// Magnitude returns |H(k)| for bins [0..fftSize/2].
func Magnitude(ir []float64, fftSize int) ([]float64, error) {
	bins, err := Spectrum(ir, fftSize)
	if err != nil {
		return nil, err
	}

	re := make([]float64, len(bins))
	im := make([]float64, len(bins))

	for i, c := range bins {
		re[i] = real(c)
		im[i] = imag(c)
	}

	out := make([]float64, len(bins))
	vecmath.Magnitude(out, re, im)

	return out, nil
}

// MagnitudeDB returns 20*log10(|H(k)|) for bins [0..fftSize/2].
func MagnitudeDB(ir []float64, fftSize int) ([]float64, error) {
	mags, err := Magnitude(ir, fftSize)
	if err != nil {
		return nil, err
	}

	for i, m := range mags {
		mags[i] = 20 * math.Log10(m)
	}

	return mags, nil
}

// MaxDeviationDB returns the largest absolute distance from 0 dB over all
// bins, i.e. how far a nominally allpass response strays from unity gain.
func MaxDeviationDB(ir []float64, fftSize int) (float64, error) {
	db, err := MagnitudeDB(ir, fftSize)
	if err != nil {
		return 0, err
	}

	return vecmath.MaxAbs(db), nil
}

// BinFrequency returns the center frequency in Hz of bin k.
func BinFrequency(k, fftSize int, sampleRate float64) float64 {
	if fftSize <= 0 {
		return 0
	}

	return float64(k) * sampleRate / float64(fftSize)
}

// At returns the magnitude at freqHz by linear interpolation between the
// neighbouring bins of mags (as returned by Magnitude for fftSize).
func At(mags []float64, freqHz float64, fftSize int, sampleRate float64) (float64, error) {
	if len(mags) == 0 {
		return 0, ErrEmptyIR
	}

	if sampleRate <= 0 {
		return 0, ErrInvalidSampleRate
	}

	pos := freqHz * float64(fftSize) / sampleRate
	if pos <= 0 {
		return mags[0], nil
	}

	last := len(mags) - 1
	if pos >= float64(last) {
		return mags[last], nil
	}

	k := int(pos)
	frac := pos - float64(k)

	return mags[k]*(1-frac) + mags[k+1]*frac, nil
}
