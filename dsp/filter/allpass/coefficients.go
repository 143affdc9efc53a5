package allpass

import "math"

const (
	// MinDesignFrequencyHz is the lowest break frequency MakeAllPass designs for.
	MinDesignFrequencyHz = 1.0

	// NyquistSafetyRatio bounds the break frequency to this fraction of the
	// sample rate.
	NyquistSafetyRatio = 0.49
)

// Coefficients holds one first-order section.
//
// The transfer function is
//
//	H(z) = (B0 + B1*z^-1) / (A0 - A1*z^-1)
//
// so that A1 enters the difference equation with a positive sign.
type Coefficients struct {
	B0, B1 float64 // feedforward
	A0, A1 float64 // feedback; A0 is normalized to 1
}

// Identity returns the section with a = 0: a one-sample delay, which is
// itself an allpass.
func Identity() Coefficients {
	return Coefficients{B0: 0, B1: 1, A0: 1, A1: 0}
}

// MakeAllPass designs a first-order allpass with its 90 degree phase point at
// frequencyHz using the bilinear transform.
//
// The frequency is clamped to [MinDesignFrequencyHz, NyquistSafetyRatio*sampleRate].
// A non-positive or non-finite sample rate, or a non-finite frequency,
// returns Identity.
func MakeAllPass(sampleRate, frequencyHz float64) Coefficients {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) ||
		math.IsNaN(frequencyHz) || math.IsInf(frequencyHz, 0) {
		return Identity()
	}

	maxFreq := NyquistSafetyRatio * sampleRate
	if frequencyHz < MinDesignFrequencyHz {
		frequencyHz = MinDesignFrequencyHz
	} else if frequencyHz > maxFreq {
		frequencyHz = maxFreq
	}

	t := math.Tan(math.Pi * frequencyHz / sampleRate)
	if math.IsInf(t, 0) || math.IsNaN(t) {
		return Identity()
	}

	a := (t - 1) / (t + 1)

	return Coefficients{B0: a, B1: 1, A0: 1, A1: -a}
}

// Step evaluates one sample of the section. xPrev and yPrev are the previous
// input and output the caller chose as history.
func (c Coefficients) Step(x, xPrev, yPrev float64) float64 {
	return c.B0*x + c.B1*xPrev + c.A1*yPrev
}

// IsFinite reports whether all coefficients are finite.
func (c Coefficients) IsFinite() bool {
	for _, v := range [...]float64{c.B0, c.B1, c.A0, c.A1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}
