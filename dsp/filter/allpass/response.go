package allpass

import (
	"math"
	"math/cmplx"
)

// Response computes the complex frequency response H(e^jw) of the section
// at the given frequency (Hz) and sample rate (Hz).
func (c Coefficients) Response(freqHz, sampleRate float64) complex128 {
	w := 2 * math.Pi * freqHz / sampleRate
	ejw := cmplx.Exp(complex(0, -w))

	num := complex(c.B0, 0) + complex(c.B1, 0)*ejw
	den := complex(c.A0, 0) - complex(c.A1, 0)*ejw

	return num / den
}

// MagnitudeSquared returns |H(f)|^2 in closed form.
func (c Coefficients) MagnitudeSquared(freqHz, sampleRate float64) float64 {
	cw := math.Cos(2 * math.Pi * freqHz / sampleRate)

	num := c.B0*c.B0 + c.B1*c.B1 + 2*c.B0*c.B1*cw
	den := c.A0*c.A0 + c.A1*c.A1 - 2*c.A0*c.A1*cw

	return num / den
}

// MagnitudeDB returns 10*log10(|H(f)|^2).
func (c Coefficients) MagnitudeDB(freqHz, sampleRate float64) float64 {
	return 10 * math.Log10(c.MagnitudeSquared(freqHz, sampleRate))
}

// Phase returns the phase response in radians at the given frequency.
func (c Coefficients) Phase(freqHz, sampleRate float64) float64 {
	return cmplx.Phase(c.Response(freqHz, sampleRate))
}

// Response computes the response of the full cascade as the product of the
// section responses. This is the response of ProcessStages; the shared-history
// recurrence of Process is not a product of sections.
func (b *Bank) Response(freqHz, sampleRate float64) complex128 {
	h := complex(1, 0)
	for i := range b.stages {
		h *= b.stages[i].Response(freqHz, sampleRate)
	}

	return h
}

// MagnitudeDB returns the cascaded magnitude response in dB.
func (b *Bank) MagnitudeDB(freqHz, sampleRate float64) float64 {
	return 20 * math.Log10(cmplx.Abs(b.Response(freqHz, sampleRate)))
}

// UnwrappedPhase returns the cascade phase in radians, unwrapped across sections
// by summing the per-section phases.
func (b *Bank) UnwrappedPhase(freqHz, sampleRate float64) float64 {
	var phase float64
	for i := range b.stages {
		phase += b.stages[i].Phase(freqHz, sampleRate)
	}

	return phase
}
