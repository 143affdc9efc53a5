package modulation

import (
	"fmt"
	"math"
	"strings"
)

// Waveform selects the LFO shape.
type Waveform int32

// Supported LFO waveforms.
const (
	WaveformTriangleExp Waveform = iota
	WaveformSquare
	WaveformSine
)

var waveformNames = [...]string{
	WaveformTriangleExp: "triangle-exp",
	WaveformSquare:      "square",
	WaveformSine:        "sine",
}

// String returns the canonical waveform name.
func (w Waveform) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Waveform(%d)", int32(w))
	}

	return waveformNames[w]
}

// Valid reports whether w is a known waveform.
func (w Waveform) Valid() bool {
	return w >= WaveformTriangleExp && w <= WaveformSine
}

// ParseWaveform accepts the canonical names plus a few common aliases.
func ParseWaveform(s string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "triangle-exp", "triangleexp", "exponential-triangle", "triangle", "tri":
		return WaveformTriangleExp, nil
	case "square", "sq":
		return WaveformSquare, nil
	case "sine", "sin":
		return WaveformSine, nil
	default:
		return 0, fmt.Errorf("unknown lfo waveform: %q", s)
	}
}

// Triangle is the piecewise-linear shape behind the triangle-exponential
// waveform. It starts at 0.5, peaks at 0.5+amp for phase 0.25, reaches 0 at
// phase 0.75 and returns to 0.5 at the wrap, continuous at every segment
// boundary.
func Triangle(phase, amp float64) float64 {
	switch {
	case phase < 0.25:
		return 0.5 + 4*amp*phase
	case phase < 0.75:
		return (0.5 + amp) * (1.5 - 2*phase)
	default:
		return 2 * (phase - 0.75)
	}
}

// LFO holds the modulation parameters read once per block.
type LFO struct {
	Waveform       Waveform
	Amplitude      float64
	Width          float64
	FrequencyHz    float64
	MinFrequencyHz float64
}

// Value returns the modulation value at phase in [0, 1). It has no side
// effects; non-finite parameters yield non-finite results.
//
// The sine waveform adds phase to 2*pi*FrequencyHz instead of scaling it,
// which gives a slow drift rather than a full cycle per period.
func (l LFO) Value(phase float64) float64 {
	switch l.Waveform {
	case WaveformSine:
		return l.Amplitude * math.Sin(2*math.Pi*l.FrequencyHz+phase)
	case WaveformSquare:
		if phase < 0.5 {
			return l.Amplitude
		}

		return 0
	default:
		return math.Log(l.MinFrequencyHz) + math.Log(l.Width)*Triangle(phase, l.Amplitude)
	}
}

// Phase is an LFO phase accumulator in [0, 1).
type Phase struct {
	value float64
}

// Value returns the current phase.
func (p *Phase) Value() float64 { return p.value }

// Reset sets the phase to 0.
func (p *Phase) Reset() { p.value = 0 }

// Advance adds increment (lfoFrequency/sampleRate) and wraps with a single
// subtraction, which keeps the phase in [0, 1) for increments up to 1.
// It reports whether the phase wrapped.
func (p *Phase) Advance(increment float64) bool {
	p.value += increment
	if p.value >= 1 {
		p.value--
		return true
	}

	return false
}
