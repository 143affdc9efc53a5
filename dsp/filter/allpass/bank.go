package allpass

import (
	"fmt"
	"math"
)

const (
	// MaxStages bounds the cascade length.
	MaxStages = 12

	// sharedPoleLimit bounds the recursion pole of the shared-history
	// cascade, a + a^2 + ... + a^N.
	sharedPoleLimit = 0.95
)

// State is the single-sample history of one filter path.
type State struct {
	X1 float64 // previous input
	Y1 float64 // previous output
}

// Reset clears the history.
func (s *State) Reset() {
	s.X1 = 0
	s.Y1 = 0
}

// Bank is a fixed-size cascade of first-order allpass sections.
//
// With shared history (the default) every section sees the same previous
// cascade output, so the cascade as a whole is a first-order recursion with
// pole -(a + a^2 + ... + a^N). Update keeps that pole inside sharedPoleLimit
// by lowering the design frequency. Banks marked with SetPerStageHistory
// are driven through ProcessStages, need only |a| < 1 and are limited by
// NyquistSafetyRatio alone.
type Bank struct {
	stages    []Coefficients
	perStage  bool
	maxShared float64
}

// NewBank returns a cascade of n sections initialized to Identity.
func NewBank(n int) (*Bank, error) {
	if n < 1 || n > MaxStages {
		return nil, fmt.Errorf("allpass stages must be in [1, %d]: %d", MaxStages, n)
	}

	b := &Bank{
		stages:    make([]Coefficients, n),
		maxShared: maxSharedCoefficient(n),
	}
	for i := range b.stages {
		b.stages[i] = Identity()
	}

	return b, nil
}

// Len returns the number of sections.
func (b *Bank) Len() int { return len(b.stages) }

// Stage returns the coefficients of section i.
func (b *Bank) Stage(i int) Coefficients { return b.stages[i] }

// SetPerStageHistory selects the history model the caller drives the bank
// with. It only affects the frequency limit applied by Update.
func (b *Bank) SetPerStageHistory(perStage bool) { b.perStage = perStage }

// MaxFrequencyHz returns the highest break frequency Update designs for at
// sampleRate.
func (b *Bank) MaxFrequencyHz(sampleRate float64) float64 {
	limit := NyquistSafetyRatio * sampleRate
	if b.perStage {
		return limit
	}

	a := b.maxShared
	shared := sampleRate / math.Pi * math.Atan((1+a)/(1-a))

	return min(limit, shared)
}

// maxSharedCoefficient returns the largest a in [0, 1) for which
// a + a^2 + ... + a^n stays within sharedPoleLimit. Negative coefficients
// never reach the limit.
func maxSharedCoefficient(n int) float64 {
	lo, hi := 0.0, 1.0
	for range 64 {
		mid := (lo + hi) / 2
		if sharedPole(mid, n) <= sharedPoleLimit {
			lo = mid
		} else {
			hi = mid
		}
	}

	return lo
}

func sharedPole(a float64, n int) float64 {
	sum, term := 0.0, 1.0
	for range n {
		term *= a
		sum += term
	}

	return sum
}

// ShouldUpdate reports whether coefficients are due for recomputation at
// sampleCount for the given update interval. Intervals below 1 update on
// every sample.
func ShouldUpdate(sampleCount, interval int) bool {
	if interval <= 1 {
		return true
	}

	return sampleCount%interval == 0
}

// Update recomputes every section for frequencyHz, limited to
// MaxFrequencyHz. A non-finite frequency, or a design that produces
// non-finite coefficients, keeps the previous coefficients and returns
// false.
func (b *Bank) Update(sampleRate, frequencyHz float64) bool {
	if math.IsNaN(frequencyHz) || math.IsInf(frequencyHz, 0) {
		return false
	}

	c := MakeAllPass(sampleRate, min(frequencyHz, b.MaxFrequencyHz(sampleRate)))
	if !c.IsFinite() {
		return false
	}

	for i := range b.stages {
		b.stages[i] = c
	}

	return true
}

// Process runs x through the cascade with one history shared by every
// section: xPrev is the previous raw input of the channel and yPrev the
// previous output of the whole cascade. Section i's output is section i+1's
// input.
func (b *Bank) Process(x, xPrev, yPrev float64) float64 {
	out := x
	for i := range b.stages {
		out = b.stages[i].Step(out, xPrev, yPrev)
	}

	return out
}

// ProcessStages runs x through the cascade with separate history per
// section. states must hold at least Len() entries and is updated in place.
func (b *Bank) ProcessStages(x float64, states []State) float64 {
	out := x
	for i := range b.stages {
		s := &states[i]
		y := b.stages[i].Step(out, s.X1, s.Y1)
		s.X1 = out
		s.Y1 = y
		out = y
	}

	return out
}
