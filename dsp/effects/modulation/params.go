package modulation

import (
	"math"
	"sync/atomic"
)

// atomicFloat is a float64 that the control goroutine writes and the audio
// goroutine reads without locks.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

// blockParams is the parameter snapshot used for one block.
type blockParams struct {
	baseFreqHz float64
	depth      float64
	feedback   float64
	increment  float64
	lfo        LFO
}

func (p *Phaser) snapshot() blockParams {
	lfoFreq := p.lfoFreqHz.Load()

	return blockParams{
		baseFreqHz: p.baseFreqHz.Load(),
		depth:      p.depth.Load(),
		feedback:   p.feedback.Load(),
		increment:  lfoFreq / p.sampleRate.Load(),
		lfo: LFO{
			Waveform:       Waveform(p.waveform.Load()),
			Amplitude:      p.amplitude.Load(),
			Width:          p.width.Load(),
			FrequencyHz:    lfoFreq,
			MinFrequencyHz: p.minFreqHz.Load(),
		},
	}
}
