package modulation

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-phaser/dsp/core"
	"github.com/cwbudde/algo-phaser/dsp/filter/allpass"
)

const (
	defaultPhaserBaseFreqHz = 500.0
	defaultPhaserLFOFreqHz  = 10.0
	defaultPhaserDepth      = 0.5
	defaultPhaserFeedback   = 0.2
	defaultPhaserAmplitude  = 0.5
	defaultPhaserWidth      = 0.5
	defaultPhaserMinFreqHz  = 200.0
	defaultPhaserStages     = 2
	defaultPhaserWaveform   = WaveformTriangleExp
	phaserUpdateRateHz      = 10000.0
)

// ErrProcessing is returned by reconfiguration calls that overlap a block
// being processed.
var ErrProcessing = errors.New("phaser: block processing in flight")

// PhaserState is the lifecycle state of a Phaser.
type PhaserState int32

// Lifecycle states.
const (
	PhaserIdle PhaserState = iota
	PhaserReady
)

func (s PhaserState) String() string {
	switch s {
	case PhaserIdle:
		return "idle"
	case PhaserReady:
		return "ready"
	default:
		return fmt.Sprintf("PhaserState(%d)", int32(s))
	}
}

// PhaserOption mutates phaser construction parameters.
type PhaserOption func(*phaserConfig) error

type phaserConfig struct {
	baseFreqHz      float64
	lfoFreqHz       float64
	depth           float64
	feedback        float64
	amplitude       float64
	width           float64
	minFreqHz       float64
	waveform        Waveform
	stages          int
	updateInterval  int
	perStageHistory bool
}

func defaultPhaserConfig() phaserConfig {
	return phaserConfig{
		baseFreqHz: defaultPhaserBaseFreqHz,
		lfoFreqHz:  defaultPhaserLFOFreqHz,
		depth:      defaultPhaserDepth,
		feedback:   defaultPhaserFeedback,
		amplitude:  defaultPhaserAmplitude,
		width:      defaultPhaserWidth,
		minFreqHz:  defaultPhaserMinFreqHz,
		waveform:   defaultPhaserWaveform,
		stages:     defaultPhaserStages,
	}
}

// WithPhaserBaseFrequencyHz sets the allpass center frequency in Hz.
func WithPhaserBaseFrequencyHz(freqHz float64) PhaserOption {
	return func(cfg *phaserConfig) error {
		if err := validateBaseFrequency(freqHz); err != nil {
			return err
		}

		cfg.baseFreqHz = freqHz

		return nil
	}
}

// WithPhaserLFOFrequencyHz sets the modulation speed in Hz.
func WithPhaserLFOFrequencyHz(freqHz float64) PhaserOption {
	return func(cfg *phaserConfig) error {
		if freqHz <= 0 || math.IsNaN(freqHz) || math.IsInf(freqHz, 0) {
			return fmt.Errorf("phaser lfo frequency must be > 0 and finite: %f", freqHz)
		}

		cfg.lfoFreqHz = freqHz

		return nil
	}
}

// WithPhaserDepth sets the dry/wet depth in [0, 1].
func WithPhaserDepth(depth float64) PhaserOption {
	return func(cfg *phaserConfig) error {
		if err := validateDepth(depth); err != nil {
			return err
		}

		cfg.depth = depth

		return nil
	}
}

// WithPhaserFeedback sets the feedback amount in [0, 1).
func WithPhaserFeedback(feedback float64) PhaserOption {
	return func(cfg *phaserConfig) error {
		if err := validateFeedback(feedback); err != nil {
			return err
		}

		cfg.feedback = feedback

		return nil
	}
}

// WithPhaserAmplitude sets the LFO amplitude in [0, 1].
func WithPhaserAmplitude(amp float64) PhaserOption {
	return func(cfg *phaserConfig) error {
		if err := validateAmplitude(amp); err != nil {
			return err
		}

		cfg.amplitude = amp

		return nil
	}
}

// WithPhaserWidth sets the LFO width (frequency ratio of the sweep).
func WithPhaserWidth(width float64) PhaserOption {
	return func(cfg *phaserConfig) error {
		if width < 0 || math.IsNaN(width) || math.IsInf(width, 0) {
			return fmt.Errorf("phaser lfo width must be >= 0 and finite: %f", width)
		}

		cfg.width = width

		return nil
	}
}

// WithPhaserMinFrequencyHz sets the sweep floor used by the
// triangle-exponential waveform.
func WithPhaserMinFrequencyHz(freqHz float64) PhaserOption {
	return func(cfg *phaserConfig) error {
		if err := validateMinFrequency(freqHz); err != nil {
			return err
		}

		cfg.minFreqHz = freqHz

		return nil
	}
}

// WithPhaserWaveform selects the LFO waveform.
func WithPhaserWaveform(w Waveform) PhaserOption {
	return func(cfg *phaserConfig) error {
		if !w.Valid() {
			return fmt.Errorf("phaser waveform invalid: %d", int32(w))
		}

		cfg.waveform = w

		return nil
	}
}

// WithPhaserStages sets the number of allpass stages in [1, 12].
func WithPhaserStages(stages int) PhaserOption {
	return func(cfg *phaserConfig) error {
		if stages < 1 || stages > allpass.MaxStages {
			return fmt.Errorf("phaser stages must be in [1, %d]: %d", allpass.MaxStages, stages)
		}

		cfg.stages = stages

		return nil
	}
}

// WithPhaserUpdateInterval fixes the number of samples between coefficient
// updates. Zero derives the interval from the sample rate.
func WithPhaserUpdateInterval(samples int) PhaserOption {
	return func(cfg *phaserConfig) error {
		if samples < 0 {
			return fmt.Errorf("phaser update interval must be >= 0: %d", samples)
		}

		cfg.updateInterval = samples

		return nil
	}
}

// WithPhaserPerStageHistory gives every allpass stage its own previous
// input and output instead of sharing the channel's previous input and
// previous cascade output across stages.
func WithPhaserPerStageHistory() PhaserOption {
	return func(cfg *phaserConfig) error {
		cfg.perStageHistory = true
		return nil
	}
}

type phaserChannel struct {
	prevInput  float64
	lastOutput float64
	stages     []allpass.State
}

func (c *phaserChannel) reset() {
	c.prevInput = 0
	c.lastOutput = 0

	for i := range c.stages {
		c.stages[i].Reset()
	}
}

// Phaser is a multi-channel phaser: a cascade of first-order allpass
// filters whose break frequency is swept by an LFO, mixed with the dry
// signal.
//
// Parameter setters may be called from a control goroutine while another
// goroutine calls Process. Prepare, SetSampleRate and Reset reconfigure the
// stream; they return ErrProcessing instead of overlapping a block, and a
// block that starts during a reconfiguration is skipped.
type Phaser struct {
	sampleRate atomicFloat
	baseFreqHz atomicFloat
	lfoFreqHz  atomicFloat
	depth      atomicFloat
	feedback   atomicFloat
	amplitude  atomicFloat
	width      atomicFloat
	minFreqHz  atomicFloat
	waveform   atomic.Int32

	state atomic.Int32
	busy  atomic.Bool

	fixedInterval   int
	updateInterval  int
	perStageHistory bool
	blockSize       int

	phase       Phase
	sampleCount int
	bank        *allpass.Bank
	channels    []phaserChannel
}

// NewPhaser creates an idle phaser with practical defaults and optional
// overrides. Call Prepare before processing.
func NewPhaser(sampleRate float64, opts ...PhaserOption) (*Phaser, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}

	cfg := defaultPhaserConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		err := opt(&cfg)
		if err != nil {
			return nil, err
		}
	}

	if cfg.waveform == WaveformTriangleExp && cfg.width == 0 {
		return nil, errors.New("phaser lfo width must be > 0 for the triangle-exp waveform")
	}

	if cfg.lfoFreqHz > sampleRate {
		return nil, fmt.Errorf("phaser lfo frequency must be <= sample rate: lfo=%f sr=%f", cfg.lfoFreqHz, sampleRate)
	}

	bank, err := allpass.NewBank(cfg.stages)
	if err != nil {
		return nil, err
	}

	bank.SetPerStageHistory(cfg.perStageHistory)

	p := &Phaser{
		fixedInterval:   cfg.updateInterval,
		perStageHistory: cfg.perStageHistory,
		bank:            bank,
	}

	p.sampleRate.Store(sampleRate)
	p.baseFreqHz.Store(cfg.baseFreqHz)
	p.lfoFreqHz.Store(cfg.lfoFreqHz)
	p.depth.Store(cfg.depth)
	p.feedback.Store(cfg.feedback)
	p.amplitude.Store(cfg.amplitude)
	p.width.Store(cfg.width)
	p.minFreqHz.Store(cfg.minFreqHz)
	p.waveform.Store(int32(cfg.waveform))
	p.updateInterval = p.deriveUpdateInterval(sampleRate)

	return p, nil
}

// Prepare validates cfg, sizes per-channel state and moves the phaser to
// Ready with cleared history, phase and sample counter. It is the only
// place that allocates.
func (p *Phaser) Prepare(cfg core.ProcessorConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("phaser: %w", err)
	}

	if lfo := p.lfoFreqHz.Load(); lfo > cfg.SampleRate {
		return fmt.Errorf("phaser lfo frequency must be <= sample rate: lfo=%f sr=%f", lfo, cfg.SampleRate)
	}

	if !p.busy.CompareAndSwap(false, true) {
		return ErrProcessing
	}
	defer p.busy.Store(false)

	p.sampleRate.Store(cfg.SampleRate)
	p.updateInterval = p.deriveUpdateInterval(cfg.SampleRate)
	p.blockSize = cfg.BlockSize

	if cap(p.channels) >= cfg.NumChannels {
		p.channels = p.channels[:cfg.NumChannels]
	} else {
		p.channels = make([]phaserChannel, cfg.NumChannels)
	}

	for i := range p.channels {
		if len(p.channels[i].stages) != p.bank.Len() {
			p.channels[i].stages = make([]allpass.State, p.bank.Len())
		}
	}

	p.resetState()
	p.state.Store(int32(PhaserReady))

	return nil
}

// Reset clears filter history, LFO phase and the sample counter. The
// phaser stays in its current state. It returns ErrProcessing if a block is
// in flight.
func (p *Phaser) Reset() error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrProcessing
	}
	defer p.busy.Store(false)

	p.resetState()

	return nil
}

func (p *Phaser) resetState() {
	p.phase.Reset()
	p.sampleCount = 0
	p.bank.Update(p.sampleRate.Load(), p.baseFreqHz.Load())

	for i := range p.channels {
		p.channels[i].reset()
	}
}

// SetSampleRate changes the sample rate. A Ready phaser is re-prepared with
// its current channel count and block size, which resets its state.
func (p *Phaser) SetSampleRate(sampleRate float64) error {
	if err := validateSampleRate(sampleRate); err != nil {
		return err
	}

	if p.State() != PhaserReady {
		if lfo := p.lfoFreqHz.Load(); lfo > sampleRate {
			return fmt.Errorf("phaser lfo frequency must be <= sample rate: lfo=%f sr=%f", lfo, sampleRate)
		}

		p.sampleRate.Store(sampleRate)
		p.updateInterval = p.deriveUpdateInterval(sampleRate)

		return nil
	}

	return p.Prepare(core.ProcessorConfig{
		SampleRate:  sampleRate,
		BlockSize:   p.blockSize,
		NumChannels: len(p.channels),
	})
}

// SetBaseFrequency sets the allpass center frequency in Hz.
func (p *Phaser) SetBaseFrequency(freqHz float64) error {
	if err := validateBaseFrequency(freqHz); err != nil {
		return err
	}

	p.baseFreqHz.Store(freqHz)

	return nil
}

// SetLFOFrequency sets the modulation speed in Hz. It must not exceed the
// sample rate.
func (p *Phaser) SetLFOFrequency(freqHz float64) error {
	if freqHz <= 0 || math.IsNaN(freqHz) || math.IsInf(freqHz, 0) {
		return fmt.Errorf("phaser lfo frequency must be > 0 and finite: %f", freqHz)
	}

	if sr := p.sampleRate.Load(); freqHz > sr {
		return fmt.Errorf("phaser lfo frequency must be <= sample rate: lfo=%f sr=%f", freqHz, sr)
	}

	p.lfoFreqHz.Store(freqHz)

	return nil
}

// SetDepth sets the dry/wet depth in [0, 1]. Depth 1 is an equal blend.
func (p *Phaser) SetDepth(depth float64) error {
	if err := validateDepth(depth); err != nil {
		return err
	}

	p.depth.Store(depth)

	return nil
}

// SetFeedback sets the feedback amount in [0, 1).
func (p *Phaser) SetFeedback(feedback float64) error {
	if err := validateFeedback(feedback); err != nil {
		return err
	}

	p.feedback.Store(feedback)

	return nil
}

// SetAmplitude sets the LFO amplitude in [0, 1].
func (p *Phaser) SetAmplitude(amp float64) error {
	if err := validateAmplitude(amp); err != nil {
		return err
	}

	p.amplitude.Store(amp)

	return nil
}

// SetWidth sets the LFO width. The triangle-exp waveform needs width > 0.
// SetWidth and SetWaveform check each other without a lock, so racing calls
// can still publish width 0 with triangle-exp. The design frequency is then
// NaN and the previous coefficients stay in place.
func (p *Phaser) SetWidth(width float64) error {
	if width < 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return fmt.Errorf("phaser lfo width must be >= 0 and finite: %f", width)
	}

	if width == 0 && p.Waveform() == WaveformTriangleExp {
		return errors.New("phaser lfo width must be > 0 for the triangle-exp waveform")
	}

	p.width.Store(width)

	return nil
}

// SetMinFrequency sets the sweep floor of the triangle-exp waveform in Hz.
func (p *Phaser) SetMinFrequency(freqHz float64) error {
	if err := validateMinFrequency(freqHz); err != nil {
		return err
	}

	p.minFreqHz.Store(freqHz)

	return nil
}

// SetWaveform selects the LFO waveform.
func (p *Phaser) SetWaveform(w Waveform) error {
	if !w.Valid() {
		return fmt.Errorf("phaser waveform invalid: %d", int32(w))
	}

	if w == WaveformTriangleExp && p.width.Load() == 0 {
		return errors.New("phaser lfo width must be > 0 for the triangle-exp waveform")
	}

	p.waveform.Store(int32(w))

	return nil
}

// Process applies the phaser in place to planar channels. Only the first
// NumChannels channels are processed and only as many frames as the
// shortest of them holds. An idle phaser, or one being reconfigured, leaves
// the buffer untouched.
func (p *Phaser) Process(channels [][]float64) {
	if !p.busy.CompareAndSwap(false, true) {
		return
	}
	defer p.busy.Store(false)

	if PhaserState(p.state.Load()) != PhaserReady {
		return
	}

	numChannels := min(len(channels), len(p.channels))
	if numChannels == 0 {
		return
	}

	channels = channels[:numChannels]
	frames := core.Frames(channels)
	prm := p.snapshot()

	for n := range frames {
		p.updateCoefficients(&prm)

		for ch, buf := range channels {
			buf[n] = p.processSample(&p.channels[ch], buf[n], &prm)
		}

		p.phase.Advance(prm.increment)
		p.sampleCount++
	}
}

// ProcessInterleaved applies the phaser in place to interleaved frames of
// numChannels samples. A trailing partial frame is left untouched.
func (p *Phaser) ProcessInterleaved(buf []float64, numChannels int) {
	if numChannels <= 0 {
		return
	}

	if !p.busy.CompareAndSwap(false, true) {
		return
	}
	defer p.busy.Store(false)

	if PhaserState(p.state.Load()) != PhaserReady {
		return
	}

	active := min(numChannels, len(p.channels))
	frames := len(buf) / numChannels
	prm := p.snapshot()

	for n := range frames {
		p.updateCoefficients(&prm)

		frame := buf[n*numChannels : n*numChannels+active]
		for ch := range frame {
			frame[ch] = p.processSample(&p.channels[ch], frame[ch], &prm)
		}

		p.phase.Advance(prm.increment)
		p.sampleCount++
	}
}

// updateCoefficients refreshes the bank when the global sample counter hits
// the update cadence. All channels share the result.
func (p *Phaser) updateCoefficients(prm *blockParams) {
	if !allpass.ShouldUpdate(p.sampleCount, p.updateInterval) {
		return
	}

	freq := prm.baseFreqHz + prm.lfo.Width*prm.lfo.Value(p.phase.Value())
	p.bank.Update(p.sampleRate.Load(), freq)
}

func (p *Phaser) processSample(c *phaserChannel, x float64, prm *blockParams) float64 {
	out := x
	if prm.feedback != 0 {
		out += prm.feedback * c.lastOutput
	}

	if p.perStageHistory {
		out = p.bank.ProcessStages(out, c.stages)
	} else {
		out = p.bank.Process(out, c.prevInput, c.lastOutput)
	}

	c.prevInput = x
	c.lastOutput = core.FlushDenormals(out)

	return (1-0.5*prm.depth)*x + 0.5*prm.depth*out
}

func (p *Phaser) deriveUpdateInterval(sampleRate float64) int {
	if p.fixedInterval > 0 {
		return p.fixedInterval
	}

	return max(1, int(sampleRate/phaserUpdateRateHz))
}

// State returns the lifecycle state.
func (p *Phaser) State() PhaserState { return PhaserState(p.state.Load()) }

// SampleRate returns the sample rate in Hz.
func (p *Phaser) SampleRate() float64 { return p.sampleRate.Load() }

// BaseFrequencyHz returns the allpass center frequency in Hz.
func (p *Phaser) BaseFrequencyHz() float64 { return p.baseFreqHz.Load() }

// LFOFrequencyHz returns the modulation speed in Hz.
func (p *Phaser) LFOFrequencyHz() float64 { return p.lfoFreqHz.Load() }

// Depth returns the dry/wet depth in [0, 1].
func (p *Phaser) Depth() float64 { return p.depth.Load() }

// Feedback returns the feedback amount in [0, 1).
func (p *Phaser) Feedback() float64 { return p.feedback.Load() }

// Amplitude returns the LFO amplitude.
func (p *Phaser) Amplitude() float64 { return p.amplitude.Load() }

// Width returns the LFO width.
func (p *Phaser) Width() float64 { return p.width.Load() }

// MinFrequencyHz returns the sweep floor of the triangle-exp waveform.
func (p *Phaser) MinFrequencyHz() float64 { return p.minFreqHz.Load() }

// Waveform returns the LFO waveform.
func (p *Phaser) Waveform() Waveform { return Waveform(p.waveform.Load()) }

// Stages returns the number of allpass stages.
func (p *Phaser) Stages() int { return p.bank.Len() }

// PerStageHistory reports whether each stage keeps its own history.
func (p *Phaser) PerStageHistory() bool { return p.perStageHistory }

// MaxFrequencyHz returns the highest allpass break frequency at the current
// sample rate. Higher swept frequencies are limited to it.
func (p *Phaser) MaxFrequencyHz() float64 { return p.bank.MaxFrequencyHz(p.sampleRate.Load()) }

// UpdateInterval returns the number of samples between coefficient updates.
func (p *Phaser) UpdateInterval() int { return p.updateInterval }

// NumChannels returns the prepared channel count.
func (p *Phaser) NumChannels() int { return len(p.channels) }

// BlockSize returns the prepared maximum block size.
func (p *Phaser) BlockSize() int { return p.blockSize }

// The accessors below read audio-thread state and are only meaningful
// between Process calls.

// Phase returns the LFO phase in [0, 1).
func (p *Phaser) Phase() float64 { return p.phase.Value() }

// SampleCount returns the number of frames processed since the last reset.
func (p *Phaser) SampleCount() int { return p.sampleCount }

// Coefficients returns the current coefficients of stage i.
func (p *Phaser) Coefficients(i int) allpass.Coefficients { return p.bank.Stage(i) }

func validateSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("phaser sample rate must be > 0 and finite: %f", sampleRate)
	}

	return nil
}

func validateBaseFrequency(freqHz float64) error {
	if freqHz <= 0 || math.IsNaN(freqHz) || math.IsInf(freqHz, 0) {
		return fmt.Errorf("phaser base frequency must be > 0 and finite: %f", freqHz)
	}

	return nil
}

func validateMinFrequency(freqHz float64) error {
	if freqHz <= 0 || math.IsNaN(freqHz) || math.IsInf(freqHz, 0) {
		return fmt.Errorf("phaser min frequency must be > 0 and finite: %f", freqHz)
	}

	return nil
}

func validateDepth(depth float64) error {
	if depth < 0 || depth > 1 || math.IsNaN(depth) {
		return fmt.Errorf("phaser depth must be in [0, 1]: %f", depth)
	}

	return nil
}

func validateFeedback(feedback float64) error {
	if feedback < 0 || feedback >= 1 || math.IsNaN(feedback) {
		return fmt.Errorf("phaser feedback must be in [0, 1): %f", feedback)
	}

	return nil
}

func validateAmplitude(amp float64) error {
	if amp < 0 || amp > 1 || math.IsNaN(amp) {
		return fmt.Errorf("phaser lfo amplitude must be in [0, 1]: %f", amp)
	}

	return nil
}
