package host

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/cwbudde/algo-phaser/dsp/core"
	"github.com/cwbudde/algo-phaser/dsp/effects/modulation"
	"github.com/cwbudde/algo-phaser/dsp/filter/allpass"
	"github.com/cwbudde/algo-phaser/internal/testutil"
)

type recordingSink struct {
	values map[string]float64
	calls  []string
	reject map[string]bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{values: map[string]float64{}, reject: map[string]bool{}}
}

func (s *recordingSink) SetParameter(id string, value float64) error {
	s.calls = append(s.calls, id)
	if s.reject[id] {
		return errors.New("rejected")
	}

	s.values[id] = value

	return nil
}

func newTestPhaser(t *testing.T) *modulation.Phaser {
	t.Helper()

	p, err := modulation.NewPhaser(48000)
	if err != nil {
		t.Fatalf("NewPhaser() error = %v", err)
	}

	return p
}

func TestParametersTable(t *testing.T) {
	params := Parameters()
	if len(params) != 8 {
		t.Fatalf("len(Parameters()) = %d, want 8", len(params))
	}

	seen := map[string]bool{}
	for _, p := range params {
		if seen[p.ID] {
			t.Fatalf("duplicate parameter %q", p.ID)
		}

		seen[p.ID] = true

		if p.Default < p.Min || p.Default > p.Max {
			t.Fatalf("%s default %g outside [%g, %g]", p.ID, p.Default, p.Min, p.Max)
		}
	}

	params[0].Label = "changed"
	if p, _ := LookupParameter(params[0].ID); p.Label == "changed" {
		t.Fatal("Parameters() must return a copy")
	}

	if _, ok := LookupParameter("nope"); ok {
		t.Fatal("LookupParameter(nope) ok = true")
	}
}

func TestParameterDefaultsMatchPhaser(t *testing.T) {
	ph := newTestPhaser(t)

	want := map[string]float64{
		ParamBaseFrequency: ph.BaseFrequencyHz(),
		ParamLFOFrequency:  ph.LFOFrequencyHz(),
		ParamDepth:         ph.Depth(),
		ParamFeedback:      ph.Feedback(),
		ParamAmplitude:     ph.Amplitude(),
		ParamWidth:         ph.Width(),
		ParamMinFrequency:  ph.MinFrequencyHz(),
		ParamWaveform:      float64(ph.Waveform()),
	}

	for _, p := range Parameters() {
		if p.Default != want[p.ID] {
			t.Fatalf("%s default = %g, phaser has %g", p.ID, p.Default, want[p.ID])
		}
	}
}

func TestNormalizeDenormalize(t *testing.T) {
	for _, p := range Parameters() {
		for _, pos := range []float64{0, 0.25, 0.5, 1} {
			v := p.Denormalize(pos)
			if v < p.Min || v > p.Max {
				t.Fatalf("%s Denormalize(%g) = %g outside range", p.ID, pos, v)
			}

			if p.Steps > 0 {
				continue
			}

			if back := p.Normalize(v); math.Abs(back-pos) > 1e-12 {
				t.Fatalf("%s Normalize(Denormalize(%g)) = %g", p.ID, pos, back)
			}
		}
	}

	base, _ := LookupParameter(ParamBaseFrequency)
	if got := base.Denormalize(0.5); math.Abs(got-math.Sqrt(20*20000)) > 1e-9 {
		t.Fatalf("log midpoint = %g", got)
	}

	depth, _ := LookupParameter(ParamDepth)
	if got := depth.Normalize(7); got != 1 {
		t.Fatalf("Normalize clamps: got %g", got)
	}

	wf, _ := LookupParameter(ParamWaveform)
	if got := wf.Denormalize(0.6); got != 1 {
		t.Fatalf("waveform Denormalize(0.6) = %g, want 1", got)
	}
}

func TestPhaserSinkSetParameter(t *testing.T) {
	ph := newTestPhaser(t)
	sink := PhaserSink{Phaser: ph}

	steps := []struct {
		id    string
		value float64
		get   func() float64
	}{
		{ParamBaseFrequency, 900, ph.BaseFrequencyHz},
		{ParamLFOFrequency, 0.75, ph.LFOFrequencyHz},
		{ParamDepth, 1, ph.Depth},
		{ParamFeedback, 0.4, ph.Feedback},
		{ParamAmplitude, 0.3, ph.Amplitude},
		{ParamWidth, 0.9, ph.Width},
		{ParamMinFrequency, 150, ph.MinFrequencyHz},
	}

	for _, s := range steps {
		if err := sink.SetParameter(s.id, s.value); err != nil {
			t.Fatalf("SetParameter(%s) error = %v", s.id, err)
		}

		if got := s.get(); got != s.value {
			t.Fatalf("%s = %g, want %g", s.id, got, s.value)
		}
	}

	if err := sink.SetParameter(ParamWaveform, 2); err != nil {
		t.Fatalf("SetParameter(waveform) error = %v", err)
	}

	if ph.Waveform() != modulation.WaveformSine {
		t.Fatalf("Waveform() = %v, want sine", ph.Waveform())
	}

	if err := sink.SetParameter(ParamWaveform, 1.5); err == nil {
		t.Fatal("fractional waveform index expected error")
	}

	if err := sink.SetParameter(ParamDepth, 3); err == nil {
		t.Fatal("out of range depth expected error")
	}

	if err := sink.SetParameter("gain", 1); !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("unknown id error = %v, want ErrUnknownParameter", err)
	}
}

func TestParseParams(t *testing.T) {
	p, err := ParseParams([]byte(`{"depth": 0.8, "lfo": 0.5, "waveform": "Sine"}`))
	if err != nil {
		t.Fatalf("ParseParams() error = %v", err)
	}

	if p.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", p.Len())
	}

	if got := p.GetNum(ParamDepth, 0); got != 0.8 {
		t.Fatalf("depth = %g", got)
	}

	if got := p.GetNum(ParamWaveform, -1); got != float64(modulation.WaveformSine) {
		t.Fatalf("waveform = %g", got)
	}

	if p.Str[ParamWaveform] != "sine" {
		t.Fatalf("waveform name = %q", p.Str[ParamWaveform])
	}

	if got := p.GetNum(ParamFeedback, 0.33); got != 0.33 {
		t.Fatalf("missing key default = %g", got)
	}

	bad := []string{
		`{"depth": "high"}`,
		`{"gain": 1}`,
		`{"waveform": "saw"}`,
		`{"depth": [1]}`,
		`not json`,
	}

	for _, raw := range bad {
		if _, err := ParseParams([]byte(raw)); err == nil {
			t.Fatalf("ParseParams(%s) expected error", raw)
		}
	}

	if _, err := ParseParams([]byte(`{"gain": 1}`)); !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("unknown key error = %v", err)
	}
}

func TestGetNumRejectsNonFinite(t *testing.T) {
	p := Params{Num: map[string]float64{"depth": math.NaN()}}
	if got := p.GetNum("depth", 0.5); got != 0.5 {
		t.Fatalf("GetNum(NaN) = %g, want default", got)
	}

	if got := (Params{}).GetNum("depth", 0.25); got != 0.25 {
		t.Fatalf("GetNum on empty = %g", got)
	}
}

func TestApplyParamsTableOrder(t *testing.T) {
	sink := newRecordingSink()
	p := Params{Num: map[string]float64{
		ParamWaveform:      1,
		ParamDepth:         0.7,
		ParamBaseFrequency: 800,
	}}

	if err := ApplyParams(sink, p); err != nil {
		t.Fatalf("ApplyParams() error = %v", err)
	}

	want := []string{ParamBaseFrequency, ParamDepth, ParamWaveform}
	for i, id := range want {
		if sink.calls[i] != id {
			t.Fatalf("calls = %v, want %v", sink.calls, want)
		}
	}
}

func TestApplyParamsSettlesDependentPairs(t *testing.T) {
	ph := newTestPhaser(t)
	sink := PhaserSink{Phaser: ph}

	p, err := ParseParams([]byte(`{"waveform": "square", "width": 0}`))
	if err != nil {
		t.Fatalf("ParseParams() error = %v", err)
	}

	if err := ApplyParams(sink, p); err != nil {
		t.Fatalf("ApplyParams() error = %v", err)
	}

	if ph.Waveform() != modulation.WaveformSquare || ph.Width() != 0 {
		t.Fatalf("waveform=%v width=%g", ph.Waveform(), ph.Width())
	}

	back, err := ParseParams([]byte(`{"waveform": "triangle-exp", "width": 0.4}`))
	if err != nil {
		t.Fatalf("ParseParams() error = %v", err)
	}

	if err := ApplyParams(sink, back); err != nil {
		t.Fatalf("ApplyParams() error = %v", err)
	}

	if ph.Waveform() != modulation.WaveformTriangleExp || ph.Width() != 0.4 {
		t.Fatalf("waveform=%v width=%g", ph.Waveform(), ph.Width())
	}
}

func TestApplyParamsJoinsErrors(t *testing.T) {
	sink := newRecordingSink()
	sink.reject[ParamDepth] = true

	err := ApplyParams(sink, Params{Num: map[string]float64{ParamDepth: 0.1, ParamFeedback: 0.2}})
	if err == nil {
		t.Fatal("expected error")
	}

	if sink.values[ParamFeedback] != 0.2 {
		t.Fatal("accepted entries must still be applied")
	}

	depthCalls := 0
	for _, id := range sink.calls {
		if id == ParamDepth {
			depthCalls++
		}
	}

	if depthCalls != 2 {
		t.Fatalf("depth attempted %d times, want 2", depthCalls)
	}
}

func TestParameterCornersStayFinite(t *testing.T) {
	var numeric []Parameter

	for _, p := range Parameters() {
		if p.Steps == 0 {
			numeric = append(numeric, p)
		}
	}

	in := testutil.DeterministicNoise(6, 1, 1024)
	in[0] = 1

	for _, perStage := range []bool{false, true} {
		for w := modulation.WaveformTriangleExp; w <= modulation.WaveformSine; w++ {
			for mask := range 1 << len(numeric) {
				params := Params{Num: map[string]float64{ParamWaveform: float64(w)}}

				for i, p := range numeric {
					v := p.Min
					if mask>>i&1 == 1 {
						v = p.Max
					}

					params.Num[p.ID] = v
				}

				opts := []modulation.PhaserOption{modulation.WithPhaserStages(allpass.MaxStages)}
				if perStage {
					opts = append(opts, modulation.WithPhaserPerStageHistory())
				}

				ph, err := modulation.NewPhaser(44100, opts...)
				if err != nil {
					t.Fatalf("NewPhaser() error = %v", err)
				}

				err = ApplyParams(PhaserSink{Phaser: ph}, params)
				if w == modulation.WaveformTriangleExp && params.Num[ParamWidth] == 0 {
					if err == nil {
						t.Fatalf("%v: zero width with %v expected error", params.Num, w)
					}

					continue
				}

				if err != nil {
					t.Fatalf("%v: ApplyParams() error = %v", params.Num, err)
				}

				err = ph.Prepare(core.ProcessorConfig{SampleRate: 44100, BlockSize: len(in), NumChannels: 1})
				if err != nil {
					t.Fatalf("Prepare() error = %v", err)
				}

				buf := [][]float64{slices.Clone(in)}
				ph.Process(buf)

				for i, v := range buf[0] {
					if math.IsNaN(v) || math.Abs(v) > 100 {
						t.Fatalf("%v per-stage=%v: sample %d = %v", params.Num, perStage, i, v)
					}
				}
			}
		}
	}
}
