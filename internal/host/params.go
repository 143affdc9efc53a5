package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/cwbudde/algo-phaser/dsp/core"
	"github.com/cwbudde/algo-phaser/dsp/effects/modulation"
)

// Parameter IDs understood by PhaserSink and parameter documents.
const (
	ParamBaseFrequency = "base"
	ParamLFOFrequency  = "lfo"
	ParamDepth         = "depth"
	ParamFeedback      = "feedback"
	ParamAmplitude     = "amplitude"
	ParamWidth         = "width"
	ParamMinFrequency  = "min"
	ParamWaveform      = "waveform"
)

// ErrUnknownParameter is returned for IDs missing from the parameter table.
var ErrUnknownParameter = errors.New("unknown parameter")

// Parameter describes one automatable control.
type Parameter struct {
	ID      string
	Label   string
	Unit    string
	Min     float64
	Max     float64
	Default float64
	// Log maps slider positions logarithmically.
	Log bool
	// Steps > 0 marks a discrete parameter with that many choices.
	Steps int
}

var parameters = []Parameter{
	{ID: ParamBaseFrequency, Label: "Base Frequency", Unit: "Hz", Min: 20, Max: 20000, Default: 500, Log: true},
	{ID: ParamLFOFrequency, Label: "LFO Frequency", Unit: "Hz", Min: 0.01, Max: 20, Default: 10, Log: true},
	{ID: ParamDepth, Label: "Depth", Min: 0, Max: 1, Default: 0.5},
	{ID: ParamFeedback, Label: "Feedback", Min: 0, Max: 0.99, Default: 0.2},
	{ID: ParamAmplitude, Label: "LFO Amplitude", Min: 0, Max: 1, Default: 0.5},
	{ID: ParamWidth, Label: "LFO Width", Min: 0, Max: 1, Default: 0.5},
	{ID: ParamMinFrequency, Label: "LFO Min Frequency", Unit: "Hz", Min: 20, Max: 2000, Default: 200, Log: true},
	{ID: ParamWaveform, Label: "LFO Waveform", Min: 0, Max: 2, Default: 0, Steps: 3},
}

// Parameters returns a copy of the parameter table in display order.
func Parameters() []Parameter {
	return slices.Clone(parameters)
}

// LookupParameter returns the table entry for id.
func LookupParameter(id string) (Parameter, bool) {
	for _, p := range parameters {
		if p.ID == id {
			return p, true
		}
	}

	return Parameter{}, false
}

// Normalize maps value to a slider position in [0, 1].
func (p Parameter) Normalize(value float64) float64 {
	value = core.Clamp(value, p.Min, p.Max)
	if p.Max == p.Min {
		return 0
	}

	if p.Log {
		return math.Log(value/p.Min) / math.Log(p.Max/p.Min)
	}

	return (value - p.Min) / (p.Max - p.Min)
}

// Denormalize maps a slider position in [0, 1] to a parameter value.
// Discrete parameters snap to the nearest step.
func (p Parameter) Denormalize(pos float64) float64 {
	pos = core.Clamp(pos, 0, 1)

	var value float64
	if p.Log {
		value = p.Min * math.Pow(p.Max/p.Min, pos)
	} else {
		value = p.Min + pos*(p.Max-p.Min)
	}

	if p.Steps > 0 {
		value = math.Round(value)
	}

	return core.Clamp(value, p.Min, p.Max)
}

// ParameterSink receives parameter changes from a control surface.
type ParameterSink interface {
	SetParameter(id string, value float64) error
}

// PhaserSink routes parameter changes to a phaser.
type PhaserSink struct {
	Phaser *modulation.Phaser
}

// SetParameter implements ParameterSink. The waveform value is the
// waveform index.
func (s PhaserSink) SetParameter(id string, value float64) error {
	switch id {
	case ParamBaseFrequency:
		return s.Phaser.SetBaseFrequency(value)
	case ParamLFOFrequency:
		return s.Phaser.SetLFOFrequency(value)
	case ParamDepth:
		return s.Phaser.SetDepth(value)
	case ParamFeedback:
		return s.Phaser.SetFeedback(value)
	case ParamAmplitude:
		return s.Phaser.SetAmplitude(value)
	case ParamWidth:
		return s.Phaser.SetWidth(value)
	case ParamMinFrequency:
		return s.Phaser.SetMinFrequency(value)
	case ParamWaveform:
		if value != math.Trunc(value) {
			return fmt.Errorf("waveform index must be an integer: %f", value)
		}

		return s.Phaser.SetWaveform(modulation.Waveform(int32(value)))
	default:
		return fmt.Errorf("%w: %s", ErrUnknownParameter, id)
	}
}

// Params is a parsed parameter document.
type Params struct {
	Num map[string]float64
	Str map[string]string
}

// GetNum safely extracts a numeric parameter, returning def if missing or invalid.
func (p Params) GetNum(key string, def float64) float64 {
	if p.Num == nil {
		return def
	}

	v, ok := p.Num[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}

	return v
}

// Len returns the number of entries in the document.
func (p Params) Len() int {
	return len(p.Num) + len(p.Str)
}

// ParseParams parses a flat JSON object of parameter IDs. Values are
// numbers, or for "waveform" a name such as "square".
//
//	{"depth": 0.8, "lfo": 0.5, "waveform": "sine"}
func ParseParams(raw []byte) (Params, error) {
	var doc map[string]any

	err := json.Unmarshal(raw, &doc)
	if err != nil {
		return Params{}, fmt.Errorf("invalid parameter json: %w", err)
	}

	p := Params{Num: make(map[string]float64), Str: make(map[string]string)}

	for key, v := range doc {
		if _, ok := LookupParameter(key); !ok {
			return Params{}, fmt.Errorf("%w: %s", ErrUnknownParameter, key)
		}

		switch val := v.(type) {
		case float64:
			p.Num[key] = val
		case string:
			if key != ParamWaveform {
				return Params{}, fmt.Errorf("parameter %s must be a number: %q", key, val)
			}

			w, err := modulation.ParseWaveform(val)
			if err != nil {
				return Params{}, err
			}

			p.Num[key] = float64(w)
			p.Str[key] = strings.ToLower(strings.TrimSpace(val))
		default:
			return Params{}, fmt.Errorf("parameter %s has unsupported type %T", key, v)
		}
	}

	return p, nil
}

// ApplyParams sends every numeric entry of p to sink in table order.
// Entries rejected on the first pass are retried once, so that order
// dependent pairs such as waveform and width settle. Remaining failures are
// joined.
func ApplyParams(sink ParameterSink, p Params) error {
	var pending []string

	for _, param := range parameters {
		v, ok := p.Num[param.ID]
		if !ok {
			continue
		}

		if sink.SetParameter(param.ID, v) != nil {
			pending = append(pending, param.ID)
		}
	}

	var errs []error

	for _, id := range pending {
		err := sink.SetParameter(id, p.Num[id])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}

	return errors.Join(errs...)
}
