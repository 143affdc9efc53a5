package host

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cwbudde/algo-phaser/dsp/effects/modulation"
)

// BindFlags registers one flag per table parameter on fs. The returned
// function builds a parameter document from the flags that were set on the
// command line, so unset flags leave the processor's values alone.
func BindFlags(fs *flag.FlagSet) func() (Params, error) {
	nums := make(map[string]*float64, len(parameters))

	var waveform *string

	for _, p := range parameters {
		usage := p.Label
		if p.Unit != "" {
			usage += " in " + p.Unit
		}

		if p.ID == ParamWaveform {
			waveform = fs.String(p.ID, modulation.Waveform(int32(p.Default)).String(),
				"LFO waveform: triangle-exp, square or sine")
			continue
		}

		nums[p.ID] = fs.Float64(p.ID, p.Default, fmt.Sprintf("%s [%g, %g]", usage, p.Min, p.Max))
	}

	return func() (Params, error) {
		out := Params{Num: map[string]float64{}, Str: map[string]string{}}

		var err error

		fs.Visit(func(f *flag.Flag) {
			if err != nil {
				return
			}

			if f.Name == ParamWaveform {
				var w modulation.Waveform

				w, err = modulation.ParseWaveform(*waveform)
				if err == nil {
					out.Num[ParamWaveform] = float64(w)
					out.Str[ParamWaveform] = w.String()
				}

				return
			}

			if v, ok := nums[f.Name]; ok {
				out.Num[f.Name] = *v
			}
		})

		return out, err
	}
}

// Merge returns a copy of p with the entries of q layered on top.
func (p Params) Merge(q Params) Params {
	out := Params{Num: make(map[string]float64, len(p.Num)+len(q.Num)), Str: make(map[string]string)}

	for _, src := range []Params{p, q} {
		for k, v := range src.Num {
			out.Num[k] = v
		}

		for k, v := range src.Str {
			out.Str[k] = v
		}
	}

	return out
}

// ResolveLogLevel maps a level name to a slog level.
func ResolveLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

// NewLogger returns a text logger writing to w at the named level.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	logLevel, err := ResolveLogLevel(level)
	if err != nil {
		return nil, err
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler), nil
}
