// Command phaserinfo prints the coefficient schedule and frequency response
// of a phaser parameter set.
//
// Usage:
//
//	phaserinfo [flags] [freq-hz ...]
//
// The sweep table lists, over one LFO cycle, the LFO value, the allpass
// break frequency and the first-order coefficient. The response table
// evaluates the cascade at the lowest and highest break frequency of the
// sweep, and the measured column is read from the FFT of the phaser's
// impulse response.
//
// Examples:
//
//	phaserinfo
//	phaserinfo -waveform square -amplitude 1 -width 0.8 100 1000 5000
//	phaserinfo -rate 96000 -stages 6 -steps 16
//	phaserinfo -copy -depth 1
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	"github.com/cwbudde/algo-phaser/dsp/core"
	"github.com/cwbudde/algo-phaser/dsp/effects/modulation"
	"github.com/cwbudde/algo-phaser/dsp/filter/allpass"
	"github.com/cwbudde/algo-phaser/internal/host"
	"github.com/cwbudde/algo-phaser/measure/response"
)

var defaultFrequencies = []float64{50, 100, 200, 500, 1000, 2000, 5000, 10000}

func main() {
	rate := flag.Float64("rate", 44100, "sample rate in Hz")
	stages := flag.Int("stages", 2, "number of allpass stages (1-12)")
	steps := flag.Int("steps", 8, "sweep rows per LFO cycle")
	fftSize := flag.Int("fft", 8192, "FFT size for the measured response")
	copyOut := flag.Bool("copy", false, "also copy the tables to the clipboard")
	params := host.BindFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: phaserinfo [flags] [freq-hz ...]\n\n")
		fmt.Fprintf(os.Stderr, "Prints the phaser's coefficient schedule and frequency response.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	freqs, err := parseFrequencies(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	p, err := params()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	ph, err := modulation.NewPhaser(*rate, modulation.WithPhaserStages(*stages))
	if err == nil {
		err = host.ApplyParams(host.PhaserSink{Phaser: ph}, p)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var report bytes.Buffer

	rows := sweep(ph, *steps)
	if err := printSweep(&report, ph, rows); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to write sweep table: %v\n", err)
		os.Exit(1)
	}

	report.WriteString("\n")

	resp, err := responseTable(ph, rows, freqs, *fftSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := printResponse(&report, resp); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to write response table: %v\n", err)
		os.Exit(1)
	}

	if _, err := os.Stdout.Write(report.Bytes()); err != nil {
		os.Exit(1)
	}

	if *copyOut {
		if err := clipboard.WriteAll(report.String()); err != nil {
			fmt.Fprintf(os.Stderr, "error: clipboard: %v\n", err)
			os.Exit(1)
		}
	}
}

func parseFrequencies(args []string) ([]float64, error) {
	if len(args) == 0 {
		return defaultFrequencies, nil
	}

	freqs := make([]float64, 0, len(args))
	for _, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil || f <= 0 || !core.IsFinite(f) {
			return nil, fmt.Errorf("invalid frequency %q", a)
		}

		freqs = append(freqs, f)
	}

	return freqs, nil
}

type sweepRow struct {
	phase  float64
	lfo    float64
	freqHz float64
	coeffs allpass.Coefficients
}

// sweep samples one LFO cycle at steps evenly spaced phases.
func sweep(ph *modulation.Phaser, steps int) []sweepRow {
	steps = max(steps, 1)

	lfo := modulation.LFO{
		Waveform:       ph.Waveform(),
		Amplitude:      ph.Amplitude(),
		Width:          ph.Width(),
		FrequencyHz:    ph.LFOFrequencyHz(),
		MinFrequencyHz: ph.MinFrequencyHz(),
	}

	limit := ph.MaxFrequencyHz()

	rows := make([]sweepRow, steps)
	for i := range rows {
		phase := float64(i) / float64(steps)
		v := lfo.Value(phase)
		freq := ph.BaseFrequencyHz() + lfo.Width*v
		rows[i] = sweepRow{
			phase:  phase,
			lfo:    v,
			freqHz: freq,
			coeffs: allpass.MakeAllPass(ph.SampleRate(), min(freq, limit)),
		}
	}

	return rows
}

func printSweep(w io.Writer, ph *modulation.Phaser, rows []sweepRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	_, err := fmt.Fprintf(tw, "Sweep: %s, %d stages, update every %d samples at %g Hz\n\n",
		ph.Waveform(), ph.Stages(), ph.UpdateInterval(), ph.SampleRate())
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(tw, "Phase\tLFO\tBreak [Hz]\tb0\ta1\n"); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(tw, "-----\t---\t----------\t--\t--\n"); err != nil {
		return err
	}

	for _, r := range rows {
		_, err := fmt.Fprintf(tw, "%.3f\t%.4f\t%.2f\t%.6f\t%.6f\n", r.phase, r.lfo, r.freqHz, r.coeffs.B0, r.coeffs.A1)
		if err != nil {
			return err
		}
	}

	return tw.Flush()
}

type responseRow struct {
	freqHz     float64
	phaseLoDeg float64
	phaseHiDeg float64
	magLoDB    float64
	measuredDB float64
}

// responseTable evaluates the cascade at the lowest and highest break
// frequency of the sweep and measures the mixed output of a freshly
// prepared phaser from its impulse response.
func responseTable(ph *modulation.Phaser, rows []sweepRow, freqs []float64, fftSize int) ([]responseRow, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		lo = min(lo, r.freqHz)
		hi = max(hi, r.freqHz)
	}

	bankLo, err := allpass.NewBank(ph.Stages())
	if err != nil {
		return nil, err
	}

	bankHi, err := allpass.NewBank(ph.Stages())
	if err != nil {
		return nil, err
	}

	bankLo.SetPerStageHistory(ph.PerStageHistory())
	bankHi.SetPerStageHistory(ph.PerStageHistory())
	bankLo.Update(ph.SampleRate(), lo)
	bankHi.Update(ph.SampleRate(), hi)

	err = ph.Prepare(core.ProcessorConfig{SampleRate: ph.SampleRate(), BlockSize: fftSize, NumChannels: 1})
	if err != nil {
		return nil, err
	}

	ir := make([]float64, fftSize)
	ir[0] = 1
	ph.Process([][]float64{ir})

	mags, err := response.MagnitudeDB(ir, fftSize)
	if err != nil {
		return nil, err
	}

	out := make([]responseRow, 0, len(freqs))
	for _, f := range freqs {
		measured, err := response.At(mags, f, fftSize, ph.SampleRate())
		if err != nil {
			return nil, err
		}

		out = append(out, responseRow{
			freqHz:     f,
			phaseLoDeg: bankLo.UnwrappedPhase(f, ph.SampleRate()) * 180 / math.Pi,
			phaseHiDeg: bankHi.UnwrappedPhase(f, ph.SampleRate()) * 180 / math.Pi,
			magLoDB:    bankLo.MagnitudeDB(f, ph.SampleRate()),
			measuredDB: measured,
		})
	}

	return out, nil
}

func printResponse(w io.Writer, rows []responseRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "Freq [Hz]\tPhase lo [deg]\tPhase hi [deg]\tCascade [dB]\tMeasured mix [dB]\n"); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(tw, "---------\t--------------\t--------------\t------------\t-----------------\n"); err != nil {
		return err
	}

	for _, r := range rows {
		_, err := fmt.Fprintf(tw, "%.1f\t%.2f\t%.2f\t%.4f\t%.2f\n", r.freqHz, r.phaseLoDeg, r.phaseHiDeg, r.magLoDB, r.measuredDB)
		if err != nil {
			return err
		}
	}

	return tw.Flush()
}
