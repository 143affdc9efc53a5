// Command phaser renders a WAV or MP3 file through the phaser. The output is
// always WAV; MP3 input renders as 16-bit stereo.
//
// Usage:
//
//	phaser -in in.wav -out out.wav [flags]
//
// Parameters come from flags, optionally layered over a JSON document given
// with -params. Flags that are set win over the document.
//
// Examples:
//
//	phaser -in guitar.wav -out wet.wav -depth 1 -lfo 0.4
//	phaser -in pad.wav -out pad-phased.wav -params slow.json -stages 6
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/cwbudde/algo-phaser/dsp/core"
	"github.com/cwbudde/algo-phaser/dsp/effects/modulation"
	"github.com/cwbudde/algo-phaser/internal/host"
)

func main() {
	in := flag.String("in", "", "input file: WAV (16, 24 or 32-bit PCM, mono or stereo) or MP3")
	out := flag.String("out", "", "output WAV file")
	block := flag.Int("block", 512, "processing block size in frames")
	paramsFile := flag.String("params", "", "JSON parameter document")
	stages := flag.Int("stages", 2, "number of allpass stages (1-12)")
	perStage := flag.Bool("per-stage", false, "give every allpass stage its own history")
	gainDB := flag.Float64("gain", 0, "output trim in dB")
	bitDepth := flag.Int("bits", 0, "output bit depth (default: same as input)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	params := host.BindFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: phaser -in in.wav -out out.wav [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Renders a WAV or MP3 file through an LFO-swept allpass phaser.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger, err := host.NewLogger(os.Stderr, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	cli, err := params()
	if err != nil {
		logger.Error("invalid flags", slog.Any("err", err))
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := renderConfig{
		in:       *in,
		out:      *out,
		block:    *block,
		params:   cli,
		stages:   *stages,
		perStage: *perStage,
		gainDB:   *gainDB,
		bitDepth: *bitDepth,
	}

	if *paramsFile != "" {
		path, err := host.ExpandPath(*paramsFile)
		if err != nil {
			logger.Error("parameter file path", slog.Any("err", err))
			os.Exit(1)
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Error("read parameter file", slog.Any("err", err))
			os.Exit(1)
		}

		doc, err := host.ParseParams(raw)
		if err != nil {
			logger.Error("parse parameter file", slog.String("path", *paramsFile), slog.Any("err", err))
			os.Exit(1)
		}

		cfg.params = doc.Merge(cli)
	}

	if err := run(ctx, logger, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("interrupted")
			os.Exit(130)
		}

		logger.Error("render failed", slog.Any("err", err))
		os.Exit(1)
	}
}

type renderConfig struct {
	in, out  string
	block    int
	params   host.Params
	stages   int
	perStage bool
	gainDB   float64
	bitDepth int
}

func run(ctx context.Context, logger *slog.Logger, cfg renderConfig) error {
	r, closer, err := host.OpenSource(cfg.in)
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := host.CheckLayout(r.NumChannels(), r.NumChannels()); err != nil {
		return fmt.Errorf("%s: %w", cfg.in, err)
	}

	sampleRate := float64(r.SampleRate())

	opts := []modulation.PhaserOption{modulation.WithPhaserStages(cfg.stages)}
	if cfg.perStage {
		opts = append(opts, modulation.WithPhaserPerStageHistory())
	}

	ph, err := modulation.NewPhaser(sampleRate, opts...)
	if err != nil {
		return err
	}

	if err := host.ApplyParams(host.PhaserSink{Phaser: ph}, cfg.params); err != nil {
		return err
	}

	err = ph.Prepare(core.ApplyProcessorOptions(
		core.WithSampleRate(sampleRate),
		core.WithBlockSize(cfg.block),
		core.WithNumChannels(r.NumChannels()),
	))
	if err != nil {
		return err
	}

	logger.Debug("phaser ready",
		slog.Float64("sampleRate", ph.SampleRate()),
		slog.Int("channels", ph.NumChannels()),
		slog.Int("stages", ph.Stages()),
		slog.Int("updateInterval", ph.UpdateInterval()),
		slog.String("waveform", ph.Waveform().String()),
		slog.Float64("depth", ph.Depth()),
		slog.Float64("feedback", ph.Feedback()),
		slog.Float64("lfo", ph.LFOFrequencyHz()),
		slog.Float64("base", ph.BaseFrequencyHz()),
	)

	outPath, err := host.ExpandPath(cfg.out)
	if err != nil {
		return err
	}

	dst, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	bits := cfg.bitDepth
	if bits == 0 {
		bits = r.BitDepth()
	}

	w, err := host.NewWAVWriter(dst, r.SampleRate(), bits, r.NumChannels())
	if err != nil {
		return err
	}

	w.SetGainDB(cfg.gainDB)

	start := time.Now()

	frames, err := host.Render(ctx, r, w, ph, cfg.block)
	if err != nil {
		_ = w.Close()
		return err
	}

	if err := w.Close(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	logger.Info("rendered",
		slog.String("in", cfg.in),
		slog.String("out", cfg.out),
		slog.Int("frames", frames),
		slog.Duration("audio", time.Duration(float64(frames)/sampleRate*float64(time.Second))),
		slog.Duration("elapsed", elapsed),
		slog.Float64("peakDB", core.LinearToDB(w.Peak())),
	)

	if w.Clipped() > 0 {
		logger.Warn("output clipped", slog.Int("samples", w.Clipped()))
	}

	return nil
}
