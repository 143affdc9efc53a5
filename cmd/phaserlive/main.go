// Command phaserlive runs the phaser on the default audio input and output.
//
// Usage:
//
//	phaserlive [flags]
//
// With -params, the JSON document is applied at start and again whenever
// the file changes, so parameters can be tweaked from an editor while
// audio runs.
//
// Examples:
//
//	phaserlive -depth 1 -lfo 0.3
//	phaserlive -in-channels 1 -out-channels 2 -params live.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/cwbudde/algo-phaser/dsp/core"
	"github.com/cwbudde/algo-phaser/dsp/effects/modulation"
	"github.com/cwbudde/algo-phaser/internal/host"
	"github.com/gordonklaus/portaudio"
	"golang.org/x/sync/errgroup"
)

func main() {
	sampleRate := flag.Float64("rate", 48000, "sample rate in Hz")
	frames := flag.Int("frames", 256, "frames per buffer")
	inChannels := flag.Int("in-channels", 2, "input channels (1 or 2)")
	outChannels := flag.Int("out-channels", 2, "output channels (>= input channels)")
	paramsFile := flag.String("params", "", "JSON parameter file, reapplied on change")
	stages := flag.Int("stages", 2, "number of allpass stages (1-12)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	params := host.BindFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: phaserlive [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the phaser between the default audio input and output.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger, err := host.NewLogger(os.Stderr, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	cli, err := params()
	if err != nil {
		logger.Error("invalid flags", slog.Any("err", err))
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := liveConfig{
		sampleRate:  *sampleRate,
		frames:      *frames,
		inChannels:  *inChannels,
		outChannels: *outChannels,
		paramsFile:  *paramsFile,
		stages:      *stages,
		params:      cli,
	}

	if err := run(ctx, logger, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stream failed", slog.Any("err", err))
		os.Exit(1)
	}
}

type liveConfig struct {
	sampleRate  float64
	frames      int
	inChannels  int
	outChannels int
	paramsFile  string
	stages      int
	params      host.Params
}

func (c liveConfig) validate() error {
	if !host.SupportsLayout(c.inChannels, c.inChannels) || c.outChannels < c.inChannels {
		return fmt.Errorf("%w: %d in, %d out", host.ErrUnsupportedLayout, c.inChannels, c.outChannels)
	}

	if c.frames <= 0 {
		return fmt.Errorf("frames per buffer must be > 0: %d", c.frames)
	}

	return nil
}

func run(ctx context.Context, logger *slog.Logger, cfg liveConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	ph, err := modulation.NewPhaser(cfg.sampleRate, modulation.WithPhaserStages(cfg.stages))
	if err != nil {
		return err
	}

	sink := host.PhaserSink{Phaser: ph}

	if err := host.ApplyParams(sink, cfg.params); err != nil {
		return err
	}

	err = ph.Prepare(core.ProcessorConfig{
		SampleRate:  cfg.sampleRate,
		BlockSize:   cfg.frames,
		NumChannels: cfg.inChannels,
	})
	if err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	proc := newStreamProcessor(ph, cfg.inChannels, cfg.frames)

	stream, err := portaudio.OpenDefaultStream(cfg.inChannels, cfg.outChannels, cfg.sampleRate, cfg.frames, proc.process)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.paramsFile != "" {
		path, err := host.ExpandPath(cfg.paramsFile)
		if err != nil {
			return err
		}

		w, err := host.NewWatcher(path, sink)
		if err != nil {
			return err
		}

		w.OnApply = func(p host.Params) {
			logger.Info("parameters applied", slog.String("path", w.Path()), slog.Int("entries", p.Len()))
		}
		w.OnError = func(err error) {
			logger.Warn("parameter file", slog.Any("err", err))
		}

		g.Go(func() error {
			if err := w.Run(gctx); err != nil {
				return fmt.Errorf("parameter watcher: %w", err)
			}

			return nil
		})
	}

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}

	logger.Info("streaming",
		slog.Float64("sampleRate", cfg.sampleRate),
		slog.Int("frames", cfg.frames),
		slog.Int("in", cfg.inChannels),
		slog.Int("out", cfg.outChannels),
	)

	g.Go(func() error {
		<-gctx.Done()

		if err := stream.Stop(); err != nil {
			return fmt.Errorf("stop stream: %w", err)
		}

		logger.Info("stopped")

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}
