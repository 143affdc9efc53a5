package core

import "fmt"

// ProcessorConfig defines the stream settings a processor is prepared for.
type ProcessorConfig struct {
	SampleRate  float64
	BlockSize   int
	NumChannels int
}

// ProcessorOption mutates a ProcessorConfig.
type ProcessorOption func(*ProcessorConfig)

// DefaultProcessorConfig returns a stereo 44.1 kHz configuration.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate:  44100,
		BlockSize:   512,
		NumChannels: 2,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		cfg.SampleRate = sampleRate
	}
}

// WithBlockSize sets the maximum processing block size.
func WithBlockSize(blockSize int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		cfg.BlockSize = blockSize
	}
}

// WithNumChannels sets the number of channels processed per block.
func WithNumChannels(numChannels int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		cfg.NumChannels = numChannels
	}
}

// ApplyProcessorOptions applies zero or more options to the default config.
// The result is not validated; call Validate before use.
func ApplyProcessorOptions(opts ...ProcessorOption) ProcessorConfig {
	cfg := DefaultProcessorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Validate reports the first invalid field of cfg.
func (cfg ProcessorConfig) Validate() error {
	if cfg.SampleRate <= 0 || !IsFinite(cfg.SampleRate) {
		return fmt.Errorf("sample rate must be > 0 and finite: %f", cfg.SampleRate)
	}

	if cfg.BlockSize <= 0 {
		return fmt.Errorf("block size must be > 0: %d", cfg.BlockSize)
	}

	if cfg.NumChannels <= 0 {
		return fmt.Errorf("channel count must be > 0: %d", cfg.NumChannels)
	}

	return nil
}
