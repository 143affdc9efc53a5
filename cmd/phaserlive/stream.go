package main

import (
	"github.com/cwbudde/algo-phaser/dsp/buffer"
	"github.com/cwbudde/algo-phaser/internal/host"
)

// streamProcessor bridges the float32 audio callback to the phaser.
type streamProcessor struct {
	proc       host.BlockProcessor
	block      *buffer.Block
	inChannels int
}

func newStreamProcessor(proc host.BlockProcessor, inChannels, frames int) *streamProcessor {
	return &streamProcessor{
		proc:       proc,
		block:      buffer.New(inChannels, frames),
		inChannels: inChannels,
	}
}

// process is the audio callback. Output channels without a matching input
// are cleared.
func (s *streamProcessor) process(in, out [][]float32) {
	s.block.LoadFloat32(in[:min(len(in), s.inChannels)])
	s.proc.Process(s.block.Channels())
	s.block.StoreFloat32(out)

	for ch := s.block.NumChannels(); ch < len(out); ch++ {
		clear(out[ch])
	}
}
