package buffer

import "github.com/cwbudde/algo-phaser/dsp/core"

// Block is a planar multi-channel buffer: one slice per channel, all of the
// same length.
type Block struct {
	channels [][]float64
}

// New returns a zero-filled Block with numChannels channels of frames
// samples. Negative sizes are treated as zero.
func New(numChannels, frames int) *Block {
	b := &Block{}
	b.Resize(numChannels, frames)
	return b
}

// FromChannels wraps existing channel slices without copying. The frame
// count is that of the shortest channel.
func FromChannels(channels [][]float64) *Block {
	frames := -1
	for _, ch := range channels {
		if frames < 0 || len(ch) < frames {
			frames = len(ch)
		}
	}
	if frames < 0 {
		frames = 0
	}

	b := &Block{channels: make([][]float64, len(channels))}
	for i, ch := range channels {
		b.channels[i] = ch[:frames]
	}
	return b
}

// Channels returns the channel slices. Mutations are visible through the
// Block.
func (b *Block) Channels() [][]float64 {
	return b.channels
}

// Channel returns channel i.
func (b *Block) Channel(i int) []float64 {
	return b.channels[i]
}

// NumChannels returns the number of channels.
func (b *Block) NumChannels() int {
	return len(b.channels)
}

// Frames returns the number of samples per channel.
func (b *Block) Frames() int {
	if len(b.channels) == 0 {
		return 0
	}
	return len(b.channels[0])
}

// Resize sets the shape, reusing existing capacity when possible.
// Samples that become visible are zeroed.
func (b *Block) Resize(numChannels, frames int) {
	if numChannels < 0 {
		numChannels = 0
	}
	if frames < 0 {
		frames = 0
	}

	oldChannels := len(b.channels)
	if numChannels <= cap(b.channels) {
		b.channels = b.channels[:numChannels]
	} else {
		grown := make([][]float64, numChannels)
		copy(grown, b.channels)
		b.channels = grown
	}

	for i, ch := range b.channels {
		oldLen := len(ch)
		if i >= oldChannels {
			oldLen = 0
		}
		if frames <= cap(ch) {
			ch = ch[:frames]
		} else {
			s := make([]float64, frames)
			copy(s, ch)
			ch = s
		}
		// The backing array may hold stale data from earlier use.
		for j := oldLen; j < frames; j++ {
			ch[j] = 0
		}
		b.channels[i] = ch
	}
}

// Zero sets every sample to 0.
func (b *Block) Zero() {
	for _, ch := range b.channels {
		core.Zero(ch)
	}
}

// Deinterleave resizes b to numChannels channels and fills it from
// interleaved frames in src. A trailing partial frame is ignored.
func (b *Block) Deinterleave(src []float64, numChannels int) {
	if numChannels <= 0 {
		b.Resize(0, 0)
		return
	}

	frames := len(src) / numChannels
	b.Resize(numChannels, frames)

	for ch, dst := range b.channels {
		for n := range dst {
			dst[n] = src[n*numChannels+ch]
		}
	}
}

// Interleave writes b into dst as interleaved frames and returns the number
// of frames written, bounded by len(dst).
func (b *Block) Interleave(dst []float64) int {
	numChannels := len(b.channels)
	if numChannels == 0 {
		return 0
	}

	frames := min(b.Frames(), len(dst)/numChannels)
	for ch, src := range b.channels {
		for n := range frames {
			dst[n*numChannels+ch] = src[n]
		}
	}
	return frames
}

// LoadFloat32 resizes b to match src and converts it to float64.
func (b *Block) LoadFloat32(src [][]float32) {
	frames := 0
	if len(src) > 0 {
		frames = len(src[0])
		for _, ch := range src[1:] {
			frames = min(frames, len(ch))
		}
	}

	b.Resize(len(src), frames)
	for ch, dst := range b.channels {
		for n := range dst {
			dst[n] = float64(src[ch][n])
		}
	}
}

// StoreFloat32 converts b into dst channel by channel. Destination channels
// beyond b's channel count are left untouched.
func (b *Block) StoreFloat32(dst [][]float32) {
	for ch := range min(len(dst), len(b.channels)) {
		src := b.channels[ch]
		out := dst[ch]
		for n := range min(len(out), len(src)) {
			out[n] = float32(src[n])
		}
	}
}

// Copy returns a deep copy of the block.
func (b *Block) Copy() *Block {
	c := &Block{channels: make([][]float64, len(b.channels))}
	for i, ch := range b.channels {
		c.channels[i] = append([]float64(nil), ch...)
	}
	return c
}
