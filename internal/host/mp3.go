package host

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cwbudde/algo-phaser/dsp/buffer"
	"github.com/hajimehoshi/go-mp3"
)

const (
	mp3Channels      = 2
	mp3BytesPerFrame = 2 * mp3Channels
)

// MP3Reader decodes an MP3 stream as stereo planar float64 blocks. The
// decoder always produces 16-bit stereo, mono files included.
type MP3Reader struct {
	dec *mp3.Decoder
	raw []byte
}

// NewMP3Reader starts decoding r.
func NewMP3Reader(r io.Reader) (*MP3Reader, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}

	return &MP3Reader{dec: dec}, nil
}

// NumChannels returns 2.
func (r *MP3Reader) NumChannels() int { return mp3Channels }

// SampleRate returns the sample rate in Hz.
func (r *MP3Reader) SampleRate() int { return r.dec.SampleRate() }

// BitDepth returns 16.
func (r *MP3Reader) BitDepth() int { return 16 }

// ReadBlock fills dst with up to frames frames. At the end of the stream it
// returns 0 and io.EOF.
func (r *MP3Reader) ReadBlock(dst *buffer.Block, frames int) (int, error) {
	if frames <= 0 {
		dst.Resize(mp3Channels, 0)
		return 0, nil
	}

	need := frames * mp3BytesPerFrame
	if cap(r.raw) < need {
		r.raw = make([]byte, need)
	}

	r.raw = r.raw[:need]

	n, err := io.ReadFull(r.dec, r.raw)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}

	got := n / mp3BytesPerFrame
	if got == 0 {
		dst.Resize(mp3Channels, 0)
		return 0, io.EOF
	}

	dst.Resize(mp3Channels, got)
	decodeInt16Stereo(dst, r.raw[:got*mp3BytesPerFrame])

	return got, nil
}

// decodeInt16Stereo converts interleaved little-endian int16 stereo frames
// into dst, which must already hold len(raw)/4 frames.
func decodeInt16Stereo(dst *buffer.Block, raw []byte) {
	left, right := dst.Channel(0), dst.Channel(1)

	for n := range len(raw) / mp3BytesPerFrame {
		off := n * mp3BytesPerFrame
		left[n] = float64(int16(binary.LittleEndian.Uint16(raw[off:]))) / 32768
		right[n] = float64(int16(binary.LittleEndian.Uint16(raw[off+2:]))) / 32768
	}
}
