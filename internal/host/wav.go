package host

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cwbudde/algo-phaser/dsp/buffer"
	"github.com/cwbudde/algo-phaser/dsp/core"
	"github.com/cwbudde/algo-vecmath"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// ErrUnsupportedFormat is returned for audio streams the adapters cannot
// convert.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

func validBitDepth(bitDepth int) bool {
	return bitDepth == 16 || bitDepth == 24 || bitDepth == 32
}

func fullScale(bitDepth int) float64 {
	return float64(int64(1) << (bitDepth - 1))
}

// WAVReader streams integer PCM from a WAV file as planar float64 blocks in
// [-1, 1).
type WAVReader struct {
	dec         *wav.Decoder
	pcm         *audio.IntBuffer
	pending     []int
	scale       float64
	numChannels int
	sampleRate  int
	bitDepth    int
}

// NewWAVReader validates the header of r and prepares block reads.
func NewWAVReader(r io.ReadSeeker) (*WAVReader, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
		}

		return nil, fmt.Errorf("%w: invalid header", ErrUnsupportedFormat)
	}

	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: audio format %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	bitDepth := int(dec.BitDepth)
	if !validBitDepth(bitDepth) {
		return nil, fmt.Errorf("%w: %d-bit", ErrUnsupportedFormat, bitDepth)
	}

	return &WAVReader{
		dec:         dec,
		pcm:         &audio.IntBuffer{Format: dec.Format(), SourceBitDepth: bitDepth},
		scale:       1 / fullScale(bitDepth),
		numChannels: int(dec.NumChans),
		sampleRate:  int(dec.SampleRate),
		bitDepth:    bitDepth,
	}, nil
}

// NumChannels returns the channel count of the stream.
func (r *WAVReader) NumChannels() int { return r.numChannels }

// SampleRate returns the sample rate in Hz.
func (r *WAVReader) SampleRate() int { return r.sampleRate }

// BitDepth returns the PCM bit depth.
func (r *WAVReader) BitDepth() int { return r.bitDepth }

// ReadBlock fills dst with up to frames frames and returns the number read.
// dst is resized to the frame count actually read. At the end of the stream
// it returns 0 and io.EOF.
func (r *WAVReader) ReadBlock(dst *buffer.Block, frames int) (int, error) {
	want := frames * r.numChannels
	if want <= 0 {
		dst.Resize(r.numChannels, 0)
		return 0, nil
	}

	for len(r.pending) < want {
		if cap(r.pcm.Data) < want {
			r.pcm.Data = make([]int, want)
		}

		r.pcm.Data = r.pcm.Data[:want]

		n, err := r.dec.PCMBuffer(r.pcm)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("read wav pcm: %w", err)
		}

		if n == 0 {
			break
		}

		r.pending = append(r.pending, r.pcm.Data[:n]...)
	}

	got := min(want, len(r.pending)) / r.numChannels
	if got == 0 {
		dst.Resize(r.numChannels, 0)
		return 0, io.EOF
	}

	dst.Resize(r.numChannels, got)

	for ch, samples := range dst.Channels() {
		for n := range samples {
			samples[n] = float64(r.pending[n*r.numChannels+ch]) * r.scale
		}
	}

	r.pending = r.pending[:copy(r.pending, r.pending[got*r.numChannels:])]

	return got, nil
}

// WAVWriter encodes planar float64 blocks as integer PCM.
type WAVWriter struct {
	enc         *wav.Encoder
	pcm         *audio.IntBuffer
	scratch     []float64
	gain        float64
	peak        float64
	clipped     int
	numChannels int
	fullScale   float64
}

// NewWAVWriter starts a PCM WAV stream on w.
func NewWAVWriter(w io.WriteSeeker, sampleRate, bitDepth, numChannels int) (*WAVWriter, error) {
	if !validBitDepth(bitDepth) {
		return nil, fmt.Errorf("%w: %d-bit", ErrUnsupportedFormat, bitDepth)
	}

	if sampleRate <= 0 || numChannels <= 0 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrUnsupportedFormat, sampleRate, numChannels)
	}

	return &WAVWriter{
		enc: wav.NewEncoder(w, sampleRate, bitDepth, numChannels, wavFormatPCM),
		pcm: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: numChannels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
		gain:        1,
		numChannels: numChannels,
		fullScale:   fullScale(bitDepth),
	}, nil
}

// unityGain reports whether gain is 1 to within rounding of the dB
// conversion, in which case trim is skipped.
func unityGain(gain float64) bool {
	return core.NearlyEqual(gain, 1, 1e-12)
}

// SetGainDB sets an output trim applied before conversion.
func (w *WAVWriter) SetGainDB(db float64) {
	w.gain = core.DBToLinear(db)
}

// Peak returns the largest absolute sample written so far, after trim.
func (w *WAVWriter) Peak() float64 { return w.peak }

// Clipped returns the number of samples that were clipped to full scale.
func (w *WAVWriter) Clipped() int { return w.clipped }

// WriteBlock converts and encodes one block. Its channel count must match
// the writer's.
func (w *WAVWriter) WriteBlock(b *buffer.Block) error {
	if b.NumChannels() != w.numChannels {
		return fmt.Errorf("%w: block has %d channels, writer %d", ErrUnsupportedLayout, b.NumChannels(), w.numChannels)
	}

	frames := b.Frames()
	if frames == 0 {
		return nil
	}

	total := frames * w.numChannels
	if cap(w.pcm.Data) < total {
		w.pcm.Data = make([]int, total)
	}

	w.pcm.Data = w.pcm.Data[:total]

	maxInt := w.fullScale - 1
	minInt := -w.fullScale

	for ch, samples := range b.Channels() {
		w.scratch = core.EnsureLen(w.scratch, len(samples))
		core.CopyInto(w.scratch, samples)
		if !unityGain(w.gain) {
			vecmath.ScaleBlockInPlace(w.scratch, w.gain)
		}

		w.peak = max(w.peak, vecmath.MaxAbs(w.scratch))

		for n, v := range w.scratch {
			s := math.Round(v * w.fullScale)
			if s > maxInt || s < minInt || math.IsNaN(s) {
				w.clipped++

				if math.IsNaN(s) {
					s = 0
				}

				s = min(max(s, minInt), maxInt)
			}

			w.pcm.Data[n*w.numChannels+ch] = int(s)
		}
	}

	err := w.enc.Write(w.pcm)
	if err != nil {
		return fmt.Errorf("write wav pcm: %w", err)
	}

	return nil
}

// Close finalizes the WAV header. It does not close the underlying writer.
func (w *WAVWriter) Close() error {
	return w.enc.Close()
}
