package host

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-phaser/dsp/buffer"
	"github.com/cwbudde/algo-phaser/dsp/core"
	"github.com/cwbudde/algo-phaser/dsp/effects/modulation"
	"github.com/cwbudde/algo-phaser/internal/testutil"
)

type gainProcessor struct {
	gain   float64
	blocks int
}

func (g *gainProcessor) Process(channels [][]float64) {
	g.blocks++

	for _, ch := range channels {
		for i := range ch {
			ch[i] *= g.gain
		}
	}
}

func renderToFile(t *testing.T, in string, proc BlockProcessor, blockSize int) (string, int) {
	t.Helper()

	r := openTestWAV(t, in)
	outPath := filepath.Join(t.TempDir(), "out.wav")

	f, err := os.Create(outPath)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer f.Close()

	w, err := NewWAVWriter(f, r.SampleRate(), r.BitDepth(), r.NumChannels())
	if err != nil {
		t.Fatalf("NewWAVWriter() error = %v", err)
	}

	n, err := Render(context.Background(), r, w, proc, blockSize)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	return outPath, n
}

func readAll(t *testing.T, path string) *buffer.Block {
	t.Helper()

	r := openTestWAV(t, path)
	out := make([][]float64, r.NumChannels())
	block := buffer.New(0, 0)

	for {
		n, err := r.ReadBlock(block, 256)
		if n == 0 || err != nil {
			break
		}

		for ch := range out {
			out[ch] = append(out[ch], block.Channel(ch)...)
		}
	}

	return buffer.FromChannels(out)
}

func TestRenderAppliesProcessor(t *testing.T) {
	in := testutil.DeterministicSine(220, 44100, 0.5, 1000)
	path := writeTestWAV(t, 44100, in)

	proc := &gainProcessor{gain: 0.5}

	out, n := renderToFile(t, path, proc, 128)
	if n != 1000 {
		t.Fatalf("Render() = %d frames, want 1000", n)
	}

	if proc.blocks != 8 {
		t.Fatalf("processor saw %d blocks, want 8", proc.blocks)
	}

	got := readAll(t, out)

	want := make([]float64, len(in))
	for i, v := range in {
		want[i] = 0.5 * v
	}

	testutil.RequireSliceNearlyEqual(t, got.Channel(0), want, 2.0/32768)
}

func TestRenderPhaserDepthZero(t *testing.T) {
	left := testutil.DeterministicNoise(8, 0.5, 700)
	right := testutil.DeterministicSine(1000, 48000, 0.5, 700)
	path := writeTestWAV(t, 48000, left, right)

	ph, err := modulation.NewPhaser(48000, modulation.WithPhaserDepth(0))
	if err != nil {
		t.Fatalf("NewPhaser() error = %v", err)
	}

	err = ph.Prepare(core.ProcessorConfig{SampleRate: 48000, BlockSize: 64, NumChannels: 2})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	out, _ := renderToFile(t, path, ph, 64)
	got := readAll(t, out)
	orig := readAll(t, path)

	testutil.RequireSliceEqual(t, got.Channel(0), orig.Channel(0))
	testutil.RequireSliceEqual(t, got.Channel(1), orig.Channel(1))
}

func TestRenderStopsOnCancel(t *testing.T) {
	path := writeTestWAV(t, 44100, make([]float64, 512))
	r := openTestWAV(t, path)

	f, err := os.Create(filepath.Join(t.TempDir(), "out.wav"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer f.Close()

	w, err := NewWAVWriter(f, 44100, 16, 1)
	if err != nil {
		t.Fatalf("NewWAVWriter() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := Render(ctx, r, w, &gainProcessor{gain: 1}, 64)
	if !errors.Is(err, context.Canceled) || n != 0 {
		t.Fatalf("Render() = %d, %v; want 0, context.Canceled", n, err)
	}
}

func TestRenderRejectsBadArguments(t *testing.T) {
	path := writeTestWAV(t, 44100, make([]float64, 16))
	r := openTestWAV(t, path)

	f, err := os.Create(filepath.Join(t.TempDir(), "out.wav"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer f.Close()

	w, err := NewWAVWriter(f, 44100, 16, 2)
	if err != nil {
		t.Fatalf("NewWAVWriter() error = %v", err)
	}

	if _, err := Render(context.Background(), r, w, &gainProcessor{}, 0); err == nil {
		t.Fatal("zero block size expected error")
	}

	if _, err := Render(context.Background(), r, w, &gainProcessor{}, 8); !errors.Is(err, ErrUnsupportedLayout) {
		t.Fatalf("mono to stereo error = %v", err)
	}
}
