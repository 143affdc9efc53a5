package host

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cwbudde/algo-phaser/dsp/buffer"
)

// BlockProcessor processes planar channels in place.
type BlockProcessor interface {
	Process(channels [][]float64)
}

var blockPool = buffer.NewPool()

// Render streams r through proc into w in blocks of blockSize frames and
// returns the number of frames written. The context is checked between
// blocks.
func Render(ctx context.Context, r BlockReader, w *WAVWriter, proc BlockProcessor, blockSize int) (int, error) {
	if blockSize <= 0 {
		return 0, fmt.Errorf("block size must be > 0: %d", blockSize)
	}

	if err := CheckLayout(r.NumChannels(), w.numChannels); err != nil {
		return 0, err
	}

	block := blockPool.Get(r.NumChannels(), blockSize)
	defer blockPool.Put(block)

	total := 0

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := r.ReadBlock(block, blockSize)
		if errors.Is(err, io.EOF) {
			return total, nil
		}

		if err != nil {
			return total, err
		}

		proc.Process(block.Channels())

		err = w.WriteBlock(block)
		if err != nil {
			return total, err
		}

		total += n
	}
}
