package host

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-phaser/dsp/buffer"
	"github.com/mitchellh/go-homedir"
)

// BlockReader yields planar blocks until io.EOF.
type BlockReader interface {
	NumChannels() int
	ReadBlock(dst *buffer.Block, frames int) (int, error)
}

// Source is a decoded audio input.
type Source interface {
	BlockReader
	SampleRate() int
	BitDepth() int
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}

	return expanded, nil
}

// OpenSource opens path as WAV or, by extension, MP3. The returned closer
// releases the file.
func OpenSource(path string) (Source, io.Closer, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	var src Source

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		src, err = NewMP3Reader(f)
	default:
		src, err = NewWAVReader(f)
	}

	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	return src, f, nil
}
