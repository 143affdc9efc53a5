package host

import (
	"errors"
	"fmt"
)

// ErrUnsupportedLayout is returned for channel layouts the phaser does not
// accept.
var ErrUnsupportedLayout = errors.New("unsupported channel layout")

// ProcessorInfo describes a processor to a host.
type ProcessorInfo struct {
	Name         string
	TailSeconds  float64
	Programs     []string
	AcceptsMIDI  bool
	ProducesMIDI bool
}

// Info describes the phaser. It has no tail and a single program.
var Info = ProcessorInfo{
	Name:        "Phaser",
	TailSeconds: 0,
	Programs:    []string{"Default"},
}

// SupportsLayout reports whether the phaser accepts in input and out output
// channels: mono or stereo, with matching counts.
func SupportsLayout(in, out int) bool {
	return in == out && (in == 1 || in == 2)
}

// CheckLayout returns ErrUnsupportedLayout wrapped with the offending
// channel counts.
func CheckLayout(in, out int) error {
	if !SupportsLayout(in, out) {
		return fmt.Errorf("%w: %d in, %d out", ErrUnsupportedLayout, in, out)
	}

	return nil
}
