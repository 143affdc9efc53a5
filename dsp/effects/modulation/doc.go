// Package modulation provides the phaser effect and the LFO that drives it.
//
// A Phaser runs each channel through a cascade of first-order allpass
// sections whose break frequency follows an LFO, then blends the result
// with the dry input. Coefficients are recomputed every few samples (about
// 10 kHz worth of updates) from a sample counter shared by all channels, so
// channels stay in lockstep.
//
// Waveforms:
//   - TriangleExp: log(minFreq) + log(width)*Triangle(phase, amp).
//   - Square: amp for the first half of the cycle, 0 for the second.
//   - Sine: amp*sin(2*pi*lfoFreq + phase).
//
// Parameter setters are safe to call while another goroutine processes.
// Prepare, SetSampleRate and Reset reconfigure the stream and are not.
package modulation
