// Package response measures the frequency response of a processor from its
// impulse response.
//
// The impulse response is zero-padded to an FFT size, transformed with
// algo-fft, and reduced to magnitudes with algo-vecmath. Only the
// non-negative frequency bins [0..fftSize/2] are returned.
package response
