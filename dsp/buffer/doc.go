// Package buffer provides a reusable planar multi-channel block and a pool
// for allocation-friendly streaming. Processors accept raw [][]float64;
// Block is an optional convenience that owns the channel slices and converts
// to and from interleaved and float32 host formats.
package buffer
