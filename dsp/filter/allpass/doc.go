// Package allpass provides first-order allpass filter design and the
// fixed-size cascade used by the phaser.
//
// [MakeAllPass] designs a bilinear-transform first-order allpass section.
// [Coefficients.Step] evaluates the three-term difference equation
//
//	y = B0*x + B1*xPrev + A1*yPrev
//
// A0 is carried for completeness (always 1) and never enters the step.
//
// A [Bank] holds the coefficients of N cascaded sections. Sections are
// stateless and the caller owns history: either the channel's previous
// input and previous cascade output passed as scalars to [Bank.Process], or
// one [State] per section passed to [Bank.ProcessStages].
//
// Shared history turns the cascade into a single recursion whose pole grows
// with the coefficient and the stage count, so [Bank.Update] caps the design
// frequency at [Bank.MaxFrequencyHz].
package allpass
