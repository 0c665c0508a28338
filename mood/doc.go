// Package mood turns per-model emotion distributions into one mood decision.
//
// Engine.Resolve runs the ensemble crying-bias check, then a majority vote over
// mapped mood categories, then clamps the confidence. With a single model only
// the per-model bias check applies. Nothing here does I/O.
package mood
