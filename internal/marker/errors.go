// Package marker builds the geometry of an annotation marker: a capped cone
// standing on a surface point along its normal, and the placement of the text
// label floating past the cone's tip.
//
// Every function here is a pure computation. Nothing is retained between
// calls, so the builder can be shared freely.
package marker

import "errors"

var (
	// ErrInvalidUnit is returned for a unit that is not in the scale table.
	ErrInvalidUnit = errors.New("invalid unit")

	// ErrInvalidGeometryInput is returned for non-positive sizes, a non-unit
	// normal or non-finite coordinates.
	ErrInvalidGeometryInput = errors.New("invalid geometry input")

	// ErrInvalidAppearance is returned for a negative emission strength or a
	// color channel outside [0,1].
	ErrInvalidAppearance = errors.New("invalid appearance")
)
