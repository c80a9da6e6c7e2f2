package marker

import (
	"fmt"
	"math"

	"github.com/NotesGenerator/extension/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// PlaceLabel puts the label anchor offset past the tip along normal. The
// orientation hint is the normal itself; turning the text toward the camera
// is left to the host.
func PlaceLabel(tip, normal mgl64.Vec3, offset float64) (core.LabelPlacement, error) {
	if !finiteVec(tip) {
		return core.LabelPlacement{}, fmt.Errorf("%w: tip %v is not finite", ErrInvalidGeometryInput, tip)
	}
	if !finiteVec(normal) || !isUnit(normal) {
		return core.LabelPlacement{}, fmt.Errorf("%w: normal %v is not a unit vector", ErrInvalidGeometryInput, normal)
	}
	if offset < 0 || math.IsNaN(offset) || math.IsInf(offset, 0) {
		return core.LabelPlacement{}, fmt.Errorf("%w: label offset must be >= 0, got %v", ErrInvalidGeometryInput, offset)
	}
	return core.LabelPlacement{
		Anchor:          tip.Add(normal.Mul(offset)),
		OrientationHint: normal,
	}, nil
}
