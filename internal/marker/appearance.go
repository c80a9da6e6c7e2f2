package marker

import (
	"fmt"
	"math"

	"github.com/NotesGenerator/extension/pkg/core"
)

// BuildEmissionAppearance describes the unlit emission material shared by the
// cone and its label. Markers never cast shadows.
func BuildEmissionAppearance(color core.RGBA, strength float64) (core.AppearanceSpec, error) {
	if strength < 0 || math.IsNaN(strength) || math.IsInf(strength, 0) {
		return core.AppearanceSpec{}, fmt.Errorf("%w: strength must be >= 0, got %v", ErrInvalidAppearance, strength)
	}
	for _, c := range []float64{color.R, color.G, color.B, color.A} {
		if c < 0 || c > 1 || math.IsNaN(c) {
			return core.AppearanceSpec{}, fmt.Errorf("%w: color %+v out of range", ErrInvalidAppearance, color)
		}
	}
	return core.AppearanceSpec{
		Color:       color,
		Strength:    strength,
		CastsShadow: false,
	}, nil
}
