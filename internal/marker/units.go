package marker

import (
	"fmt"
	"strings"

	"github.com/NotesGenerator/extension/pkg/core"
)

// scaleFactors maps each unit to its size in meters.
var scaleFactors = map[core.Unit]float64{
	core.UnitMillimeter: 0.001,
	core.UnitCentimeter: 0.01,
	core.UnitDecimeter:  0.1,
	core.UnitMeter:      1,
	core.UnitDecameter:  10,
	core.UnitHectometer: 100,
	core.UnitKilometer:  1000,
}

// ScaleFactor returns the multiplier converting a length in unit u to meters.
func ScaleFactor(u core.Unit) (float64, error) {
	f, ok := scaleFactors[u]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, string(u))
	}
	return f, nil
}

// ParseUnit parses a unit symbol such as "cm" or "DAM".
func ParseUnit(s string) (core.Unit, error) {
	u := core.Unit(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := scaleFactors[u]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidUnit, s)
	}
	return u, nil
}

// ScaleParameters converts raw form dimensions to meters. The factor is
// applied exactly once to each of the four sizes.
func ScaleParameters(raw core.Dimensions, u core.Unit) (core.Dimensions, error) {
	f, err := ScaleFactor(u)
	if err != nil {
		return core.Dimensions{}, err
	}
	return core.Dimensions{
		Length:      raw.Length * f,
		Thickness:   raw.Thickness * f,
		LabelSize:   raw.LabelSize * f,
		LabelOffset: raw.LabelOffset * f,
	}, nil
}
