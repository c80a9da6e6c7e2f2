package marker

import (
	"fmt"

	"github.com/NotesGenerator/extension/pkg/core"
)

// Build turns a request into complete marker geometry: the sizes are scaled
// to meters, the cone is built on the hit point and the label is placed
// length*labelOffset past the tip.
func Build(req core.MarkerRequest) (core.MarkerGeometry, error) {
	scaled, err := ScaleParameters(req.Dimensions, req.Unit)
	if err != nil {
		return core.MarkerGeometry{}, err
	}
	if !finitePositive(scaled.LabelSize) {
		return core.MarkerGeometry{}, fmt.Errorf("%w: label size must be > 0, got %v", ErrInvalidGeometryInput, scaled.LabelSize)
	}

	segments := req.Segments
	if segments == 0 {
		segments = DefaultSegments
	}

	cone, tip, err := BuildCone(req.Origin, req.Normal, scaled.Length, scaled.Thickness, segments)
	if err != nil {
		return core.MarkerGeometry{}, err
	}

	label, err := PlaceLabel(tip, req.Normal, scaled.Length*scaled.LabelOffset)
	if err != nil {
		return core.MarkerGeometry{}, err
	}
	label.Text = req.Label
	label.Size = scaled.LabelSize

	rotation, err := TrackQuat(req.Normal)
	if err != nil {
		return core.MarkerGeometry{}, err
	}

	return core.MarkerGeometry{
		Cone:     cone,
		Tip:      tip,
		Label:    label,
		Scaled:   scaled,
		Rotation: rotation,
	}, nil
}
