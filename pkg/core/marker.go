package core

import "github.com/go-gl/mathgl/mgl64"

// Unit is a metric length unit selectable on the annotation form.
type Unit string

const (
	UnitMillimeter Unit = "MM"
	UnitCentimeter Unit = "CM"
	UnitDecimeter  Unit = "DM"
	UnitMeter      Unit = "M"
	UnitDecameter  Unit = "DAM"
	UnitHectometer Unit = "HM"
	UnitKilometer  Unit = "KM"
)

// Units lists every supported unit from smallest to largest.
var Units = []Unit{
	UnitMillimeter,
	UnitCentimeter,
	UnitDecimeter,
	UnitMeter,
	UnitDecameter,
	UnitHectometer,
	UnitKilometer,
}

// Dimensions are the size parameters of a marker, either raw (in the
// selected unit) or scaled to meters.
type Dimensions struct {
	Length      float64 `json:"length"`
	Thickness   float64 `json:"thickness"`
	LabelSize   float64 `json:"labelSize"`
	LabelOffset float64 `json:"labelOffset"`
}

// MarkerRequest is built once per click from the hit point and the form values.
type MarkerRequest struct {
	Origin     mgl64.Vec3 `json:"origin"`
	Normal     mgl64.Vec3 `json:"normal"`
	Dimensions Dimensions `json:"dimensions"`
	Label      string     `json:"label"`
	Unit       Unit       `json:"unit"`
	// Segments is the ring resolution of the cone; zero means the default.
	Segments int `json:"segments,omitempty"`
}

// Face is a polygon given as indices into ConeMesh.Vertices, wound
// counter-clockwise when seen from outside the solid.
type Face []int

// ConeMesh is a closed capped-cylinder mesh in scene coordinates.
type ConeMesh struct {
	Vertices []mgl64.Vec3 `json:"vertices"`
	Faces    []Face       `json:"faces"`
}

// VertexCount returns the number of vertices.
func (m *ConeMesh) VertexCount() int {
	return len(m.Vertices)
}

// FaceCount returns the number of faces.
func (m *ConeMesh) FaceCount() int {
	return len(m.Faces)
}

// IsEmpty returns true if the mesh has no geometry.
func (m *ConeMesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// LabelPlacement positions the text object of a marker. Camera-relative
// rotation is resolved by the host through a track-to constraint.
type LabelPlacement struct {
	Text            string     `json:"text"`
	Size            float64    `json:"size"`
	Anchor          mgl64.Vec3 `json:"anchor"`
	OrientationHint mgl64.Vec3 `json:"orientationHint"`
}

// RGBA is a linear color with channels in [0,1].
type RGBA struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// AppearanceSpec describes an emission-only material for the host to realize.
type AppearanceSpec struct {
	Color       RGBA    `json:"color"`
	Strength    float64 `json:"strength"`
	CastsShadow bool    `json:"castsShadow"`
}

// MarkerGeometry is the output of the marker builder. Once handed to the
// host the extension keeps no reference to it.
type MarkerGeometry struct {
	Cone     ConeMesh       `json:"cone"`
	Tip      mgl64.Vec3     `json:"tip"`
	Label    LabelPlacement `json:"label"`
	Scaled   Dimensions     `json:"scaled"`
	Rotation mgl64.Quat     `json:"rotation"`
}
