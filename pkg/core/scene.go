package core

import "github.com/go-gl/mathgl/mgl64"

// ScreenPos is a pointer position in viewport region pixels.
type ScreenPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SurfaceHit is the result of the host's ray cast from a viewport position.
type SurfaceHit struct {
	Hit    bool       `json:"hit"`
	Point  mgl64.Vec3 `json:"point"`
	Normal mgl64.Vec3 `json:"normal"`
}

// EventType is the kind of input event delivered by the host.
type EventType string

const (
	EventLeftMouse  EventType = "LEFTMOUSE"
	EventRightMouse EventType = "RIGHTMOUSE"
	EventEscape     EventType = "ESC"
	EventMouseMove  EventType = "MOUSEMOVE"
)

// InputEvent is one event pushed from the host's input loop.
type InputEvent struct {
	Type EventType `json:"type"`
	Pos  ScreenPos `json:"pos"`
}

// Cursor is a viewport cursor icon.
type Cursor string

const (
	CursorDefault   Cursor = "DEFAULT"
	CursorCrosshair Cursor = "CROSSHAIR"
)

// ReportLevel is the severity of a user-visible message.
type ReportLevel string

const (
	ReportInfo    ReportLevel = "INFO"
	ReportWarning ReportLevel = "WARNING"
	ReportError   ReportLevel = "ERROR"
)

// Report is a user-visible message shown by the host.
type Report struct {
	Level   ReportLevel `json:"level"`
	Message string      `json:"message"`
}

// ObjectID identifies an object created in the host scene.
type ObjectID string

// ObjectKind distinguishes the objects a marker is made of.
type ObjectKind string

const (
	ObjectMesh ObjectKind = "MESH"
	ObjectText ObjectKind = "TEXT"
)

// TrackTo asks the host to keep an object facing the scene camera.
type TrackTo struct {
	TrackAxis  string `json:"trackAxis"`
	UpAxis     string `json:"upAxis"`
	UseTargetZ bool   `json:"useTargetZ"`
}

// SceneObject is everything the host needs to create one object.
type SceneObject struct {
	Kind          ObjectKind      `json:"kind"`
	Name          string          `json:"name"`
	MaterialName  string          `json:"materialName"`
	Appearance    AppearanceSpec  `json:"appearance"`
	Mesh          *ConeMesh       `json:"mesh,omitempty"`
	Label         *LabelPlacement `json:"label,omitempty"`
	TrackTo       *TrackTo        `json:"trackTo,omitempty"`
	VisibleShadow bool            `json:"visibleShadow"`
	Tags          map[string]bool `json:"tags,omitempty"`
}
