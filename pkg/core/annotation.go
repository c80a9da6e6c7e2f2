package core

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Annotation is the record kept for every marker placed in a scene.
type Annotation struct {
	ID          uint           `json:"id"`
	Name        string         `json:"name"`
	SceneName   string         `json:"sceneName"`
	Text        string         `json:"text"`
	Unit        Unit           `json:"unit"`
	Raw         Dimensions     `json:"raw"`
	Scaled      Dimensions     `json:"scaled"`
	Origin      mgl64.Vec3     `json:"origin"`
	Normal      mgl64.Vec3     `json:"normal"`
	Tip         mgl64.Vec3     `json:"tip"`
	LabelAnchor mgl64.Vec3     `json:"labelAnchor"`
	Appearance  AppearanceSpec `json:"appearance"`
	Oriented    bool           `json:"oriented"`
	ObjectIDs   []ObjectID     `json:"objectIds"`
	// Geographic position of the origin when the scene is georeferenced.
	Longitude *float64  `json:"longitude,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DeleteAnnotation identifies an annotation removed by the host.
type DeleteAnnotation struct {
	Name      string    `json:"name"`
	SceneName string    `json:"sceneName"`
	DeletedAt time.Time `json:"deletedAt"`
}
