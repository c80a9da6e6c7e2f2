package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Annotation{},
}

// Dimensions are stored as four columns under a prefix.
type Dimensions struct {
	Length      float64 `json:"length"`
	Thickness   float64 `json:"thickness"`
	LabelSize   float64 `json:"labelSize"`
	LabelOffset float64 `json:"labelOffset"`
}

// Annotation is one placed marker.
//
// Host command: :EVENT: (LEFTMOUSE on an armed operator)
// Removed by: :MARKER:DELETE:
type Annotation struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt time.Time `json:"createdAt" gorm:"index:idx_annotation_created_at"`
	SceneName string    `json:"sceneName" gorm:"size:128;index:idx_annotation_scene_name"`
	Name      string    `json:"name" gorm:"size:128;index:idx_annotation_name"`
	Text      string    `json:"text" gorm:"size:256"`
	Unit      string    `json:"unit" gorm:"size:8"`

	Raw    Dimensions `json:"raw" gorm:"embedded;embeddedPrefix:raw_"`       // As entered, in Unit
	Scaled Dimensions `json:"scaled" gorm:"embedded;embeddedPrefix:scaled_"` // Metres

	Origin      geom.Point      `json:"origin" gorm:"type:geometry"`      // Surface hit point, XYZ scene metres
	Tip         geom.Point      `json:"tip" gorm:"type:geometry"`         // Cone tip
	LabelAnchor geom.Point      `json:"labelAnchor" gorm:"type:geometry"` // Text object location
	Axis        geom.LineString `json:"axis" gorm:"type:geometry"`        // Origin to tip
	NormalX     float64         `json:"normalX"`
	NormalY     float64         `json:"normalY"`
	NormalZ     float64         `json:"normalZ"`

	Appearance datatypes.JSON `json:"appearance"` // Emission colour and strength
	Oriented   bool           `json:"oriented"`   // Text tracks the scene camera
	ObjectIDs  datatypes.JSON `json:"objectIds"`  // Host objects as a JSON array

	Longitude sql.NullFloat64 `json:"longitude"`
	Latitude  sql.NullFloat64 `json:"latitude"`

	IsDeleted bool         `json:"isDeleted" gorm:"default:false;index:idx_annotation_is_deleted"`
	RemovedAt sql.NullTime `json:"removedAt"`
}

func (*Annotation) TableName() string {
	return "annotations"
}
