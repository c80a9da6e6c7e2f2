// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"

	"github.com/NotesGenerator/extension/internal/geo"
	"github.com/NotesGenerator/extension/internal/model"
	"github.com/NotesGenerator/extension/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"gorm.io/datatypes"
)

func dimensionsToModel(d core.Dimensions) model.Dimensions {
	return model.Dimensions{Length: d.Length, Thickness: d.Thickness, LabelSize: d.LabelSize, LabelOffset: d.LabelOffset}
}

func dimensionsToCore(d model.Dimensions) core.Dimensions {
	return core.Dimensions{Length: d.Length, Thickness: d.Thickness, LabelSize: d.LabelSize, LabelOffset: d.LabelOffset}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

// objectIDsToJSON converts the host object IDs to datatypes.JSON for DB storage.
func objectIDsToJSON(ids []core.ObjectID) datatypes.JSON {
	if len(ids) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(ids)
	return datatypes.JSON(data)
}

// CoreToAnnotation converts a core.Annotation to a GORM model.Annotation.
func CoreToAnnotation(a core.Annotation) model.Annotation {
	appearance, _ := json.Marshal(a.Appearance)

	return model.Annotation{
		ID:          a.ID,
		CreatedAt:   a.CreatedAt,
		SceneName:   a.SceneName,
		Name:        a.Name,
		Text:        a.Text,
		Unit:        string(a.Unit),
		Raw:         dimensionsToModel(a.Raw),
		Scaled:      dimensionsToModel(a.Scaled),
		Origin:      geo.PointZ(a.Origin),
		Tip:         geo.PointZ(a.Tip),
		LabelAnchor: geo.PointZ(a.LabelAnchor),
		Axis:        geo.AxisLineString(a.Origin, a.Tip),
		NormalX:     a.Normal.X(),
		NormalY:     a.Normal.Y(),
		NormalZ:     a.Normal.Z(),
		Appearance:  datatypes.JSON(appearance),
		Oriented:    a.Oriented,
		ObjectIDs:   objectIDsToJSON(a.ObjectIDs),
		Longitude:   nullFloat(a.Longitude),
		Latitude:    nullFloat(a.Latitude),
	}
}

// AnnotationToCore converts a GORM Annotation to a core.Annotation.
func AnnotationToCore(m model.Annotation) core.Annotation {
	var appearance core.AppearanceSpec
	if len(m.Appearance) > 0 {
		_ = json.Unmarshal(m.Appearance, &appearance)
	}
	var ids []core.ObjectID
	if len(m.ObjectIDs) > 0 {
		_ = json.Unmarshal(m.ObjectIDs, &ids)
	}

	return core.Annotation{
		ID:          m.ID,
		Name:        m.Name,
		SceneName:   m.SceneName,
		Text:        m.Text,
		Unit:        core.Unit(m.Unit),
		Raw:         dimensionsToCore(m.Raw),
		Scaled:      dimensionsToCore(m.Scaled),
		Origin:      geo.Vec3FromPoint(m.Origin),
		Normal:      mgl64.Vec3{m.NormalX, m.NormalY, m.NormalZ},
		Tip:         geo.Vec3FromPoint(m.Tip),
		LabelAnchor: geo.Vec3FromPoint(m.LabelAnchor),
		Appearance:  appearance,
		Oriented:    m.Oriented,
		ObjectIDs:   ids,
		Longitude:   floatPtr(m.Longitude),
		Latitude:    floatPtr(m.Latitude),
		CreatedAt:   m.CreatedAt,
	}
}
