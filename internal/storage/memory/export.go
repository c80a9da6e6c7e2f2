package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NotesGenerator/extension/internal/geo"
	"github.com/NotesGenerator/extension/pkg/core"
)

// AnnotationExport is the root JSON structure of an export file.
type AnnotationExport struct {
	ExtensionVersion string           `json:"extensionVersion"`
	ExportedAt       time.Time        `json:"exportedAt"`
	Annotations      []AnnotationJSON `json:"annotations"`
}

// AnnotationJSON is one exported annotation. Vectors are [x, y, z] arrays.
type AnnotationJSON struct {
	ID          uint       `json:"id"`
	Scene       string     `json:"scene"`
	Name        string     `json:"name"`
	Text        string     `json:"text"`
	Unit        core.Unit  `json:"unit"`
	Length      float64    `json:"length"`
	Thickness   float64    `json:"thickness"`
	TextSize    float64    `json:"textSize"`
	Origin      [3]float64 `json:"origin"`
	Normal      [3]float64 `json:"normal"`
	Tip         [3]float64 `json:"tip"`
	LabelAnchor [3]float64 `json:"labelAnchor"`
	Color       [4]float64 `json:"color"`
	Strength    float64    `json:"strength"`
	Axis        string     `json:"axis"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	RemovedAt   *time.Time `json:"removedAt,omitempty"`
}

// exportJSON writes every record, deleted ones included, to a new file.
// Callers hold b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	ext := ".json"
	if b.cfg.CompressOutput {
		ext = ".json.gz"
	}
	filename := "annotations_" + export.ExportedAt.Format("20060102_150405.000") + ext
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	write := writeJSON
	if b.cfg.CompressOutput {
		write = writeGzipJSON
	}
	if err := write(outputPath, export); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() AnnotationExport {
	export := AnnotationExport{
		ExtensionVersion: b.version,
		ExportedAt:       time.Now().UTC(),
		Annotations:      make([]AnnotationJSON, 0, len(b.records)),
	}

	for _, r := range b.records {
		a := r.annotation
		c := a.Appearance.Color
		entry := AnnotationJSON{
			ID:          a.ID,
			Scene:       a.SceneName,
			Name:        a.Name,
			Text:        a.Text,
			Unit:        a.Unit,
			Length:      a.Scaled.Length,
			Thickness:   a.Scaled.Thickness,
			TextSize:    a.Scaled.LabelSize,
			Origin:      a.Origin,
			Normal:      a.Normal,
			Tip:         a.Tip,
			LabelAnchor: a.LabelAnchor,
			Color:       [4]float64{c.R, c.G, c.B, c.A},
			Strength:    a.Appearance.Strength,
			Axis:        geo.AxisLineString(a.Origin, a.Tip).AsText(),
			Longitude:   a.Longitude,
			Latitude:    a.Latitude,
			CreatedAt:   a.CreatedAt,
		}
		if r.deleted() {
			removed := r.removedAt
			entry.RemovedAt = &removed
		}
		export.Annotations = append(export.Annotations, entry)
	}

	return export
}

func writeJSON(path string, data AnnotationExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data AnnotationExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	return json.NewEncoder(gzWriter).Encode(data)
}
