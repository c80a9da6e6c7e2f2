// Command notesgen-cli builds one annotation marker offline and prints its
// geometry as JSON or WKT.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/NotesGenerator/extension/internal/config"
	"github.com/NotesGenerator/extension/internal/geo"
	"github.com/NotesGenerator/extension/internal/marker"
	"github.com/NotesGenerator/extension/internal/properties"
	"github.com/NotesGenerator/extension/pkg/core"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// propertyFlags maps command line flags to annotation property keys.
var propertyFlags = map[string]string{
	"text":          "text",
	"unit":          "unit",
	"length":        "length",
	"thickness":     "thickness",
	"text-size":     "textSize",
	"text-distance": "textDistance",
	"color":         "color",
	"strength":      "emissionStrength",
	"segments":      "segments",
}

type output struct {
	Geometry   core.MarkerGeometry `json:"geometry"`
	Appearance core.AppearanceSpec `json:"appearance"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "notesgen-cli:", err)
		os.Exit(1)
	}
}

func newFlagSet() *pflag.FlagSet {
	d := properties.Defaults()
	fs := pflag.NewFlagSet("notesgen-cli", pflag.ContinueOnError)
	fs.String("origin", "0,0,0", "surface point as x,y,z")
	fs.String("normal", "0,0,1", "surface normal as x,y,z, normalized before use")
	fs.String("format", "json", "output format: json or wkt")
	fs.String("config", "", "add-on directory whose notesgen.cfg.json provides the defaults")

	fs.String("text", d.Text, "label text")
	fs.String("unit", string(d.Unit), "unit of the dimensions (MM, CM, DM, M, DAM, HM, KM)")
	fs.Float64("length", d.Length, "cone length")
	fs.Float64("thickness", d.Thickness, "cone base radius")
	fs.Float64("text-size", d.TextSize, "label size")
	fs.Float64("text-distance", d.TextDistance, "label distance from the tip")
	fs.String("color", "1,1,1,1", "emission color as r,g,b,a")
	fs.Float64("strength", d.EmissionStrength, "emission strength")
	fs.Int("segments", d.Segments, "cone ring segments")
	return fs
}

// run parses args, builds the marker and writes it to w.
func run(args []string, w io.Writer) error {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	props := properties.Defaults()
	if dir := v.GetString("config"); dir != "" {
		if err := config.Load(dir); err != nil {
			return err
		}
		props = properties.FromConfig(config.GetAnnotationConfig())
	}
	for flag, key := range propertyFlags {
		if !fs.Changed(flag) {
			continue
		}
		if err := props.Set(key, v.GetString(flag)); err != nil {
			return err
		}
	}

	origin, err := geo.Vec3FromString(v.GetString("origin"))
	if err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	normal, err := geo.Vec3FromString(v.GetString("normal"))
	if err != nil {
		return fmt.Errorf("normal: %w", err)
	}
	if normal.Len() == 0 {
		return fmt.Errorf("normal: %w: zero vector", marker.ErrInvalidGeometryInput)
	}

	geom, err := marker.Build(props.Request(origin, normal.Normalize()))
	if err != nil {
		return err
	}
	appearance, err := marker.BuildEmissionAppearance(props.Color, props.EmissionStrength)
	if err != nil {
		return err
	}

	switch v.GetString("format") {
	case "wkt":
		_, err = fmt.Fprintln(w, geo.MeshWKT(geom.Cone))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(output{Geometry: geom, Appearance: appearance})
	default:
		return fmt.Errorf("unknown format %q", v.GetString("format"))
	}
}
