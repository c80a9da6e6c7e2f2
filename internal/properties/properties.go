// Package properties holds the values of the annotation form: what the user
// sets in the side panel before clicking into the viewport.
package properties

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/NotesGenerator/extension/internal/config"
	"github.com/NotesGenerator/extension/internal/marker"
	"github.com/NotesGenerator/extension/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrUnknownProperty is returned by Set for a key the form does not have.
var ErrUnknownProperty = errors.New("unknown property")

// Range is an inclusive numeric bound.
type Range struct {
	Min float64
	Max float64
}

// Clamp limits v to the range. NaN collapses to Min.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return r.Min
	}
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Bounds are the limits the host's input widgets enforce.
var Bounds = struct {
	Length           Range
	Thickness        Range
	TextSize         Range
	TextDistance     Range
	ColorChannel     Range
	EmissionStrength Range
	Segments         Range
}{
	Length:           Range{Min: 0.001, Max: 1000.0},
	Thickness:        Range{Min: 0.001, Max: 10.0},
	TextSize:         Range{Min: 0.01, Max: 10.0},
	TextDistance:     Range{Min: 0.0, Max: 10.0},
	ColorChannel:     Range{Min: 0.0, Max: 1.0},
	EmissionStrength: Range{Min: 0.0, Max: 100.0},
	Segments:         Range{Min: 3, Max: 256},
}

// Properties are the annotation form values, in the selected unit.
type Properties struct {
	Text             string    `json:"text"`
	Unit             core.Unit `json:"unit"`
	Length           float64   `json:"length"`
	Thickness        float64   `json:"thickness"`
	TextSize         float64   `json:"textSize"`
	TextDistance     float64   `json:"textDistance"`
	Color            core.RGBA `json:"color"`
	EmissionStrength float64   `json:"emissionStrength"`
	Segments         int       `json:"segments"`
}

// Defaults returns the values the form starts with.
func Defaults() Properties {
	return Properties{
		Text:             "Annotation",
		Unit:             core.UnitMeter,
		Length:           1.0,
		Thickness:        0.05,
		TextSize:         0.2,
		TextDistance:     0.1,
		Color:            core.RGBA{R: 1, G: 1, B: 1, A: 1},
		EmissionStrength: 1.0,
		Segments:         marker.DefaultSegments,
	}
}

// FromConfig builds clamped properties from the annotation config section.
func FromConfig(cfg config.AnnotationConfig) Properties {
	p := Defaults()
	p.Text = cfg.Text
	if u, err := marker.ParseUnit(cfg.Unit); err == nil {
		p.Unit = u
	}
	p.Length = cfg.Length
	p.Thickness = cfg.Thickness
	p.TextSize = cfg.TextSize
	p.TextDistance = cfg.TextDistance
	if len(cfg.Color) == 4 {
		p.Color = core.RGBA{R: cfg.Color[0], G: cfg.Color[1], B: cfg.Color[2], A: cfg.Color[3]}
	}
	p.EmissionStrength = cfg.EmissionStrength
	if cfg.Segments != 0 {
		p.Segments = cfg.Segments
	}
	return p.Clamp()
}

// Clamp returns a copy with every numeric value inside its bounds.
func (p Properties) Clamp() Properties {
	p.Length = Bounds.Length.Clamp(p.Length)
	p.Thickness = Bounds.Thickness.Clamp(p.Thickness)
	p.TextSize = Bounds.TextSize.Clamp(p.TextSize)
	p.TextDistance = Bounds.TextDistance.Clamp(p.TextDistance)
	p.Color.R = Bounds.ColorChannel.Clamp(p.Color.R)
	p.Color.G = Bounds.ColorChannel.Clamp(p.Color.G)
	p.Color.B = Bounds.ColorChannel.Clamp(p.Color.B)
	p.Color.A = Bounds.ColorChannel.Clamp(p.Color.A)
	p.EmissionStrength = Bounds.EmissionStrength.Clamp(p.EmissionStrength)
	// unset or degenerate ring sizes fall back to the default
	if p.Segments < int(Bounds.Segments.Min) {
		p.Segments = marker.DefaultSegments
	}
	p.Segments = int(Bounds.Segments.Clamp(float64(p.Segments)))
	return p
}

// Request builds the marker request for a surface hit.
func (p Properties) Request(origin, normal mgl64.Vec3) core.MarkerRequest {
	return core.MarkerRequest{
		Origin: origin,
		Normal: normal,
		Dimensions: core.Dimensions{
			Length:      p.Length,
			Thickness:   p.Thickness,
			LabelSize:   p.TextSize,
			LabelOffset: p.TextDistance,
		},
		Label:    p.Text,
		Unit:     p.Unit,
		Segments: p.Segments,
	}
}

// Set parses value into the field named key and clamps the result. On error
// p is left unchanged. Colors are given as "r,g,b,a".
func (p *Properties) Set(key, value string) error {
	parseFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, fmt.Errorf("property %s: %w", key, err)
		}
		return f, nil
	}

	next := *p
	var err error
	switch key {
	case "text":
		next.Text = value
	case "unit":
		next.Unit, err = marker.ParseUnit(value)
	case "length":
		next.Length, err = parseFloat()
	case "thickness":
		next.Thickness, err = parseFloat()
	case "textSize":
		next.TextSize, err = parseFloat()
	case "textDistance":
		next.TextDistance, err = parseFloat()
	case "emissionStrength":
		next.EmissionStrength, err = parseFloat()
	case "segments":
		var n int
		n, err = strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			next.Segments = n
		}
	case "color":
		next.Color, err = parseColor(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownProperty, key)
	}
	if err != nil {
		return err
	}
	*p = next.Clamp()
	return nil
}

func parseColor(s string) (core.RGBA, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return core.RGBA{}, fmt.Errorf("color must have 4 components, got %d", len(parts))
	}
	var c [4]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return core.RGBA{}, fmt.Errorf("color component %d: %w", i, err)
		}
		c[i] = f
	}
	return core.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}, nil
}

// Store guards the current form values.
type Store struct {
	mu    sync.RWMutex
	props Properties
}

// NewStore creates a store holding p.
func NewStore(p Properties) *Store {
	return &Store{props: p.Clamp()}
}

// Get returns a copy of the current values.
func (s *Store) Get() Properties {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.props
}

// Set updates one field. On error the stored values are unchanged.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.props.Set(key, value)
}

// Update applies fn to a copy of the current values and stores the clamped
// result only if fn succeeds. The store stays locked for the whole batch.
func (s *Store) Update(fn func(p *Properties) error) (Properties, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.props
	if err := fn(&next); err != nil {
		return s.props, err
	}
	s.props = next.Clamp()
	return s.props, nil
}
