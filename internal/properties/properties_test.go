package properties

import (
	"math"
	"sync"
	"testing"

	"github.com/NotesGenerator/extension/internal/config"
	"github.com/NotesGenerator/extension/internal/marker"
	"github.com/NotesGenerator/extension/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	p := Defaults()
	assert.Equal(t, "Annotation", p.Text)
	assert.Equal(t, core.UnitMeter, p.Unit)
	assert.Equal(t, 1.0, p.Length)
	assert.Equal(t, 0.05, p.Thickness)
	assert.Equal(t, 0.2, p.TextSize)
	assert.Equal(t, 0.1, p.TextDistance)
	assert.Equal(t, core.RGBA{R: 1, G: 1, B: 1, A: 1}, p.Color)
	assert.Equal(t, 1.0, p.EmissionStrength)
	assert.Equal(t, marker.DefaultSegments, p.Segments)
	assert.Equal(t, p, p.Clamp(), "defaults lie inside the bounds")
}

func TestRange_Clamp(t *testing.T) {
	r := Range{Min: 0.001, Max: 1000}
	assert.Equal(t, 0.001, r.Clamp(0))
	assert.Equal(t, 1000.0, r.Clamp(5000))
	assert.Equal(t, 3.0, r.Clamp(3))
	assert.Equal(t, 0.001, r.Clamp(math.NaN()))
	assert.Equal(t, 1000.0, r.Clamp(math.Inf(1)))
}

func TestClamp(t *testing.T) {
	p := Properties{
		Length:           -1,
		Thickness:        50,
		TextSize:         0,
		TextDistance:     -3,
		Color:            core.RGBA{R: 2, G: -1, B: 0.5, A: 1},
		EmissionStrength: 500,
		Segments:         2,
	}.Clamp()

	assert.Equal(t, 0.001, p.Length)
	assert.Equal(t, 10.0, p.Thickness)
	assert.Equal(t, 0.01, p.TextSize)
	assert.Equal(t, 0.0, p.TextDistance)
	assert.Equal(t, core.RGBA{R: 1, G: 0, B: 0.5, A: 1}, p.Color)
	assert.Equal(t, 100.0, p.EmissionStrength)
	assert.Equal(t, marker.DefaultSegments, p.Segments)
}

func TestSet(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(t *testing.T, p Properties)
	}{
		{"text", "Crack here", func(t *testing.T, p Properties) { assert.Equal(t, "Crack here", p.Text) }},
		{"unit", "cm", func(t *testing.T, p Properties) { assert.Equal(t, core.UnitCentimeter, p.Unit) }},
		{"length", "2.5", func(t *testing.T, p Properties) { assert.Equal(t, 2.5, p.Length) }},
		{"length", "99999", func(t *testing.T, p Properties) { assert.Equal(t, 1000.0, p.Length) }},
		{"thickness", " 0.2 ", func(t *testing.T, p Properties) { assert.Equal(t, 0.2, p.Thickness) }},
		{"textSize", "0.5", func(t *testing.T, p Properties) { assert.Equal(t, 0.5, p.TextSize) }},
		{"textDistance", "0", func(t *testing.T, p Properties) { assert.Equal(t, 0.0, p.TextDistance) }},
		{"emissionStrength", "7", func(t *testing.T, p Properties) { assert.Equal(t, 7.0, p.EmissionStrength) }},
		{"segments", "32", func(t *testing.T, p Properties) { assert.Equal(t, 32, p.Segments) }},
		{"color", "1,0,0,1", func(t *testing.T, p Properties) {
			assert.Equal(t, core.RGBA{R: 1, G: 0, B: 0, A: 1}, p.Color)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			p := Defaults()
			require.NoError(t, p.Set(tt.key, tt.value))
			tt.check(t, p)
		})
	}
}

func TestSet_Errors(t *testing.T) {
	p := Defaults()

	err := p.Set("bogus", "1")
	assert.ErrorIs(t, err, ErrUnknownProperty)

	err = p.Set("unit", "FT")
	assert.ErrorIs(t, err, marker.ErrInvalidUnit)

	assert.Error(t, p.Set("length", "long"))
	assert.Error(t, p.Set("segments", "many"))
	assert.Error(t, p.Set("color", "1,1,1"))
	assert.Error(t, p.Set("color", "1,1,x,1"))

	assert.Equal(t, core.UnitMeter, p.Unit, "failed sets leave the unit alone")
}

func TestRequest(t *testing.T) {
	p := Defaults()
	p.Unit = core.UnitCentimeter

	req := p.Request(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{0, 0, 1})
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, req.Origin)
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, req.Normal)
	assert.Equal(t, core.Dimensions{Length: 1.0, Thickness: 0.05, LabelSize: 0.2, LabelOffset: 0.1}, req.Dimensions)
	assert.Equal(t, "Annotation", req.Label)
	assert.Equal(t, core.UnitCentimeter, req.Unit)
	assert.Equal(t, 16, req.Segments)

	geom, err := marker.Build(req)
	require.NoError(t, err)
	assert.InDelta(t, 3.01, geom.Tip.Z(), 1e-12)
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(config.AnnotationConfig{
		Text:             "Note",
		Unit:             "mm",
		Length:           5000,
		Thickness:        0.1,
		TextSize:         0.3,
		TextDistance:     0.2,
		Color:            []float64{0, 1, 0, 1},
		EmissionStrength: 2,
		Segments:         8,
	})

	assert.Equal(t, "Note", p.Text)
	assert.Equal(t, core.UnitMillimeter, p.Unit)
	assert.Equal(t, 1000.0, p.Length)
	assert.Equal(t, core.RGBA{R: 0, G: 1, B: 0, A: 1}, p.Color)
	assert.Equal(t, 8, p.Segments)
}

func TestFromConfig_BadValuesFallBack(t *testing.T) {
	p := FromConfig(config.AnnotationConfig{Unit: "parsec", Color: []float64{1}, Segments: 1})
	assert.Equal(t, core.UnitMeter, p.Unit)
	assert.Equal(t, core.RGBA{R: 1, G: 1, B: 1, A: 1}, p.Color)
	assert.Equal(t, marker.DefaultSegments, p.Segments)
}

func TestStore(t *testing.T) {
	s := NewStore(Defaults())

	require.NoError(t, s.Set("length", "3"))
	assert.Equal(t, 3.0, s.Get().Length)

	require.Error(t, s.Set("length", "nope"))
	assert.Equal(t, 3.0, s.Get().Length, "failed set keeps the stored value")

	got, err := s.Update(func(p *Properties) error {
		p.Length = -5
		return p.Set("segments", "2000000000")
	})
	require.NoError(t, err)
	assert.Equal(t, 0.001, got.Length)
	assert.Equal(t, 256, s.Get().Segments)

	_, err = s.Update(func(p *Properties) error {
		p.Text = "Half applied"
		return p.Set("bogus", "1")
	})
	assert.ErrorIs(t, err, ErrUnknownProperty)
	assert.Equal(t, "Annotation", s.Get().Text, "a failed batch stores nothing")
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	s := NewStore(Defaults())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Update(func(p *Properties) error {
				p.Length++
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			_ = s.Set("thickness", "0.2")
		}()
	}
	wg.Wait()
	assert.Equal(t, 51.0, s.Get().Length, "no increment is lost")
	assert.Equal(t, 0.2, s.Get().Thickness)
}

func TestSegmentsBounds(t *testing.T) {
	for _, tt := range []struct {
		in   int
		want int
	}{
		{0, marker.DefaultSegments},
		{2, marker.DefaultSegments},
		{-7, marker.DefaultSegments},
		{3, 3},
		{256, 256},
		{257, 256},
		{2000000000, 256},
	} {
		assert.Equal(t, tt.want, Properties{Segments: tt.in}.Clamp().Segments, tt.in)
	}

	p := Defaults()
	require.NoError(t, p.Set("segments", "2000000000"))
	assert.Equal(t, 256, p.Segments)

	assert.Equal(t, 256, FromConfig(config.AnnotationConfig{Unit: "M", Segments: 100000}).Segments)
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore(Defaults())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Set("thickness", "0.2")
		}()
		go func() {
			defer wg.Done()
			_ = s.Get()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0.2, s.Get().Thickness)
}
