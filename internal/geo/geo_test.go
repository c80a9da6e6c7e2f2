package geo

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVec3FromString_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  mgl64.Vec3
	}{
		{"1,2,3", mgl64.Vec3{1, 2, 3}},
		{"-100.5,200.25,-50", mgl64.Vec3{-100.5, 200.25, -50}},
		{" 0.5 , 0 , 1e3 ", mgl64.Vec3{0.5, 0, 1000}},
		{"[0,0,1]", mgl64.Vec3{0, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Vec3FromString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVec3FromString_Invalid(t *testing.T) {
	inputs := []string{"", "1,2", "1,2,3,4", "a,b,c", "1,NaN,3", "1,2,Inf"}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Vec3FromString(in)
			if !errors.Is(err, ErrInvalidCoordinates) {
				t.Errorf("expected ErrInvalidCoordinates, got %v", err)
			}
		})
	}
}

func TestVec3String_RoundTrip(t *testing.T) {
	v := mgl64.Vec3{0.1, -2.5, 1e-9}
	got, err := Vec3FromString(Vec3String(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestPointZ(t *testing.T) {
	p := PointZ(mgl64.Vec3{1.5, -2, 3.25})

	coords, ok := p.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 1.5, coords.X)
	assert.Equal(t, -2.0, coords.Y)
	assert.Equal(t, 3.25, coords.Z)
	assert.Equal(t, mgl64.Vec3{1.5, -2, 3.25}, Vec3FromPoint(p))
}

func TestGeoref_ToLonLat_UTM(t *testing.T) {
	// UTM 33N false easting lies on the 15°E meridian at the equator.
	g := Georef{EPSG: 32633, Origin: mgl64.Vec3{499000, 0, 0}}

	lon, lat, _, err := g.ToLonLat(mgl64.Vec3{1000, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 15.0, lon, 1e-6)
	assert.InDelta(t, 0.0, lat, 1e-6)
}

func TestGeoref_ToLonLat_WebMercatorOrigin(t *testing.T) {
	g := Georef{EPSG: 3857}

	lon, lat, _, err := g.ToLonLat(mgl64.Vec3{})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, lon, 1e-9)
	assert.InDelta(t, 0.0, lat, 1e-9)
}

func TestGeoref_ToLonLat_Geographic(t *testing.T) {
	g := Georef{EPSG: 4326, Origin: mgl64.Vec3{13.4, 52.5, 34}}

	lon, lat, h, err := g.ToLonLat(mgl64.Vec3{0.1, 0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 13.5, lon, 1e-12)
	assert.InDelta(t, 52.5, lat, 1e-12)
	assert.InDelta(t, 35.0, h, 1e-12)
}

func TestGeoref_ToLonLat_NoCRS(t *testing.T) {
	for _, code := range []int{0, -1} {
		_, _, _, err := Georef{EPSG: code}.ToLonLat(mgl64.Vec3{})
		assert.ErrorIs(t, err, ErrUnsupportedCRS)
	}
}
