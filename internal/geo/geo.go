package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Scene positions are kept as mgl64 vectors everywhere in memory and only
// become simplefeatures geometries at the storage edge, as XYZ in scene
// metres. Georeferenced scenes additionally carry WGS84 longitude/latitude.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ErrUnsupportedCRS is returned when an EPSG code cannot be transformed to WGS84.
var ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")

// Vec3FromString parses "x,y,z" into a vector. Brackets and spaces around the
// components are ignored, so "[1, 2, 3]" is accepted too.
func Vec3FromString(s string) (mgl64.Vec3, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("%w: want 3 components, got %d", ErrInvalidCoordinates, len(parts))
	}
	var v mgl64.Vec3
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return mgl64.Vec3{}, fmt.Errorf("%w: component %d is %q", ErrInvalidCoordinates, i, part)
		}
		v[i] = f
	}
	return v, nil
}

// Vec3String formats v the way Vec3FromString reads it.
func Vec3String(v mgl64.Vec3) string {
	return strconv.FormatFloat(v.X(), 'g', -1, 64) + "," +
		strconv.FormatFloat(v.Y(), 'g', -1, 64) + "," +
		strconv.FormatFloat(v.Z(), 'g', -1, 64)
}

// PointZ converts a scene vector to an XYZ point.
func PointZ(v mgl64.Vec3) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: v.X(), Y: v.Y()},
		Z:    v.Z(),
		Type: geom.DimXYZ,
	})
}

// Vec3FromPoint is the inverse of PointZ. Empty points give the zero vector.
func Vec3FromPoint(p geom.Point) mgl64.Vec3 {
	c, ok := p.Coordinates()
	if !ok {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{c.XY.X, c.XY.Y, c.Z}
}

// Georef places a scene in a projected CRS: scene coordinates are metres
// relative to Origin, expressed in the CRS identified by EPSG.
type Georef struct {
	EPSG   int
	Origin mgl64.Vec3
}

// ToLonLat converts a scene position to WGS84 longitude, latitude and
// ellipsoidal height.
func (g Georef) ToLonLat(v mgl64.Vec3) (lon, lat, height float64, err error) {
	if g.EPSG <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedCRS, g.EPSG)
	}
	world := g.Origin.Add(v)
	if g.EPSG == 4326 {
		return world.X(), world.Y(), world.Z(), nil
	}

	f := wgs84.EPSG().Transform(g.EPSG, 4326)
	if f == nil {
		return 0, 0, 0, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedCRS, g.EPSG)
	}
	lon, lat, height = f(world.X(), world.Y(), world.Z())
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return 0, 0, 0, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedCRS, g.EPSG)
	}
	return lon, lat, height, nil
}
