package geo

import (
	"github.com/NotesGenerator/extension/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
)

// AxisLineString returns the marker axis from the base centre to the tip.
func AxisLineString(origin, tip mgl64.Vec3) geom.LineString {
	seq := geom.NewSequence([]float64{
		origin.X(), origin.Y(), origin.Z(),
		tip.X(), tip.Y(), tip.Z(),
	}, geom.DimXYZ)
	return geom.NewLineString(seq)
}

// MeshToMultiPolygon turns every face of the mesh into a closed XYZ ring.
// The polygons share edges, so the result is meant for export and display
// rather than planar validity checks.
func MeshToMultiPolygon(mesh core.ConeMesh) geom.MultiPolygon {
	polys := make([]geom.Polygon, 0, len(mesh.Faces))
	for _, face := range mesh.Faces {
		if len(face) < 3 {
			continue
		}
		coords := make([]float64, 0, (len(face)+1)*3)
		for _, idx := range face {
			v := mesh.Vertices[idx]
			coords = append(coords, v.X(), v.Y(), v.Z())
		}
		first := mesh.Vertices[face[0]]
		coords = append(coords, first.X(), first.Y(), first.Z())

		ring := geom.NewLineString(geom.NewSequence(coords, geom.DimXYZ))
		polys = append(polys, geom.NewPolygon([]geom.LineString{ring}))
	}
	return geom.NewMultiPolygon(polys)
}

// MeshWKT renders the mesh as MULTIPOLYGON Z text.
func MeshWKT(mesh core.ConeMesh) string {
	return MeshToMultiPolygon(mesh).AsText()
}
