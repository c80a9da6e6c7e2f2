package marker

import (
	"fmt"
	"math"

	"github.com/NotesGenerator/extension/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultSegments is the ring resolution used when none is requested.
const DefaultSegments = 16

// unitTolerance bounds how far |normal| may stray from 1.
const unitTolerance = 1e-6

// parallelTolerance decides when the up reference is too close to the
// tracked direction to span a plane with it.
const parallelTolerance = 1e-9

var (
	axisY = mgl64.Vec3{0, 1, 0}
	axisZ = mgl64.Vec3{0, 0, 1}
)

// BuildCone builds a capped cylinder of radius thickness whose base is centred
// on origin and whose axis runs along normal for length. It returns the mesh
// and the tip point origin + normal*length.
//
// Vertex layout: segments base ring points, segments top ring points, the
// base centre, then the top centre. Caps are triangle fans and the side is
// made of quads, all wound outward.
func BuildCone(origin, normal mgl64.Vec3, length, thickness float64, segments int) (core.ConeMesh, mgl64.Vec3, error) {
	if err := validateCone(origin, normal, length, thickness, segments); err != nil {
		return core.ConeMesh{}, mgl64.Vec3{}, err
	}

	basis := trackBasis(normal)
	place := func(local mgl64.Vec3) mgl64.Vec3 {
		return origin.Add(basis.Mul3x1(local))
	}

	vertices := make([]mgl64.Vec3, 0, 2*segments+2)
	for ring := 0; ring < 2; ring++ {
		z := float64(ring) * length
		for i := 0; i < segments; i++ {
			theta := 2 * math.Pi * float64(i) / float64(segments)
			vertices = append(vertices, place(mgl64.Vec3{
				thickness * math.Cos(theta),
				thickness * math.Sin(theta),
				z,
			}))
		}
	}
	baseCenter := len(vertices)
	vertices = append(vertices, origin)
	topCenter := len(vertices)
	vertices = append(vertices, place(mgl64.Vec3{0, 0, length}))

	faces := make([]core.Face, 0, 3*segments)
	for i := 0; i < segments; i++ {
		next := (i + 1) % segments
		b0, b1 := i, next
		t0, t1 := segments+i, segments+next

		faces = append(faces,
			core.Face{baseCenter, b1, b0},
			core.Face{topCenter, t0, t1},
			core.Face{b0, b1, t1, t0},
		)
	}

	tip := origin.Add(normal.Mul(length))
	return core.ConeMesh{Vertices: vertices, Faces: faces}, tip, nil
}

// TrackQuat returns the rotation taking +Z onto dir while keeping +Y as close
// to up as possible. When dir is parallel to +Y the up reference becomes +Z.
func TrackQuat(dir mgl64.Vec3) (mgl64.Quat, error) {
	if !finiteVec(dir) || !isUnit(dir) {
		return mgl64.QuatIdent(), fmt.Errorf("%w: direction %v is not a unit vector", ErrInvalidGeometryInput, dir)
	}
	return mgl64.Mat4ToQuat(trackBasis(dir).Mat4()).Normalize(), nil
}

// trackBasis returns the rotation matrix whose columns are the local X, Y and
// Z axes after aligning Z with dir.
func trackBasis(dir mgl64.Vec3) mgl64.Mat3 {
	up := axisY
	if math.Abs(up.Dot(dir)) > 1-parallelTolerance {
		up = axisZ
	}
	x := up.Cross(dir).Normalize()
	y := dir.Cross(x)
	return mgl64.Mat3FromCols(x, y, dir)
}

func validateCone(origin, normal mgl64.Vec3, length, thickness float64, segments int) error {
	switch {
	case !finiteVec(origin):
		return fmt.Errorf("%w: origin %v is not finite", ErrInvalidGeometryInput, origin)
	case !finiteVec(normal) || !isUnit(normal):
		return fmt.Errorf("%w: normal %v is not a unit vector", ErrInvalidGeometryInput, normal)
	case !finitePositive(length):
		return fmt.Errorf("%w: length must be > 0, got %v", ErrInvalidGeometryInput, length)
	case !finitePositive(thickness):
		return fmt.Errorf("%w: thickness must be > 0, got %v", ErrInvalidGeometryInput, thickness)
	case segments < 3:
		return fmt.Errorf("%w: need at least 3 segments, got %d", ErrInvalidGeometryInput, segments)
	}
	return nil
}

func isUnit(v mgl64.Vec3) bool {
	return math.Abs(v.Len()-1) <= unitTolerance
}

func finitePositive(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

func finiteVec(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsInf(c, 0) || math.IsNaN(c) {
			return false
		}
	}
	return true
}
