package geometry

import (
	"github.com/paulmach/orb"

	"github.com/newtondotcom/roomplan/internal/scene/models"
)

// ============================================================
// Planar transform
// ============================================================

// Transform2D is the planar part of a 4x4 column-major matrix.
type Transform2D struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	TX float64 `json:"tx"`
	TY float64 `json:"ty"`
}

// Extract2DTransform reads a, b, c, d from indices 0, 1, 4, 5 and the
// translation from 12, 13.
func Extract2DTransform(values []float64) (Transform2D, error) {
	if len(values) != 16 {
		return Transform2D{}, &models.InvalidInputError{
			Field:  "transform",
			Reason: "transform matrix must have 16 elements",
		}
	}

	return Transform2D{
		A:  values[0],
		B:  values[1],
		C:  values[4],
		D:  values[5],
		TX: values[12],
		TY: values[13],
	}, nil
}

// Planar is Extract2DTransform for an already validated transform.
func Planar(t models.Transform) Transform2D {
	out, _ := Extract2DTransform(t[:])
	return out
}

// Apply maps (x, y) through the transform.
func (t Transform2D) Apply(x, y float64) orb.Point {
	return orb.Point{
		t.A*x + t.C*y + t.TX,
		t.B*x + t.D*y + t.TY,
	}
}

// ApplyAll maps every point through the transform.
func (t Transform2D) ApplyAll(points []orb.Point) []orb.Point {
	out := make([]orb.Point, len(points))
	for i, p := range points {
		out[i] = t.Apply(p[0], p[1])
	}
	return out
}

// ============================================================
// Floor footprint
// ============================================================

const (
	DefaultScaleFactor = 50.0
	DefaultOffset      = 50.0
)

// TransformFloorCorners maps each polygon corner through the floor transform,
// then to screen space as offset + p*scaleFactor.
func TransformFloorCorners(floor *models.Surface, scaleFactor float64, offset orb.Point) []orb.Point {
	t := Planar(floor.Transform)

	out := make([]orb.Point, 0, len(floor.PolygonCorners))
	for _, corner := range floor.PolygonCorners {
		p := t.Apply(corner[0], corner[1])
		out = append(out, orb.Point{
			offset[0] + p[0]*scaleFactor,
			offset[1] + p[1]*scaleFactor,
		})
	}
	return out
}

// FloorRectangle synthesizes the footprint from dimensions and the
// transform's translation: bottom-left, top-left, top-right, bottom-right.
func FloorRectangle(floor *models.Surface) []orb.Point {
	width, height := floor.Dimensions[0], floor.Dimensions[1]
	centerX, centerY := floor.Transform[12], floor.Transform[13]

	return []orb.Point{
		{centerX - width/2, centerY - height/2},
		{centerX - width/2, centerY + height/2},
		{centerX + width/2, centerY + height/2},
		{centerX + width/2, centerY - height/2},
	}
}

// IsFlat reports whether a polygon has no extent along y.
func IsFlat(corners []models.Point3) bool {
	if len(corners) < 3 {
		return true
	}
	for _, c := range corners[1:] {
		if c[1] != corners[0][1] {
			return false
		}
	}
	return true
}

// FloorFootprint returns the floor outline in world units.
func FloorFootprint(floor *models.Surface) []orb.Point {
	if IsFlat(floor.PolygonCorners) {
		return FloorRectangle(floor)
	}
	return TransformFloorCorners(floor, 1, orb.Point{})
}

// BoundingBox returns the axis-aligned bounds of points.
func BoundingBox(points []orb.Point) orb.Bound {
	return orb.MultiPoint(points).Bound()
}
