package geometry

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/newtondotcom/roomplan/internal/scene/models"
)

// ============================================================
// Viewport fitting
// ============================================================

const (
	DefaultPadding = 20.0
	DefaultZoom    = 1.0
	MinUserZoom    = 0.5
)

// Viewport maps world coordinates to canvas pixels as p*Zoom + Offset.
type Viewport struct {
	Zoom    float64 `json:"zoom"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// CalculateViewport fits corners into a canvas with padding on every side,
// centering the bounding box.
//
// A zero extent on one axis leaves the fit to the other axis; a zero extent
// on both falls back to DefaultZoom. In both cases the returned viewport is
// usable and the error is a *models.DegenerateGeometryError.
func CalculateViewport(canvasWidth, canvasHeight float64, corners []orb.Point, padding float64) (Viewport, error) {
	if len(corners) == 0 {
		return Viewport{}, &models.InvalidInputError{Field: "corners", Reason: "no points"}
	}

	availW := canvasWidth - 2*padding
	availH := canvasHeight - 2*padding
	if availW <= 0 || availH <= 0 {
		return Viewport{}, &models.InvalidInputError{Field: "canvas", Reason: "smaller than padding"}
	}

	bound := BoundingBox(corners)
	floorWidth := bound.Max[0] - bound.Min[0]
	floorHeight := bound.Max[1] - bound.Min[1]

	var degenerate error
	zoom := DefaultZoom
	switch {
	case floorWidth > 0 && floorHeight > 0:
		zoom = math.Min(availW/floorWidth, availH/floorHeight)
	case floorWidth > 0:
		zoom = availW / floorWidth
		degenerate = &models.DegenerateGeometryError{Width: floorWidth, Height: floorHeight}
	case floorHeight > 0:
		zoom = availH / floorHeight
		degenerate = &models.DegenerateGeometryError{Width: floorWidth, Height: floorHeight}
	default:
		degenerate = &models.DegenerateGeometryError{Width: floorWidth, Height: floorHeight}
	}

	center := bound.Center()
	return Viewport{
		Zoom:    zoom,
		OffsetX: canvasWidth/2 - center[0]*zoom,
		OffsetY: canvasHeight/2 - center[1]*zoom,
	}, degenerate
}

// Project maps a world point into canvas pixels.
func (v Viewport) Project(p orb.Point) orb.Point {
	return orb.Point{p[0]*v.Zoom + v.OffsetX, p[1]*v.Zoom + v.OffsetY}
}

// ProjectAll maps every point into canvas pixels.
func (v Viewport) ProjectAll(points []orb.Point) []orb.Point {
	out := make([]orb.Point, len(points))
	for i, p := range points {
		out[i] = v.Project(p)
	}
	return out
}

// ZoomBy scales the viewport about the canvas center. Factors below
// MinUserZoom are clamped.
func (v Viewport) ZoomBy(factor, canvasWidth, canvasHeight float64) Viewport {
	factor = math.Max(MinUserZoom, factor)
	cx, cy := canvasWidth/2, canvasHeight/2

	return Viewport{
		Zoom:    v.Zoom * factor,
		OffsetX: cx - (cx-v.OffsetX)*factor,
		OffsetY: cy - (cy-v.OffsetY)*factor,
	}
}
