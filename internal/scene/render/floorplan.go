package render

import (
	"errors"
	"fmt"
	"html"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/newtondotcom/roomplan/internal/scene/geometry"
	"github.com/newtondotcom/roomplan/internal/scene/models"
)

// ============================================================
// Floor plan
// ============================================================

var ErrNoFloor = errors.New("scene has no floor")

// Canvas sides above MaxCanvas pixels and zoom factors above MaxZoom are
// rejected before anything is allocated.
const (
	MaxCanvas = 8192.0
	MaxZoom   = 100.0
)

const (
	floorFill   = "#f5f5f5"
	floorStroke = "#999"
	wallStroke  = "#000"
)

// Options control the 2D floor plan.
type Options struct {
	Width   float64
	Height  float64
	Padding float64
	Floor   int
	Zoom    float64
}

// DefaultOptions is an 800x600 canvas with the default padding.
func DefaultOptions() Options {
	return Options{Width: 800, Height: 600, Padding: geometry.DefaultPadding, Zoom: 1}
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 600
	}
	if o.Padding < 0 {
		o.Padding = 0
	}
	return o
}

func (o Options) validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"width", o.Width},
		{"height", o.Height},
		{"padding", o.Padding},
		{"zoom", o.Zoom},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &models.InvalidInputError{Field: f.name, Reason: "must be a finite number"}
		}
	}
	if o.Width > MaxCanvas || o.Height > MaxCanvas {
		return &models.InvalidInputError{
			Field:  "canvas",
			Reason: fmt.Sprintf("%sx%s exceeds %s pixels per side", formatFloat(o.Width), formatFloat(o.Height), formatFloat(MaxCanvas)),
		}
	}
	if o.Zoom > MaxZoom {
		return &models.InvalidInputError{Field: "zoom", Reason: fmt.Sprintf("above %s", formatFloat(MaxZoom))}
	}
	return nil
}

// Segment is a wall or wall child flattened to a line.
type Segment struct {
	ID     string
	Kind   models.Kind
	From   orb.Point
	To     orb.Point
	Stroke string
}

// Plan is the floor plan in canvas pixels.
type Plan struct {
	Width     float64
	Height    float64
	Viewport  geometry.Viewport
	Footprint orb.Ring
	Segments  []Segment
}

// Layout fits the selected floor's footprint into the canvas and projects
// walls, doors, windows and openings through the same viewport.
func Layout(scene *models.Scene, opts Options) (*Plan, error) {
	if scene == nil {
		return nil, fmt.Errorf("scene is nil")
	}
	if len(scene.Floors) == 0 {
		return nil, ErrNoFloor
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Floor < 0 || opts.Floor >= len(scene.Floors) {
		return nil, &models.InvalidInputError{
			Field:  "floor",
			Reason: fmt.Sprintf("index %d out of range (%d floors)", opts.Floor, len(scene.Floors)),
		}
	}

	floor := &scene.Floors[opts.Floor]
	footprint := geometry.FloorFootprint(floor)

	vp, err := geometry.CalculateViewport(opts.Width, opts.Height, footprint, opts.Padding)
	if err != nil {
		var degenerate *models.DegenerateGeometryError
		if !errors.As(err, &degenerate) {
			return nil, err
		}
		log.Printf("[RENDER] floor %s: %v, using zoom %g", floor.Identifier, err, vp.Zoom)
	}
	if opts.Zoom > 0 && opts.Zoom != 1 {
		vp = vp.ZoomBy(opts.Zoom, opts.Width, opts.Height)
	}

	plan := &Plan{
		Width:     opts.Width,
		Height:    opts.Height,
		Viewport:  vp,
		Footprint: orb.Ring(vp.ProjectAll(footprint)),
	}

	plan.Segments = append(plan.Segments, segments(scene.Walls, vp, wallStroke)...)
	plan.Segments = append(plan.Segments, segments(scene.Doors, vp, "#d62728")...)
	plan.Segments = append(plan.Segments, segments(scene.Windows, vp, "#1f77b4")...)
	plan.Segments = append(plan.Segments, segments(scene.Openings, vp, "#2ca02c")...)
	return plan, nil
}

func segments(surfaces []models.Surface, vp geometry.Viewport, stroke string) []Segment {
	var out []Segment
	for i := range surfaces {
		s := &surfaces[i]
		t := geometry.Planar(s.Transform)
		half := s.Dimensions[0] / 2
		out = append(out, Segment{
			ID:     s.Identifier,
			Kind:   s.Kind(),
			From:   vp.Project(t.Apply(-half, 0)),
			To:     vp.Project(t.Apply(half, 0)),
			Stroke: stroke,
		})
	}
	return out
}

// ============================================================
// SVG
// ============================================================

// SVG renders the floor plan as an SVG document.
func SVG(scene *models.Scene, opts Options) (string, error) {
	plan, err := Layout(scene, opts)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		formatFloat(plan.Width), formatFloat(plan.Height), formatFloat(plan.Width), formatFloat(plan.Height)))
	builder.WriteString("\n")

	if len(plan.Footprint) > 0 {
		builder.WriteString("  ")
		builder.WriteString(renderFootprint(scene.Floors[opts.Floor].Identifier, plan.Footprint))
		builder.WriteString("\n")
	}

	for _, seg := range plan.Segments {
		builder.WriteString("  ")
		builder.WriteString(fmt.Sprintf(`<line id="%s" class="%s" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" />`,
			attr(seg.ID), attr(string(seg.Kind)), formatFloat(seg.From[0]), formatFloat(seg.From[1]),
			formatFloat(seg.To[0]), formatFloat(seg.To[1]), attr(seg.Stroke)))
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

func renderFootprint(id string, ring orb.Ring) string {
	var path strings.Builder
	path.WriteString(`<path id="`)
	path.WriteString(attr(id))
	path.WriteString(`" d="M `)
	path.WriteString(formatPoint(ring[0]))
	for _, p := range ring[1:] {
		path.WriteString(" L ")
		path.WriteString(formatPoint(p))
	}
	path.WriteString(` Z" fill="` + floorFill + `" stroke="` + floorStroke + `" />`)
	return path.String()
}

// ============================================================
// Formatting helpers
// ============================================================

// attr escapes identifiers, which are opaque strings, for attribute values.
func attr(val string) string {
	return html.EscapeString(val)
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}

func formatPoint(p orb.Point) string {
	return formatFloat(p[0]) + " " + formatFloat(p[1])
}
