package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/paulmach/orb"
	"golang.org/x/image/vector"

	"github.com/newtondotcom/roomplan/internal/scene/models"
)

// ============================================================
// PNG
// ============================================================

var (
	pngBackground = color.RGBA{0xff, 0xff, 0xff, 0xff}
	pngFloorFill  = color.RGBA{0xf5, 0xf5, 0xf5, 0xff}
	pngOutline    = color.RGBA{0x99, 0x99, 0x99, 0xff}
	pngWall       = color.RGBA{0x00, 0x00, 0x00, 0xff}
)

// PNG rasterises the floor footprint and walls.
func PNG(scene *models.Scene, opts Options) ([]byte, error) {
	plan, err := Layout(scene, opts)
	if err != nil {
		return nil, err
	}

	w, h := int(math.Ceil(plan.Width)), int(math.Ceil(plan.Height))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(pngBackground), image.Point{}, draw.Src)

	z := vector.NewRasterizer(w, h)
	fillPolygon(z, img, plan.Footprint, pngFloorFill)

	for i := range plan.Footprint {
		next := plan.Footprint[(i+1)%len(plan.Footprint)]
		strokeLine(z, img, plan.Footprint[i], next, 1, pngOutline)
	}
	for _, seg := range plan.Segments {
		c := pngWall
		if seg.Kind != models.KindWall {
			c = parseHex(seg.Stroke)
		}
		strokeLine(z, img, seg.From, seg.To, 2, c)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func fillPolygon(z *vector.Rasterizer, dst draw.Image, ring orb.Ring, c color.Color) {
	if len(ring) < 3 {
		return
	}
	b := dst.Bounds()
	z.Reset(b.Dx(), b.Dy())
	z.MoveTo(float32(ring[0][0]), float32(ring[0][1]))
	for _, p := range ring[1:] {
		z.LineTo(float32(p[0]), float32(p[1]))
	}
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// strokeLine fills the quad of the given width around from-to.
func strokeLine(z *vector.Rasterizer, dst draw.Image, from, to orb.Point, width float64, c color.Color) {
	dx, dy := to[0]-from[0], to[1]-from[1]
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2

	fillPolygon(z, dst, orb.Ring{
		{from[0] + nx, from[1] + ny},
		{to[0] + nx, to[1] + ny},
		{to[0] - nx, to[1] - ny},
		{from[0] - nx, from[1] - ny},
	}, c)
}

func parseHex(s string) color.RGBA {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return pngWall
	}
	return color.RGBA{r, g, b, 0xff}
}
