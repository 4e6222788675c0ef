package render

import (
	"encoding/json"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ============================================================
// Bounds
// ============================================================

// Box is an axis-aligned box in world space.
type Box struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

func (b Box) IsEmpty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

func (b Box) Expand(p mgl64.Vec3) Box {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
	return b
}

func (b Box) Union(o Box) Box {
	if o.IsEmpty() {
		return b
	}
	return b.Expand(o.Min).Expand(o.Max)
}

func (b Box) Size() mgl64.Vec3 {
	if b.IsEmpty() {
		return mgl64.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

func (b Box) Center() mgl64.Vec3 {
	if b.IsEmpty() {
		return mgl64.Vec3{}
	}
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Box) MarshalJSON() ([]byte, error) {
	if b.IsEmpty() {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Min [3]float64 `json:"min"`
		Max [3]float64 `json:"max"`
	}{b.Min, b.Max})
}

// ============================================================
// Camera fitting
// ============================================================

const (
	DefaultFOV       = 75.0
	DefaultFitOffset = 1.5
)

// Camera is a perspective camera orbiting a target.
type Camera struct {
	Position    mgl64.Vec3
	Target      mgl64.Vec3
	FOV         float64
	Aspect      float64
	Near        float64
	Far         float64
	MaxDistance float64
}

// DefaultCamera looks down -z from five units away.
func DefaultCamera(aspect float64) Camera {
	return Camera{
		Position: mgl64.Vec3{0, 0, 5},
		FOV:      DefaultFOV,
		Aspect:   aspect,
		Near:     0.1,
		Far:      1000,
	}
}

func (c Camera) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Position    [3]float64 `json:"position"`
		Target      [3]float64 `json:"target"`
		FOV         float64    `json:"fov"`
		Aspect      float64    `json:"aspect"`
		Near        float64    `json:"near"`
		Far         float64    `json:"far"`
		MaxDistance float64    `json:"maxDistance"`
	}{c.Position, c.Target, c.FOV, c.Aspect, c.Near, c.Far, c.MaxDistance})
}

// FitCamera moves the camera along its current view direction so that
// bounds fill the view, keeping fitOffset as margin.
func FitCamera(cam Camera, bounds Box, fitOffset float64) Camera {
	if bounds.IsEmpty() {
		return cam
	}
	if fitOffset <= 0 {
		fitOffset = DefaultFitOffset
	}
	if cam.Aspect <= 0 {
		cam.Aspect = 1
	}

	size := bounds.Size()
	maxSize := math.Max(size[0], math.Max(size[1], size[2]))
	fitHeightDistance := maxSize / (2 * math.Tan(mgl64.DegToRad(cam.FOV)/2))
	fitWidthDistance := fitHeightDistance / cam.Aspect
	distance := fitOffset * math.Max(fitHeightDistance, fitWidthDistance)

	direction := cam.Target.Sub(cam.Position)
	if direction.Len() == 0 {
		direction = mgl64.Vec3{0, 0, -1}
	}
	direction = direction.Normalize().Mul(distance)

	cam.MaxDistance = distance * 10
	cam.Target = bounds.Center()
	cam.Near = distance / 100
	cam.Far = distance * 100
	cam.Position = cam.Target.Sub(direction)
	return cam
}
