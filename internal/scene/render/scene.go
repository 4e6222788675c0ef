package render

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/newtondotcom/roomplan/internal/scene/cutout"
	"github.com/newtondotcom/roomplan/internal/scene/models"
)

// ============================================================
// Primitives
// ============================================================

type Shape string

const (
	ShapeBox   Shape = "box"
	ShapePlane Shape = "plane"
)

// Fixed view-only rotations.
const (
	FloorTilt = -math.Pi / 2
	DoorSwing = -math.Pi / 2
)

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisY = mgl64.Vec3{0, 1, 0}
)

// CutoutPose is a box to subtract from a wall, in the wall's local frame.
type CutoutPose struct {
	Size [3]float64 `json:"size"`
	Pose Pose       `json:"pose"`
}

// Primitive is one renderable mesh bound to a scene entity.
type Primitive struct {
	ID       string       `json:"id"`
	Kind     models.Kind  `json:"kind"`
	Shape    Shape        `json:"shape"`
	Size     [3]float64   `json:"size"`
	Color    string       `json:"color"`
	Opacity  float64      `json:"opacity"`
	Open     bool         `json:"open,omitempty"`
	Pose     Pose         `json:"pose"`
	Cutouts  []CutoutPose `json:"cutouts,omitempty"`
	entity   models.Entity
	children []cutout.Cutout
}

// Frame is the state of every primitive after one update.
type Frame struct {
	Sequence   uint64      `json:"sequence"`
	Primitives []Primitive `json:"primitives"`
	Bounds     Box         `json:"bounds"`
}

func newPrimitive(e models.Entity) *Primitive {
	p := &Primitive{ID: e.ID(), Kind: e.Kind(), Shape: ShapeBox, Opacity: 1, entity: e}
	size := e.Size()

	switch e.Kind() {
	case models.KindFloor:
		p.Shape = ShapePlane
		p.Size = [3]float64{size[0], size[1], 0}
		p.Color = "lightgray"
	case models.KindWall:
		p.Size = size
		p.Color = "gray"
	case models.KindDoor:
		p.Size = size
		p.Color = "brown"
	case models.KindWindow:
		p.Size = size
		p.Color = "blue"
		p.Opacity = 0.5
	default:
		p.Size = size
		p.Color = "orange"
	}
	return p
}

// ============================================================
// Renderer
// ============================================================

// Renderer keeps one primitive per entity and refreshes every pose from
// the entity's transform on each frame.
type Renderer struct {
	mu         sync.Mutex
	built      *models.Scene
	primitives []*Primitive
	sequence   uint64
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Frame updates all primitives against scene. A different snapshot
// rebuilds the primitive set; open overrides a door's persisted state.
func (r *Renderer) Frame(scene *models.Scene, open map[string]bool) Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	if scene != r.built {
		r.build(scene)
	}
	r.sequence++

	frame := Frame{
		Sequence:   r.sequence,
		Primitives: make([]Primitive, 0, len(r.primitives)),
		Bounds:     EmptyBox(),
	}
	for _, p := range r.primitives {
		r.update(p, open)
		frame.Primitives = append(frame.Primitives, *p)
		frame.Bounds = frame.Bounds.Union(p.bounds())
	}
	return frame
}

func (r *Renderer) build(scene *models.Scene) {
	r.built = scene
	r.primitives = r.primitives[:0]
	if scene == nil {
		return
	}

	for _, e := range scene.Entities() {
		// Openings only exist as wall cutouts.
		if e.Kind() == models.KindOpening {
			continue
		}
		p := newPrimitive(e)
		if wall, ok := e.(*models.Surface); ok && e.Kind() == models.KindWall {
			p.children = cutout.ForWall(wall, scene.Doors, scene.Windows, scene.Openings)
		}
		r.primitives = append(r.primitives, p)
	}
}

func (r *Renderer) update(p *Primitive, open map[string]bool) {
	transform := p.entity.Pose()
	pose := Decompose(transform)

	switch p.Kind {
	case models.KindFloor:
		pose = pose.Rotate(FloorTilt, axisX)
	case models.KindDoor:
		isOpen := false
		if door, ok := p.entity.(*models.Surface); ok {
			isOpen = door.IsOpen()
		}
		if v, ok := open[p.ID]; ok {
			isOpen = v
		}
		p.Open = isOpen
		if isOpen {
			pose = pose.Rotate(DoorSwing, axisY)
		}
	}
	p.Pose = pose

	if len(p.children) > 0 {
		cuts := make([]CutoutPose, 0, len(p.children))
		for _, c := range p.children {
			cuts = append(cuts, CutoutPose{
				Size: c.Dimensions,
				Pose: Relative(transform, c.Transform),
			})
		}
		p.Cutouts = cuts
	}
}

func (p *Primitive) bounds() Box {
	hx, hy, hz := p.Size[0]/2, p.Size[1]/2, p.Size[2]/2
	m := p.Pose.Matrix()

	box := EmptyBox()
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				v := m.Mul4x1(mgl64.Vec4{sx * hx, sy * hy, sz * hz, 1})
				box = box.Expand(v.Vec3())
			}
		}
	}
	return box
}
