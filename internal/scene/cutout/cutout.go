package cutout

import (
	"github.com/newtondotcom/roomplan/internal/scene/models"
)

// ============================================================
// Cutout compositor
// ============================================================

// Cutout is a box to subtract from a wall.
type Cutout struct {
	Dimensions models.Dimensions `json:"dimensions"`
	Transform  models.Transform  `json:"transform"`
}

// ForWall collects the doors, windows and openings mounted in wall,
// in that order, keeping each collection's order.
func ForWall(wall *models.Surface, doors, windows, openings []models.Surface) []Cutout {
	out := []Cutout{}
	for _, group := range [][]models.Surface{doors, windows, openings} {
		for i := range group {
			if parent, ok := group[i].Parent(); ok && parent == wall.Identifier {
				out = append(out, Cutout{
					Dimensions: group[i].Dimensions,
					Transform:  group[i].Transform,
				})
			}
		}
	}
	return out
}

// ============================================================
// Index
// ============================================================

// Index resolves wall references for a whole scene.
type Index struct {
	scene *models.Scene
	walls map[string]*models.Surface
}

func NewIndex(scene *models.Scene) *Index {
	walls := make(map[string]*models.Surface, len(scene.Walls))
	for i := range scene.Walls {
		walls[scene.Walls[i].Identifier] = &scene.Walls[i]
	}
	return &Index{scene: scene, walls: walls}
}

// Wall returns the wall with the given identifier.
func (x *Index) Wall(id string) (*models.Surface, bool) {
	w, ok := x.walls[id]
	return w, ok
}

// Cutouts returns the cutouts for the wall with the given identifier.
func (x *Index) Cutouts(wallID string) ([]Cutout, bool) {
	wall, ok := x.walls[wallID]
	if !ok {
		return nil, false
	}
	return ForWall(wall, x.scene.Doors, x.scene.Windows, x.scene.Openings), true
}

// Dangling lists children whose parent is not a wall of the scene. Those
// children contribute no cutout.
func (x *Index) Dangling() []*models.DanglingReferenceError {
	var out []*models.DanglingReferenceError
	for _, group := range [][]models.Surface{x.scene.Doors, x.scene.Windows, x.scene.Openings} {
		for i := range group {
			parent, ok := group[i].Parent()
			if !ok {
				continue
			}
			if _, found := x.walls[parent]; !found {
				out = append(out, &models.DanglingReferenceError{
					Identifier:       group[i].Identifier,
					ParentIdentifier: parent,
				})
			}
		}
	}
	return out
}
