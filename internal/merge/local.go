package merge

import (
	"context"
	"fmt"

	"github.com/newtondotcom/roomplan/internal/scene/models"
)

// ============================================================
// Local merge
// ============================================================

// Local stitches captures that already share a coordinate frame. Entities
// keep capture order; a repeated identifier keeps its first occurrence.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

func (Local) Merge(ctx context.Context, captures []*models.Scene) (*models.Scene, error) {
	if len(captures) == 0 {
		return nil, &Error{Message: "no rooms to merge"}
	}

	out := &models.Scene{
		Story:    captures[0].Story,
		Doors:    []models.Surface{},
		Floors:   []models.Surface{},
		Objects:  []models.Object{},
		Openings: []models.Surface{},
		Sections: []models.Section{},
		Walls:    []models.Surface{},
		Windows:  []models.Surface{},
	}
	seen := make(map[string]bool)

	for i, capture := range captures {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if capture == nil {
			return nil, &Error{Message: fmt.Sprintf("room %d is empty", i+1)}
		}
		if capture.Story != out.Story {
			return nil, &Error{Message: fmt.Sprintf("rooms are on different stories (%d and %d)", out.Story, capture.Story)}
		}

		if capture.Version > out.Version {
			out.Version = capture.Version
		}
		if out.CoreModel == "" {
			out.CoreModel = capture.CoreModel
		}

		out.Floors = appendSurfaces(out.Floors, capture.Floors, seen)
		out.Walls = appendSurfaces(out.Walls, capture.Walls, seen)
		out.Doors = appendSurfaces(out.Doors, capture.Doors, seen)
		out.Windows = appendSurfaces(out.Windows, capture.Windows, seen)
		out.Openings = appendSurfaces(out.Openings, capture.Openings, seen)
		for _, o := range capture.Objects {
			if seen[o.Identifier] {
				continue
			}
			seen[o.Identifier] = true
			out.Objects = append(out.Objects, o)
		}
		out.Sections = append(out.Sections, capture.Sections...)
	}

	return out, nil
}

func appendSurfaces(dst, src []models.Surface, seen map[string]bool) []models.Surface {
	for _, s := range src {
		if seen[s.Identifier] {
			continue
		}
		seen[s.Identifier] = true
		dst = append(dst, s)
	}
	return dst
}
