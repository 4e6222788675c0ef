package models

import (
	"encoding/json"
)

// ============================================================
// Geometry primitives
// ============================================================

// Transform is a 4x4 affine matrix in column-major order.
// Indices 0,1,4,5 hold the planar linear block, 12,13,14 the translation.
type Transform [16]float64

// Dimensions are width, height and depth in the entity's local frame.
type Dimensions [3]float64

// Point3 is a corner of a polygon footprint.
type Point3 [3]float64

// IdentityTransform returns the identity matrix.
func IdentityTransform() Transform {
	return Transform{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns the x, y, z translation components.
func (t Transform) Translation() (float64, float64, float64) {
	return t[12], t[13], t[14]
}

func (t *Transform) UnmarshalJSON(data []byte) error {
	values, err := decodeFixed(data, "transform", len(t))
	if err != nil {
		return err
	}
	copy(t[:], values)
	return nil
}

func (d *Dimensions) UnmarshalJSON(data []byte) error {
	values, err := decodeFixed(data, "dimensions", len(d))
	if err != nil {
		return err
	}
	copy(d[:], values)
	return nil
}

func (p *Point3) UnmarshalJSON(data []byte) error {
	values, err := decodeFixed(data, "polygon corner", len(p))
	if err != nil {
		return err
	}
	copy(p[:], values)
	return nil
}

func decodeFixed(data []byte, field string, n int) ([]float64, error) {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, &InvalidInputError{Field: field, Reason: err.Error()}
	}
	if len(values) != n {
		return nil, &InvalidInputError{Field: field, Reason: lengthReason(n, len(values))}
	}
	return values, nil
}

// ============================================================
// Category & confidence
// ============================================================

// Kind names the entity variant.
type Kind string

const (
	KindFloor   Kind = "floor"
	KindWall    Kind = "wall"
	KindDoor    Kind = "door"
	KindWindow  Kind = "window"
	KindOpening Kind = "opening"
	KindObject  Kind = "object"
)

// DoorState is the door-specific part of a category.
type DoorState struct {
	IsOpen bool `json:"isOpen"`
}

// Category is encoded as a single-key object, e.g. {"door":{"isOpen":true}}
// or {"table":{}}.
type Category struct {
	Name string
	Door *DoorState
}

func (c Category) MarshalJSON() ([]byte, error) {
	if c.Door != nil {
		return json.Marshal(map[string]DoorState{c.Name: *c.Door})
	}
	return json.Marshal(map[string]struct{}{c.Name: {}})
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &InvalidInputError{Field: "category", Reason: err.Error()}
	}
	if len(raw) != 1 {
		return &InvalidInputError{Field: "category", Reason: "expected exactly one key"}
	}

	for name, body := range raw {
		c.Name = name
		c.Door = nil
		if name == string(KindDoor) {
			var door DoorState
			if err := json.Unmarshal(body, &door); err != nil {
				return &InvalidInputError{Field: "category.door", Reason: err.Error()}
			}
			c.Door = &door
		}
	}
	return nil
}

// Confidence is encoded as {"high":{}}, {"medium":{}} or {"low":{}}.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]struct{}{string(c): {}})
}

func (c *Confidence) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &InvalidInputError{Field: "confidence", Reason: err.Error()}
	}
	*c = ""
	for level := range raw {
		*c = Confidence(level)
	}
	return nil
}

// ============================================================
// Entities
// ============================================================

// Entity is the common view over surfaces and furniture objects.
type Entity interface {
	ID() string
	Parent() (string, bool)
	Kind() Kind
	Size() Dimensions
	Pose() Transform
}

// Surface is a floor, wall, door, window or opening.
// Fields are declared in JSON key order so encoding is key-sorted.
type Surface struct {
	Category         Category        `json:"category"`
	CompletedEdges   json.RawMessage `json:"completedEdges"`
	Confidence       Confidence      `json:"confidence"`
	Curve            json.RawMessage `json:"curve"`
	Dimensions       Dimensions      `json:"dimensions"`
	Identifier       string          `json:"identifier"`
	ParentIdentifier *string         `json:"parentIdentifier"`
	PolygonCorners   []Point3        `json:"polygonCorners"`
	Story            int             `json:"story"`
	Transform        Transform       `json:"transform"`
}

func (s *Surface) ID() string       { return s.Identifier }
func (s *Surface) Size() Dimensions { return s.Dimensions }
func (s *Surface) Pose() Transform  { return s.Transform }

func (s *Surface) Parent() (string, bool) {
	if s.ParentIdentifier == nil || *s.ParentIdentifier == "" {
		return "", false
	}
	return *s.ParentIdentifier, true
}

func (s *Surface) Kind() Kind {
	switch Kind(s.Category.Name) {
	case KindFloor, KindWall, KindDoor, KindWindow, KindOpening:
		return Kind(s.Category.Name)
	}
	return KindObject
}

// IsOpen reports the persisted open state of a door.
func (s *Surface) IsOpen() bool {
	return s.Category.Door != nil && s.Category.Door.IsOpen
}

// Object is a detected furniture object.
type Object struct {
	Attributes       map[string]string `json:"attributes"`
	Category         Category          `json:"category"`
	Confidence       Confidence        `json:"confidence"`
	Dimensions       Dimensions        `json:"dimensions"`
	Identifier       string            `json:"identifier"`
	ParentIdentifier *string           `json:"parentIdentifier"`
	Story            int               `json:"story"`
	Transform        Transform         `json:"transform"`
}

func (o *Object) ID() string       { return o.Identifier }
func (o *Object) Kind() Kind       { return KindObject }
func (o *Object) Size() Dimensions { return o.Dimensions }
func (o *Object) Pose() Transform  { return o.Transform }

func (o *Object) Parent() (string, bool) {
	if o.ParentIdentifier == nil || *o.ParentIdentifier == "" {
		return "", false
	}
	return *o.ParentIdentifier, true
}

// Section is a labelled region of a story.
type Section struct {
	Center Point3 `json:"center"`
	Label  string `json:"label"`
	Story  int    `json:"story"`
}

// ============================================================
// Scene
// ============================================================

// Scene is one captured room or merged structure.
type Scene struct {
	CoreModel string    `json:"coreModel,omitempty"`
	Doors     []Surface `json:"doors"`
	Floors    []Surface `json:"floors"`
	Objects   []Object  `json:"objects"`
	Openings  []Surface `json:"openings"`
	Sections  []Section `json:"sections"`
	Story     int       `json:"story"`
	Version   int       `json:"version"`
	Walls     []Surface `json:"walls"`
	Windows   []Surface `json:"windows"`
}

// Entities returns every entity in rendering order:
// floors, walls, doors, windows, openings, objects.
func (s *Scene) Entities() []Entity {
	out := make([]Entity, 0, s.Count())
	for _, group := range [][]Surface{s.Floors, s.Walls, s.Doors, s.Windows, s.Openings} {
		for i := range group {
			out = append(out, &group[i])
		}
	}
	for i := range s.Objects {
		out = append(out, &s.Objects[i])
	}
	return out
}

// Count is the number of entities, sections excluded.
func (s *Scene) Count() int {
	return len(s.Floors) + len(s.Walls) + len(s.Doors) + len(s.Windows) + len(s.Openings) + len(s.Objects)
}

// Lookup maps identifiers to entities.
func (s *Scene) Lookup() map[string]Entity {
	out := make(map[string]Entity, s.Count())
	for _, e := range s.Entities() {
		out[e.ID()] = e
	}
	return out
}

// Ref returns a pointer to id, for building parentIdentifier values.
func Ref(id string) *string {
	return &id
}
