package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ============================================================
// Decoding
// ============================================================

// Parse decodes and validates a scene document.
func Parse(data []byte) (*Scene, error) {
	var scene Scene
	if err := json.Unmarshal(data, &scene); err != nil {
		return nil, &ParseError{Err: err}
	}
	var raw rawScene
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Err: err}
	}
	if err := scene.normalize(&raw); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &scene, nil
}

// rawScene keeps the keys each entity actually carried, since a missing
// array decodes to zeros.
type rawScene struct {
	Doors    []map[string]json.RawMessage `json:"doors"`
	Floors   []map[string]json.RawMessage `json:"floors"`
	Objects  []map[string]json.RawMessage `json:"objects"`
	Openings []map[string]json.RawMessage `json:"openings"`
	Walls    []map[string]json.RawMessage `json:"walls"`
	Windows  []map[string]json.RawMessage `json:"windows"`
}

var requiredKeys = []string{"dimensions", "transform"}

func requireKeys(id string, keys map[string]json.RawMessage) error {
	for _, key := range requiredKeys {
		if _, ok := keys[key]; !ok {
			return &InvalidInputError{Field: key, Reason: fmt.Sprintf("missing on %s", id)}
		}
	}
	return nil
}

// compactRaw drops null and strips whitespace so re-encoded documents
// compare equal.
func compactRaw(msg json.RawMessage) (json.RawMessage, error) {
	if msg == nil || string(bytes.TrimSpace(msg)) == "null" {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, msg); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

// Decode reads a whole scene document from r.
func Decode(r io.Reader) (*Scene, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("read payload: %w", err)}
	}
	return Parse(data)
}

func (s *Scene) normalize(raw *rawScene) error {
	groups := []struct {
		kind     Kind
		surfaces []Surface
		keys     []map[string]json.RawMessage
	}{
		{KindFloor, s.Floors, raw.Floors},
		{KindWall, s.Walls, raw.Walls},
		{KindDoor, s.Doors, raw.Doors},
		{KindWindow, s.Windows, raw.Windows},
		{KindOpening, s.Openings, raw.Openings},
	}

	seen := make(map[string]struct{}, s.Count())
	claim := func(id string) error {
		if id == "" {
			return fmt.Errorf("entity without identifier")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate identifier %s", id)
		}
		seen[id] = struct{}{}
		return nil
	}

	for _, group := range groups {
		for i := range group.surfaces {
			surface := &group.surfaces[i]
			if err := claim(surface.Identifier); err != nil {
				return err
			}
			if surface.Kind() != group.kind {
				return fmt.Errorf("%s: category %q in %s list", surface.Identifier, surface.Category.Name, group.kind)
			}
			if i < len(group.keys) {
				if err := requireKeys(surface.Identifier, group.keys[i]); err != nil {
					return err
				}
			}

			var err error
			if surface.Curve, err = compactRaw(surface.Curve); err != nil {
				return fmt.Errorf("%s: curve: %w", surface.Identifier, err)
			}
			if surface.CompletedEdges, err = compactRaw(surface.CompletedEdges); err != nil {
				return fmt.Errorf("%s: completedEdges: %w", surface.Identifier, err)
			}
		}
	}

	for i := range s.Objects {
		if err := claim(s.Objects[i].Identifier); err != nil {
			return err
		}
		if i < len(raw.Objects) {
			if err := requireKeys(s.Objects[i].Identifier, raw.Objects[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ============================================================
// Encoding
// ============================================================

// Encode renders the scene as pretty-printed JSON with sorted keys.
func Encode(scene *Scene) ([]byte, error) {
	if scene == nil {
		return nil, fmt.Errorf("scene is nil")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(scene); err != nil {
		return nil, fmt.Errorf("encode scene: %w", err)
	}
	return buf.Bytes(), nil
}
