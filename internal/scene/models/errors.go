package models

import (
	"fmt"
)

// ============================================================
// Error taxonomy
// ============================================================

// FetchError reports that a scene could not be retrieved.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a payload that does not match the scene schema.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse scene: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InvalidInputError reports a malformed value such as a transform
// that does not have 16 elements.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DegenerateGeometryError reports a zero-extent bounding box.
// Callers recover by using the fallback value returned alongside it.
type DegenerateGeometryError struct {
	Width  float64
	Height float64
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate geometry: extent %gx%g", e.Width, e.Height)
}

// DanglingReferenceError reports a child whose parentIdentifier matches no wall.
type DanglingReferenceError struct {
	Identifier       string
	ParentIdentifier string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s references unknown wall %s", e.Identifier, e.ParentIdentifier)
}

func lengthReason(want, got int) string {
	return fmt.Sprintf("expected %d elements, got %d", want, got)
}
