package merge

import (
	"context"
	"fmt"

	"github.com/newtondotcom/roomplan/internal/scene/models"
)

// ============================================================
// Merger
// ============================================================

// Merger combines several room captures into one structure.
type Merger interface {
	Merge(ctx context.Context, captures []*models.Scene) (*models.Scene, error)
}

// Error is a merge failure. Message is shown to the user as is.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

type result struct {
	scene *models.Scene
	err   error
}

// Run executes one merge on a background goroutine and waits for it or ctx.
// The goroutine is abandoned, not killed, when ctx ends first.
func Run(ctx context.Context, m Merger, captures []*models.Scene) (*models.Scene, error) {
	done := make(chan result, 1)
	go func() {
		scene, err := m.Merge(ctx, captures)
		done <- result{scene: scene, err: err}
	}()

	select {
	case r := <-done:
		return r.scene, r.err
	case <-ctx.Done():
		return nil, &Error{Message: fmt.Sprintf("merge cancelled: %v", ctx.Err()), Err: ctx.Err()}
	}
}
