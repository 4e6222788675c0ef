package viewer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/newtondotcom/roomplan/internal/scene/models"
	"github.com/newtondotcom/roomplan/internal/scene/render"
)

// ============================================================
// Session
// ============================================================

var ErrNotFound = errors.New("not found")

// Source loads a scene by name or URL.
type Source interface {
	Load(ctx context.Context, source string) (*models.Scene, error)
}

// Session is one viewer over an immutable scene snapshot.
type Session struct {
	ID        string
	CreatedAt time.Time

	source   atomic.Value
	scene    atomic.Pointer[models.Scene]
	renderer *render.Renderer

	mu   sync.Mutex
	open map[string]bool
}

func newSession(id, source string, scene *models.Scene) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		renderer:  render.NewRenderer(),
		open:      make(map[string]bool),
	}
	s.swap(source, scene)
	return s
}

// Scene returns the current snapshot. Callers must not modify it.
func (s *Session) Scene() *models.Scene {
	return s.scene.Load()
}

// Source returns where the current snapshot was loaded from.
func (s *Session) Source() string {
	v, _ := s.source.Load().(string)
	return v
}

// swap replaces the snapshot and its door overrides together, so overrides
// set against one snapshot never apply to the next.
func (s *Session) swap(source string, scene *models.Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = make(map[string]bool)
	s.scene.Store(scene)
	s.source.Store(source)
}

// SetDoorOpen overrides the open state of a door for this session only.
func (s *Session) SetDoorOpen(doorID string, open bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scene := s.scene.Load()
	for i := range scene.Doors {
		if scene.Doors[i].Identifier == doorID {
			s.open[doorID] = open
			return nil
		}
	}
	return fmt.Errorf("door %s: %w", doorID, ErrNotFound)
}

// Frame renders one frame of the current snapshot.
func (s *Session) Frame() render.Frame {
	s.mu.Lock()
	scene := s.scene.Load()
	open := make(map[string]bool, len(s.open))
	for k, v := range s.open {
		open[k] = v
	}
	s.mu.Unlock()

	return s.renderer.Frame(scene, open)
}

// ============================================================
// Registry
// ============================================================

type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	loader   Source
}

func NewRegistry(loader Source) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		loader:   loader,
	}
}

// Open loads source into a new session.
func (r *Registry) Open(ctx context.Context, source string) (*Session, error) {
	return r.OpenWithID(ctx, uuid.NewString(), source)
}

// OpenWithID loads source into a session with a fixed id, replacing any
// existing session with that id.
func (r *Registry) OpenWithID(ctx context.Context, id, source string) (*Session, error) {
	scene, err := r.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	s := newSession(id, source, scene)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s, nil
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	return s, ok
}

// Reload replaces the session's snapshot. On failure the previous
// snapshot stays in place.
func (r *Registry) Reload(ctx context.Context, id, source string) (*Session, error) {
	s, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if source == "" {
		source = s.Source()
	}

	scene, err := r.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	s.swap(source, scene)
	return s, nil
}

func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// List returns sessions ordered by creation time.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
