package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newtondotcom/roomplan/internal/scene/models"
)

const roomJSON = `{
  "floors": [{"category": {"floor": {}}, "identifier": "F1", "dimensions": [4, 3, 0],
    "transform": [1,0,0,0, 0,1,0,0, 0,0,1,0, 2,1,0,1]}],
  "walls": [], "doors": [], "windows": [], "openings": [], "objects": [], "sections": [],
  "story": 0, "version": 2
}`

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "room.json"), []byte(roomJSON), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	l := New(dir, time.Second)
	scene, err := l.Load(context.Background(), "room.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(scene.Floors) != 1 || scene.Floors[0].Identifier != "F1" {
		t.Fatalf("scene = %+v", scene)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"walls": [`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := New(dir, time.Second)

	var fetchErr *models.FetchError
	if _, err := l.Load(context.Background(), "missing.json"); !errors.As(err, &fetchErr) {
		t.Fatalf("missing file error = %v", err)
	}

	var parseErr *models.ParseError
	if _, err := l.Load(context.Background(), "broken.json"); !errors.As(err, &parseErr) {
		t.Fatalf("broken file error = %v", err)
	}

	// Traversal is clamped to the scene directory.
	if _, err := l.Load(context.Background(), "../../etc/passwd"); !errors.As(err, &fetchErr) {
		t.Fatalf("traversal error = %v", err)
	}

	if _, err := New("", time.Second).Load(context.Background(), "room.json"); !errors.As(err, &fetchErr) {
		t.Fatalf("no root error = %v", err)
	}
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/room.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(roomJSON))
		case "/garbage.json":
			w.Write([]byte("<html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := New("", time.Second).AllowHosts("127.0.0.1")

	scene, err := l.Load(context.Background(), srv.URL+"/room.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if scene.Version != 2 {
		t.Fatalf("version = %d", scene.Version)
	}

	var fetchErr *models.FetchError
	if _, err := l.Load(context.Background(), srv.URL+"/nope.json"); !errors.As(err, &fetchErr) {
		t.Fatalf("404 error = %v", err)
	}

	var parseErr *models.ParseError
	if _, err := l.Load(context.Background(), srv.URL+"/garbage.json"); !errors.As(err, &parseErr) {
		t.Fatalf("garbage error = %v", err)
	}
}

func TestLoadURLCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var fetchErr *models.FetchError
	_, err := New("", 5*time.Second).AllowHosts("*").Load(ctx, srv.URL+"/room.json")
	if !errors.As(err, &fetchErr) || !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled error = %v", err)
	}
}

func TestLoadURLHostNotAllowed(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(roomJSON))
	}))
	defer srv.Close()

	var invalid *models.InvalidInputError
	if _, err := New("", time.Second).Load(context.Background(), srv.URL+"/room.json"); !errors.As(err, &invalid) {
		t.Fatalf("default loader error = %v", err)
	}
	if _, err := New("", time.Second).AllowHosts("scenes.internal").Load(context.Background(), srv.URL+"/room.json"); !errors.As(err, &invalid) {
		t.Fatalf("other host error = %v", err)
	}
	if _, err := New("", time.Second).AllowHosts("*").Load(context.Background(), "http:///room.json"); !errors.As(err, &invalid) {
		t.Fatalf("hostless url error = %v", err)
	}
	if hits != 0 {
		t.Fatalf("refused url was fetched %d times", hits)
	}
}
