package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newtondotcom/roomplan/internal/scene/models"
)

func TestValidName(t *testing.T) {
	cases := map[string]bool{
		"kitchen":     true,
		"Living Room": true,
		"":            false,
		".hidden":     false,
		"..":          false,
		"a/b":         false,
		`a\b`:         false,
	}
	for name, want := range cases {
		if got := ValidName(name); got != want {
			t.Fatalf("ValidName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestListCapturesNewestFirst(t *testing.T) {
	root := t.TempDir()
	s := NewFileStorage(root, t.TempDir())

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"old", "newest", "middle"} {
		if err := s.SaveCapture(name, []byte("{}")); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		mod := base.Add(time.Duration([]int{0, 2, 1}[i]) * time.Hour)
		if err := os.Chtimes(s.RoomDir(name), mod, mod); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(root, ".cache"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	list, err := s.ListCaptures()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Name != "newest" || list[1].Name != "middle" || list[2].Name != "old" {
		t.Fatalf("list = %+v", list)
	}
	if list[0].Path != filepath.Join(root, "newest", CaptureFile) {
		t.Fatalf("path = %s", list[0].Path)
	}
}

func TestListCapturesMissingRoot(t *testing.T) {
	s := NewFileStorage(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	list, err := s.ListCaptures()
	if err != nil || len(list) != 0 {
		t.Fatalf("list = %v, %v", list, err)
	}
}

func TestSaveCaptureRejectsBadName(t *testing.T) {
	s := NewFileStorage(t.TempDir(), t.TempDir())
	if err := s.SaveCapture("../escape", []byte("{}")); err == nil {
		t.Fatalf("expected invalid name error")
	}
}

func TestExportRecreatesDir(t *testing.T) {
	s := NewFileStorage(t.TempDir(), t.TempDir())

	stale := filepath.Join(s.ExportDir("s1"), "stale.usdz")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	scene := &models.Scene{Version: 2, Walls: []models.Surface{{
		Identifier: "W1",
		Category:   models.Category{Name: string(models.KindWall)},
		Dimensions: models.Dimensions{3, 2.5, 0.1},
		Transform:  models.IdentityTransform(),
	}}}
	meta := map[string]any{"name": "Flat", "rooms": []string{"a", "b"}}
	if err := s.Export("s1", scene, meta); err != nil {
		t.Fatalf("export: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale file survived export: %v", err)
	}

	data, err := os.ReadFile(s.StructurePath("s1"))
	if err != nil {
		t.Fatalf("read structure: %v", err)
	}
	back, err := models.Parse(data)
	if err != nil {
		t.Fatalf("parse structure: %v", err)
	}
	if len(back.Walls) != 1 || back.Walls[0].Identifier != "W1" {
		t.Fatalf("structure = %+v", back)
	}

	var gotMeta map[string]any
	raw, err := os.ReadFile(s.MetadataPath("s1"))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if err := json.Unmarshal(raw, &gotMeta); err != nil || gotMeta["name"] != "Flat" {
		t.Fatalf("metadata = %s (%v)", raw, err)
	}
}
