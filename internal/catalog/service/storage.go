package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	catalog "github.com/newtondotcom/roomplan/internal/catalog/models"
	"github.com/newtondotcom/roomplan/internal/scene/models"
)

// ============================================================
// File Storage
// ============================================================

const (
	CaptureFile   = "capturedRoom.json"
	StructureFile = "structure.json"
	MetadataFile  = "metadata.json"
)

type FileStorage struct {
	captures string
	exports  string
}

func NewFileStorage(captures, exports string) *FileStorage {
	return &FileStorage{captures: captures, exports: exports}
}

// ValidName reports whether name can be used as a room directory.
func ValidName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func (s *FileStorage) RoomDir(name string) string {
	return filepath.Join(s.captures, name)
}

// CaptureSource is the capture path relative to the capture root.
func (s *FileStorage) CaptureSource(name string) string {
	return filepath.Join(name, CaptureFile)
}

func (s *FileStorage) CapturePath(name string) string {
	return filepath.Join(s.RoomDir(name), CaptureFile)
}

func (s *FileStorage) ExportDir(id string) string {
	return filepath.Join(s.exports, id)
}

func (s *FileStorage) StructurePath(id string) string {
	return filepath.Join(s.ExportDir(id), StructureFile)
}

func (s *FileStorage) MetadataPath(id string) string {
	return filepath.Join(s.ExportDir(id), MetadataFile)
}

// SaveCapture stores data as the capture of room name.
func (s *FileStorage) SaveCapture(name string, data []byte) error {
	if !ValidName(name) {
		return fmt.Errorf("invalid room name %q", name)
	}
	if err := os.MkdirAll(s.RoomDir(name), 0o755); err != nil {
		return fmt.Errorf("mkdir room dir: %w", err)
	}
	return os.WriteFile(s.CapturePath(name), data, 0o644)
}

// ListCaptures returns the room directories, newest first. Hidden entries
// and plain files are skipped.
func (s *FileStorage) ListCaptures() ([]catalog.Capture, error) {
	entries, err := os.ReadDir(s.captures)
	if err != nil {
		if os.IsNotExist(err) {
			return []catalog.Capture{}, nil
		}
		return nil, err
	}

	type dated struct {
		capture catalog.Capture
		mod     time.Time
	}
	var rooms []dated
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		rooms = append(rooms, dated{
			capture: catalog.Capture{
				Name:       e.Name(),
				Path:       s.CapturePath(e.Name()),
				ModifiedAt: info.ModTime().UTC().Format(time.RFC3339),
			},
			mod: info.ModTime(),
		})
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].mod.Equal(rooms[j].mod) {
			return rooms[i].capture.Name < rooms[j].capture.Name
		}
		return rooms[i].mod.After(rooms[j].mod)
	})

	out := make([]catalog.Capture, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.capture)
	}
	return out, nil
}

// Export writes the merged structure and its metadata sidecar into a
// freshly recreated export directory.
func (s *FileStorage) Export(id string, scene *models.Scene, meta map[string]any) error {
	dir := s.ExportDir(id)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear export dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir export dir: %w", err)
	}

	data, err := models.Encode(scene)
	if err != nil {
		return fmt.Errorf("encode structure: %w", err)
	}
	if err := os.WriteFile(s.StructurePath(id), data, 0o644); err != nil {
		return fmt.Errorf("write structure: %w", err)
	}

	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(s.MetadataPath(id), metaData, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
