package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	catalog "github.com/newtondotcom/roomplan/internal/catalog/models"
	"github.com/newtondotcom/roomplan/internal/catalog/repository"
	"github.com/newtondotcom/roomplan/internal/catalog/service"
	"github.com/newtondotcom/roomplan/internal/merge"
	"github.com/newtondotcom/roomplan/internal/scene/models"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// ============================================================
// Catalog Handler
// ============================================================

// Source loads a capture relative to the capture root.
type Source interface {
	Load(ctx context.Context, source string) (*models.Scene, error)
}

type CatalogHandler struct {
	repo     *repository.Repository
	storage  *service.FileStorage
	captures Source
	merger   merge.Merger
}

func NewCatalogHandler(repo *repository.Repository, storage *service.FileStorage, captures Source, merger merge.Merger) *CatalogHandler {
	return &CatalogHandler{
		repo:     repo,
		storage:  storage,
		captures: captures,
		merger:   merger,
	}
}

// createdLayout has fixed width so created_at sorts as text.
const createdLayout = "2006-01-02T15:04:05.000000Z"

type mergeRequest struct {
	Name  string   `json:"name"`
	Rooms []string `json:"rooms"`
}

// Register mounts the catalog routes on router.
func (h *CatalogHandler) Register(router fiber.Router) {
	router.Get("/rooms", h.ListRooms)
	router.Post("/rooms", h.UploadRoom)
	router.Get("/rooms/:name", h.GetRoom)
	router.Post("/merge", h.Merge)
	router.Get("/structures", h.ListStructures)
	router.Get("/structures/:id", h.GetStructure)
	router.Get("/structures/:id/json", h.GetStructureJSON)
}

// ListRooms returns the stored captures, newest first.
func (h *CatalogHandler) ListRooms(c fiber.Ctx) error {
	rooms, err := h.storage.ListCaptures()
	if err != nil {
		log.Printf("[MERGER] list rooms error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list rooms"})
	}
	return c.JSON(rooms)
}

// UploadRoom stores a validated capture under the given room name.
func (h *CatalogHandler) UploadRoom(c fiber.Ctx) error {
	name := c.FormValue("name")
	if !service.ValidName(name) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid room name"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "file required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
	}

	if _, err := models.Parse(data); err != nil {
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.storage.SaveCapture(name, data); err != nil {
		log.Printf("[MERGER] save capture error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save file"})
	}

	return c.Status(http.StatusCreated).JSON(catalog.Capture{
		Name:       name,
		Path:       h.storage.CapturePath(name),
		ModifiedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// GetRoom returns the raw capture of one room.
func (h *CatalogHandler) GetRoom(c fiber.Ctx) error {
	name := c.Params("name")
	if !service.ValidName(name) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid room name"})
	}
	return sendJSONFile(c, h.storage.CapturePath(name))
}

// Merge combines the selected rooms (all rooms when none are selected),
// exports the result and records it in the catalog.
func (h *CatalogHandler) Merge(c fiber.Ctx) error {
	var req mergeRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}
	}

	if len(req.Rooms) == 0 {
		rooms, err := h.storage.ListCaptures()
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list rooms"})
		}
		for _, r := range rooms {
			req.Rooms = append(req.Rooms, r.Name)
		}
	}

	ctx := c.Context()
	var (
		scenes []*models.Scene
		loaded []string
	)
	for _, name := range req.Rooms {
		if !service.ValidName(name) {
			log.Printf("[MERGER] skipping room %q: invalid name", name)
			continue
		}
		scene, err := h.captures.Load(ctx, h.storage.CaptureSource(name))
		if err != nil {
			log.Printf("[MERGER] skipping room %s: %v", name, err)
			continue
		}
		scenes = append(scenes, scene)
		loaded = append(loaded, name)
	}
	if len(scenes) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "no loadable rooms"})
	}

	log.Printf("[MERGER] merging %d rooms: %v", len(scenes), loaded)
	merged, err := merge.Run(ctx, h.merger, scenes)
	if err != nil {
		log.Printf("[MERGER] merge error: %v", err)
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "Merging Error",
			"message": err.Error(),
		})
	}

	id := uuid.NewString()
	if req.Name == "" {
		req.Name = "Structure " + id[:8]
	}
	createdAt := time.Now().UTC().Format(createdLayout)

	meta := map[string]any{
		"id":         id,
		"name":       req.Name,
		"rooms":      loaded,
		"version":    merged.Version,
		"story":      merged.Story,
		"created_at": createdAt,
	}
	if err := h.storage.Export(id, merged, meta); err != nil {
		log.Printf("[MERGER] export error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Export Error",
			"message": err.Error(),
		})
	}

	structure := &catalog.Structure{
		ID:        id,
		Name:      req.Name,
		Rooms:     loaded,
		JSONPath:  h.storage.StructurePath(id),
		Walls:     len(merged.Walls),
		Doors:     len(merged.Doors),
		Windows:   len(merged.Windows),
		Openings:  len(merged.Openings),
		Objects:   len(merged.Objects),
		CreatedAt: createdAt,
	}
	if err := h.repo.Create(ctx, structure); err != nil {
		log.Printf("[MERGER] catalog error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Export Error",
			"message": err.Error(),
		})
	}

	return c.Status(http.StatusCreated).JSON(structure)
}

// ListStructures returns exported structures, newest first.
func (h *CatalogHandler) ListStructures(c fiber.Ctx) error {
	list, err := h.repo.List(c.Context())
	if err != nil {
		log.Printf("[MERGER] list structures error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list structures"})
	}
	return c.JSON(list)
}

func (h *CatalogHandler) GetStructure(c fiber.Ctx) error {
	s, err := h.structure(c)
	if err != nil {
		return err
	}
	return c.JSON(s)
}

// GetStructureJSON returns the exported structure document.
func (h *CatalogHandler) GetStructureJSON(c fiber.Ctx) error {
	s, err := h.structure(c)
	if err != nil {
		return err
	}
	return sendJSONFile(c, s.JSONPath)
}

// ============================================================
// Helpers
// ============================================================

func (h *CatalogHandler) structure(c fiber.Ctx) (*catalog.Structure, error) {
	s, err := h.repo.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fiber.NewError(http.StatusNotFound, "structure not found")
		}
		log.Printf("[MERGER] get structure error: %v", err)
		return nil, fiber.NewError(http.StatusInternalServerError, "failed to load structure")
	}
	return s, nil
}

func sendJSONFile(c fiber.Ctx, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "file not found"})
	}
	c.Set("Content-Type", "application/json")
	return c.Send(data)
}
