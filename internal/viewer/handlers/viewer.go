package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/newtondotcom/roomplan/internal/scene/cutout"
	"github.com/newtondotcom/roomplan/internal/scene/geometry"
	"github.com/newtondotcom/roomplan/internal/scene/models"
	"github.com/newtondotcom/roomplan/internal/scene/render"
	"github.com/newtondotcom/roomplan/internal/viewer"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Viewer Handler
// ============================================================

type ViewerHandler struct {
	sessions *viewer.Registry
}

func NewViewerHandler(sessions *viewer.Registry) *ViewerHandler {
	return &ViewerHandler{sessions: sessions}
}

type openRequest struct {
	Source string `json:"source"`
}

type doorRequest struct {
	Open bool `json:"open"`
}

type sessionPayload struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	CreatedAt string         `json:"created_at"`
	Version   int            `json:"version"`
	Story     int            `json:"story"`
	Counts    map[string]int `json:"counts"`
}

// Register mounts the viewer routes on router.
func (h *ViewerHandler) Register(router fiber.Router) {
	router.Get("/sessions", h.ListSessions)
	router.Post("/sessions", h.OpenSession)
	router.Get("/sessions/:id", h.GetSession)
	router.Put("/sessions/:id", h.ReloadSession)
	router.Delete("/sessions/:id", h.CloseSession)
	router.Get("/sessions/:id/scene", h.GetScene)
	router.Get("/sessions/:id/floorplan.svg", h.FloorPlanSVG)
	router.Get("/sessions/:id/floorplan.png", h.FloorPlanPNG)
	router.Get("/sessions/:id/viewport", h.Viewport)
	router.Get("/sessions/:id/walls/:wallId/cutouts", h.WallCutouts)
	router.Get("/sessions/:id/frame", h.Frame)
	router.Put("/sessions/:id/doors/:doorId", h.SetDoor)
}

// OpenSession loads a scene into a new viewer session.
func (h *ViewerHandler) OpenSession(c fiber.Ctx) error {
	log.Printf("[VIEWER] Open session request")

	var req openRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if req.Source == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "source required"})
	}

	session, err := h.sessions.Open(c.Context(), req.Source)
	if err != nil {
		log.Printf("[VIEWER] load %s: %v", req.Source, err)
		return writeError(c, err)
	}
	reportDangling(session)

	return c.Status(http.StatusCreated).JSON(mapSession(session))
}

// ListSessions returns every open session.
func (h *ViewerHandler) ListSessions(c fiber.Ctx) error {
	out := []sessionPayload{}
	for _, s := range h.sessions.List() {
		out = append(out, mapSession(s))
	}
	return c.JSON(out)
}

// GetSession returns session metadata.
func (h *ViewerHandler) GetSession(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(mapSession(session))
}

// ReloadSession swaps in a freshly loaded snapshot. An empty body reloads
// the current source.
func (h *ViewerHandler) ReloadSession(c fiber.Ctx) error {
	var req openRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}
	}

	session, err := h.sessions.Reload(c.Context(), c.Params("id"), req.Source)
	if err != nil {
		log.Printf("[VIEWER] reload %s: %v", c.Params("id"), err)
		return writeError(c, err)
	}
	reportDangling(session)

	return c.JSON(mapSession(session))
}

// CloseSession drops a session.
func (h *ViewerHandler) CloseSession(c fiber.Ctx) error {
	if !h.sessions.Close(c.Params("id")) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	return c.SendStatus(http.StatusNoContent)
}

// GetScene returns the session's scene as key-sorted JSON.
func (h *ViewerHandler) GetScene(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}

	data, err := models.Encode(session.Scene())
	if err != nil {
		return writeError(c, err)
	}
	c.Set("Content-Type", "application/json")
	return c.Send(data)
}

// FloorPlanSVG renders the selected floor as SVG.
func (h *ViewerHandler) FloorPlanSVG(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}

	svg, err := render.SVG(session.Scene(), planOptions(c))
	if err != nil {
		log.Printf("[VIEWER] svg render error: %v", err)
		return writeError(c, err)
	}

	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

// FloorPlanPNG renders the selected floor as PNG.
func (h *ViewerHandler) FloorPlanPNG(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}

	data, err := render.PNG(session.Scene(), planOptions(c))
	if err != nil {
		log.Printf("[VIEWER] png render error: %v", err)
		return writeError(c, err)
	}

	c.Set("Content-Type", "image/png")
	return c.Send(data)
}

// Viewport returns the fitted viewport and projected footprint.
func (h *ViewerHandler) Viewport(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}

	plan, err := render.Layout(session.Scene(), planOptions(c))
	if err != nil {
		return writeError(c, err)
	}

	footprint := make([][2]float64, 0, len(plan.Footprint))
	for _, p := range plan.Footprint {
		footprint = append(footprint, p)
	}

	return c.JSON(fiber.Map{
		"width":     plan.Width,
		"height":    plan.Height,
		"viewport":  plan.Viewport,
		"footprint": footprint,
	})
}

// WallCutouts lists the boxes to subtract from a wall.
func (h *ViewerHandler) WallCutouts(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}

	cuts, ok := cutout.NewIndex(session.Scene()).Cutouts(c.Params("wallId"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "wall not found"})
	}
	return c.JSON(fiber.Map{
		"wall":    c.Params("wallId"),
		"cutouts": cuts,
	})
}

// Frame advances the renderer by one frame and returns every primitive's
// pose plus a camera fitted to the scene.
func (h *ViewerHandler) Frame(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}

	for _, key := range []string{"aspect", "fov", "fitOffset"} {
		if v := queryFloat(c, key, 0); math.IsNaN(v) || math.IsInf(v, 0) {
			return writeError(c, &models.InvalidInputError{Field: key, Reason: "must be a finite number"})
		}
	}

	frame := session.Frame()

	cam := render.DefaultCamera(queryFloat(c, "aspect", 1))
	cam.FOV = queryFloat(c, "fov", render.DefaultFOV)
	cam = render.FitCamera(cam, frame.Bounds, queryFloat(c, "fitOffset", render.DefaultFitOffset))

	return c.JSON(fiber.Map{
		"frame":  frame,
		"camera": cam,
	})
}

// SetDoor overrides a door's open state for this session.
func (h *ViewerHandler) SetDoor(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}

	var req doorRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	if err := session.SetDoorOpen(c.Params("doorId"), req.Open); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"door": c.Params("doorId"),
		"open": req.Open,
	})
}

// ============================================================
// Helpers
// ============================================================

func (h *ViewerHandler) session(c fiber.Ctx) (*viewer.Session, error) {
	s, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return nil, viewer.ErrNotFound
	}
	return s, nil
}

// writeError maps scene errors onto the error panel response.
func writeError(c fiber.Ctx, err error) error {
	var (
		fetchErr   *models.FetchError
		parseErr   *models.ParseError
		invalidErr *models.InvalidInputError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &fetchErr):
		status = http.StatusBadGateway
	case errors.As(err, &parseErr):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, viewer.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, render.ErrNoFloor):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &invalidErr):
		status = http.StatusBadRequest
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func planOptions(c fiber.Ctx) render.Options {
	opts := render.DefaultOptions()
	opts.Width = queryFloat(c, "width", opts.Width)
	opts.Height = queryFloat(c, "height", opts.Height)
	opts.Padding = queryFloat(c, "padding", geometry.DefaultPadding)
	opts.Zoom = queryFloat(c, "zoom", 1)
	if floor, err := strconv.Atoi(c.Query("floor")); err == nil {
		opts.Floor = floor
	}
	return opts
}

func queryFloat(c fiber.Ctx, key string, def float64) float64 {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func reportDangling(s *viewer.Session) {
	for _, d := range cutout.NewIndex(s.Scene()).Dangling() {
		log.Printf("[VIEWER] session %s: skipping cutout: %v", s.ID, d)
	}
}

func mapSession(s *viewer.Session) sessionPayload {
	scene := s.Scene()
	return sessionPayload{
		ID:        s.ID,
		Source:    s.Source(),
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		Version:   scene.Version,
		Story:     scene.Story,
		Counts: map[string]int{
			"floors":   len(scene.Floors),
			"walls":    len(scene.Walls),
			"doors":    len(scene.Doors),
			"windows":  len(scene.Windows),
			"openings": len(scene.Openings),
			"objects":  len(scene.Objects),
			"sections": len(scene.Sections),
		},
	}
}
