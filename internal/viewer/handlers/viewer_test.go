package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/newtondotcom/roomplan/internal/scene/loader"
	"github.com/newtondotcom/roomplan/internal/viewer"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	fixture, err := os.ReadFile(filepath.Join("..", "..", "scene", "models", "testdata", "room.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	dir := t.TempDir()
	files := map[string]string{
		"room.json":   string(fixture),
		"broken.json": `{"walls": [`,
		"empty.json":  `{"floors": [], "walls": [], "doors": [], "windows": [], "openings": [], "objects": [], "sections": [], "story": 0, "version": 2}`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	app := fiber.New()
	NewViewerHandler(viewer.NewRegistry(loader.New(dir, time.Second))).Register(app)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func openSession(t *testing.T, app *fiber.App, source string) string {
	t.Helper()

	status, body := do(t, app, http.MethodPost, "/sessions", `{"source":"`+source+`"}`)
	if status != http.StatusCreated {
		t.Fatalf("open status = %d body=%s", status, body)
	}
	var payload sessionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return payload.ID
}

func TestOpenSessionErrors(t *testing.T) {
	app := newTestApp(t)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing source", `{}`, http.StatusBadRequest},
		{"missing file", `{"source":"nope.json"}`, http.StatusBadGateway},
		{"broken file", `{"source":"broken.json"}`, http.StatusUnprocessableEntity},
		{"remote host not allowed", `{"source":"http://169.254.169.254/latest/meta-data"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		status, body := do(t, app, http.MethodPost, "/sessions", tc.body)
		if status != tc.status {
			t.Fatalf("%s: status = %d, want %d (body %s)", tc.name, status, tc.status, body)
		}
		if !strings.Contains(string(body), `"error"`) {
			t.Fatalf("%s: body has no error: %s", tc.name, body)
		}
	}

	if status, body := do(t, app, http.MethodGet, "/sessions", ""); status != http.StatusOK || string(body) != "[]" {
		t.Fatalf("failed opens left sessions: %d %s", status, body)
	}
}

func TestSessionLifecycle(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app, "room.json")

	status, body := do(t, app, http.MethodGet, "/sessions/"+id, "")
	if status != http.StatusOK {
		t.Fatalf("get status = %d", status)
	}
	var payload sessionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Source != "room.json" || payload.Version != 2 || payload.Counts["walls"] != 2 {
		t.Fatalf("payload = %+v", payload)
	}

	if status, _ := do(t, app, http.MethodPut, "/sessions/"+id, `{"source":"broken.json"}`); status != http.StatusUnprocessableEntity {
		t.Fatalf("bad reload status = %d", status)
	}
	if status, _ := do(t, app, http.MethodPut, "/sessions/"+id, ""); status != http.StatusOK {
		t.Fatalf("reload status = %d", status)
	}

	if status, _ := do(t, app, http.MethodDelete, "/sessions/"+id, ""); status != http.StatusNoContent {
		t.Fatalf("delete status = %d", status)
	}
	if status, _ := do(t, app, http.MethodGet, "/sessions/"+id, ""); status != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", status)
	}
	if status, _ := do(t, app, http.MethodDelete, "/sessions/"+id, ""); status != http.StatusNotFound {
		t.Fatalf("second delete status = %d", status)
	}
}

func TestSceneAndFloorPlan(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app, "room.json")

	status, body := do(t, app, http.MethodGet, "/sessions/"+id+"/scene", "")
	if status != http.StatusOK || !strings.Contains(string(body), `"identifier": "W1"`) {
		t.Fatalf("scene status = %d body=%s", status, body)
	}

	status, body = do(t, app, http.MethodGet, "/sessions/"+id+"/floorplan.svg?width=400&height=300", "")
	if status != http.StatusOK || !strings.Contains(string(body), "<svg") {
		t.Fatalf("svg status = %d body=%.80s", status, body)
	}

	status, body = do(t, app, http.MethodGet, "/sessions/"+id+"/floorplan.png", "")
	if status != http.StatusOK || !strings.HasPrefix(string(body), "\x89PNG") {
		t.Fatalf("png status = %d", status)
	}

	if status, _ := do(t, app, http.MethodGet, "/sessions/"+id+"/floorplan.svg?floor=4", ""); status != http.StatusBadRequest {
		t.Fatalf("bad floor status = %d", status)
	}

	empty := openSession(t, app, "empty.json")
	if status, _ := do(t, app, http.MethodGet, "/sessions/"+empty+"/floorplan.svg", ""); status != http.StatusUnprocessableEntity {
		t.Fatalf("no floor status = %d", status)
	}
}

func TestCanvasQueryRejected(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app, "room.json")

	for _, path := range []string{
		"/floorplan.png?width=NaN",
		"/floorplan.png?width=1e12&height=1e12",
		"/floorplan.png?width=60000&height=60000",
		"/floorplan.svg?height=Inf",
		"/floorplan.svg?zoom=1e300",
		"/viewport?width=NaN",
		"/frame?fov=Inf",
		"/frame?aspect=NaN",
	} {
		status, body := do(t, app, http.MethodGet, "/sessions/"+id+path, "")
		if status != http.StatusBadRequest {
			t.Fatalf("%s status = %d body=%s", path, status, body)
		}
	}
}

func TestViewport(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app, "room.json")

	status, body := do(t, app, http.MethodGet, "/sessions/"+id+"/viewport?width=800&height=600&padding=20", "")
	if status != http.StatusOK {
		t.Fatalf("viewport status = %d body=%s", status, body)
	}

	var payload struct {
		Viewport struct {
			Zoom float64 `json:"zoom"`
		} `json:"viewport"`
		Footprint [][2]float64 `json:"footprint"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Viewport.Zoom <= 0 || len(payload.Footprint) != 4 {
		t.Fatalf("viewport = %+v", payload)
	}
	for _, p := range payload.Footprint {
		if p[0] < 20-1e-6 || p[0] > 780+1e-6 || p[1] < 20-1e-6 || p[1] > 580+1e-6 {
			t.Fatalf("corner %v outside padded canvas", p)
		}
	}
}

func TestWallCutouts(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app, "room.json")

	status, body := do(t, app, http.MethodGet, "/sessions/"+id+"/walls/W1/cutouts", "")
	if status != http.StatusOK {
		t.Fatalf("cutouts status = %d", status)
	}
	var payload struct {
		Wall    string            `json:"wall"`
		Cutouts []json.RawMessage `json:"cutouts"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Wall != "W1" || len(payload.Cutouts) != 1 {
		t.Fatalf("payload = %s", body)
	}

	if status, _ := do(t, app, http.MethodGet, "/sessions/"+id+"/walls/nope/cutouts", ""); status != http.StatusNotFound {
		t.Fatalf("unknown wall status = %d", status)
	}
}

func TestFrameAndDoors(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app, "room.json")

	type framePayload struct {
		Frame struct {
			Sequence   uint64 `json:"sequence"`
			Primitives []struct {
				ID   string `json:"id"`
				Open bool   `json:"open"`
			} `json:"primitives"`
		} `json:"frame"`
		Camera struct {
			Far float64 `json:"far"`
		} `json:"camera"`
	}

	frame := func() framePayload {
		status, body := do(t, app, http.MethodGet, "/sessions/"+id+"/frame?aspect=1.5", "")
		if status != http.StatusOK {
			t.Fatalf("frame status = %d body=%s", status, body)
		}
		var payload framePayload
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return payload
	}
	doorOpen := func(p framePayload) bool {
		for _, prim := range p.Frame.Primitives {
			if prim.ID == "D1" {
				return prim.Open
			}
		}
		t.Fatalf("door primitive missing")
		return false
	}

	first := frame()
	if !doorOpen(first) {
		t.Fatalf("fixture door should render open")
	}
	if first.Camera.Far <= 0 {
		t.Fatalf("camera not fitted: %+v", first.Camera)
	}

	if status, _ := do(t, app, http.MethodPut, "/sessions/"+id+"/doors/D1", `{"open":false}`); status != http.StatusOK {
		t.Fatalf("set door status = %d", status)
	}
	second := frame()
	if doorOpen(second) {
		t.Fatalf("override not applied")
	}
	if second.Frame.Sequence <= first.Frame.Sequence {
		t.Fatalf("sequence did not advance: %d -> %d", first.Frame.Sequence, second.Frame.Sequence)
	}

	if status, _ := do(t, app, http.MethodPut, "/sessions/"+id+"/doors/nope", `{"open":true}`); status != http.StatusNotFound {
		t.Fatalf("unknown door status = %d", status)
	}
}
