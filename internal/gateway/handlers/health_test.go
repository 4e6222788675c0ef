package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/newtondotcom/roomplan/internal/gateway/proxy"
)

func readiness(t *testing.T, upstreams ...*proxy.Upstream) (int, map[string]any) {
	t.Helper()

	app := fiber.New()
	app.Get("/health/ready", ReadinessProbe(upstreams, time.Second))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if err != nil {
		t.Fatalf("test: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return resp.StatusCode, payload
}

func TestReadinessProbe(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ready"}`))
	}))
	defer up.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	status, payload := readiness(t, proxy.NewUpstream("viewer", up.URL, time.Second))
	if status != http.StatusOK || payload["status"] != "ready" {
		t.Fatalf("all up: %d %v", status, payload)
	}

	status, payload = readiness(t,
		proxy.NewUpstream("viewer", up.URL, time.Second),
		proxy.NewUpstream("merger", down.URL, time.Second),
	)
	if status != http.StatusServiceUnavailable || payload["status"] != "degraded" {
		t.Fatalf("one down: %d %v", status, payload)
	}
	services, _ := payload["services"].(map[string]any)
	if services["viewer"] != "ready" || services["merger"] != "unavailable" {
		t.Fatalf("services = %v", services)
	}
}

func TestSwaggerSpec(t *testing.T) {
	app := fiber.New()
	app.Get("/docs/openapi.yaml", SwaggerSpec)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil))
	if err != nil {
		t.Fatalf("test: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || len(data) == 0 || string(data[:8]) != "openapi:" {
		t.Fatalf("status = %d body = %.40s", resp.StatusCode, data)
	}
}
