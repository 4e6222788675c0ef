package main

import (
	"fmt"
	"log"
	"time"

	"github.com/newtondotcom/roomplan/internal/common/config"
	"github.com/newtondotcom/roomplan/internal/common/middleware"
	"github.com/newtondotcom/roomplan/internal/gateway/handlers"
	"github.com/newtondotcom/roomplan/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// API Gateway
// ============================================================

func main() {
	cfg := config.Load()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "API Gateway",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// ============================================================
	// Upstreams
	// ============================================================

	upstreamTimeout := time.Duration(cfg.WriteTimeout) * time.Second
	viewerService := proxy.NewUpstream("viewer", cfg.ViewerURL, upstreamTimeout)
	mergerService := proxy.NewUpstream("merger", cfg.MergerURL, upstreamTimeout)

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", handlers.ReadinessProbe([]*proxy.Upstream{viewerService, mergerService}, 2*time.Second))
	app.Get("/health/startup", handlers.StartupProbe)

	// ============================================================
	// Docs
	// ============================================================

	app.Get("/docs", handlers.SwaggerUI)
	app.Get("/docs/openapi.yaml", handlers.SwaggerSpec)

	// ============================================================
	// API Routes
	// ============================================================

	api := app.Group("/api/v1")

	api.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Room Plan API v1",
			"status":  "ok",
		})
	})

	viewerService.Mount(api, "/viewer")
	mergerService.Mount(api, "/merger")

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting API Gateway on %s (env: %s)", addr, cfg.Environment)
	log.Printf("Proxying /api/v1/viewer to %s", viewerService.BaseURL())
	log.Printf("Proxying /api/v1/merger to %s", mergerService.BaseURL())

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
