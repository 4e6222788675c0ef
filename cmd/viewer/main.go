package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/newtondotcom/roomplan/internal/common/config"
	"github.com/newtondotcom/roomplan/internal/common/middleware"
	"github.com/newtondotcom/roomplan/internal/scene/loader"
	"github.com/newtondotcom/roomplan/internal/viewer"
	"github.com/newtondotcom/roomplan/internal/viewer/handlers"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Viewer Service
// ============================================================

func main() {
	cfg := config.Load()
	cfg.Port = cfg.PortOr("3001")

	scenes := loader.New(cfg.SceneDir, cfg.FetchTimeout).AllowHosts(cfg.RemoteHosts...)
	if len(cfg.RemoteHosts) > 0 {
		log.Printf("[VIEWER] remote scenes allowed from %v", cfg.RemoteHosts)
	}
	sessions := viewer.NewRegistry(scenes)
	if cfg.DefaultScene != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
		if _, err := sessions.OpenWithID(ctx, "default", cfg.DefaultScene); err != nil {
			log.Printf("[VIEWER] default scene %s not loaded: %v", cfg.DefaultScene, err)
		} else {
			log.Printf("[VIEWER] default scene %s loaded", cfg.DefaultScene)
		}
		cancel()
	}
	viewerHandler := handlers.NewViewerHandler(sessions)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Viewer Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// ============================================================
	// Viewer Routes
	// ============================================================

	viewerHandler.Register(app)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Viewer Service on %s (env: %s)", addr, cfg.Environment)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
