package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/newtondotcom/roomplan/internal/catalog/handlers"
	"github.com/newtondotcom/roomplan/internal/catalog/repository"
	"github.com/newtondotcom/roomplan/internal/catalog/service"
	"github.com/newtondotcom/roomplan/internal/common/config"
	"github.com/newtondotcom/roomplan/internal/common/middleware"
	"github.com/newtondotcom/roomplan/internal/merge"
	"github.com/newtondotcom/roomplan/internal/scene/loader"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Merger Service
// ============================================================

func main() {
	cfg := config.Load()
	cfg.Port = cfg.PortOr("3002")

	db, err := repository.OpenSQLite(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(context.Background()); err != nil {
		log.Fatalf("init db: %v", err)
	}

	var merger merge.Merger = merge.NewLocal()
	if cfg.StructureBuilderURL != "" {
		merger = merge.NewRemote(cfg.StructureBuilderURL, cfg.FetchTimeout)
		log.Printf("[MERGER] using structure builder at %s", cfg.StructureBuilderURL)
	}

	fileStorage := service.NewFileStorage(cfg.CapturesDir, cfg.ExportsDir)
	captures := loader.New(cfg.CapturesDir, cfg.FetchTimeout)
	catalogHandler := handlers.NewCatalogHandler(repo, fileStorage, captures, merger)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Merger Service",
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
		if err := db.PingContext(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// ============================================================
	// Catalog Routes
	// ============================================================

	catalogHandler.Register(app)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Merger Service on %s (env: %s)", addr, cfg.Environment)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
