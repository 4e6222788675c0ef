package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int

	// Viewer
	SceneDir     string
	DefaultScene string
	FetchTimeout time.Duration
	RemoteHosts  []string

	// Merger
	CapturesDir         string
	ExportsDir          string
	CatalogDBPath       string
	StructureBuilderURL string

	// Gateway
	ViewerURL string
	MergerURL string
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "3000"),
		Environment:  getEnv("ENV", "development"),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),

		SceneDir:     getEnv("VIEWER_SCENE_DIR", "data/scenes"),
		DefaultScene: getEnv("VIEWER_SCENE", ""),
		FetchTimeout: getEnvAsDuration("FETCH_TIMEOUT", 10*time.Second),
		RemoteHosts:  getEnvAsList("VIEWER_REMOTE_HOSTS"),

		CapturesDir:         getEnv("CAPTURES_DIR", "data/captures"),
		ExportsDir:          getEnv("EXPORTS_DIR", "data/exports"),
		CatalogDBPath:       getEnv("CATALOG_DB_PATH", "data/db/catalog.db"),
		StructureBuilderURL: getEnv("STRUCTURE_BUILDER_URL", ""),

		ViewerURL: getEnv("VIEWER_URL", "http://localhost:3001"),
		MergerURL: getEnv("MERGER_URL", "http://localhost:3002"),
	}
}

// PortOr returns the configured port, or def when PORT is unset.
func (c *Config) PortOr(def string) string {
	if os.Getenv("PORT") == "" {
		return def
	}
	return c.Port
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvAsDuration accepts Go duration strings ("15s") or bare seconds.
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
