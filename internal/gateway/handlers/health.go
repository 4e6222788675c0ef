package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/newtondotcom/roomplan/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Health Check Handlers
// ============================================================

// LivenessProbe reports that the process is up.
func LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// ReadinessProbe reports ready only when every upstream answers its own
// readiness check.
func ReadinessProbe(upstreams []*proxy.Upstream, timeout time.Duration) fiber.Handler {
	client := &http.Client{Timeout: timeout}

	return func(c fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), timeout)
		defer cancel()

		var (
			mu     sync.Mutex
			wg     sync.WaitGroup
			status = make(map[string]string, len(upstreams))
			ready  = true
		)
		for _, u := range upstreams {
			wg.Add(1)
			go func(u *proxy.Upstream) {
				defer wg.Done()
				state := probe(ctx, client, u.BaseURL()+"/health/ready")

				mu.Lock()
				status[u.Name()] = state
				if state != "ready" {
					ready = false
				}
				mu.Unlock()
			}(u)
		}
		wg.Wait()

		if !ready {
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "degraded",
				"services": status,
			})
		}
		return c.JSON(fiber.Map{
			"status":   "ready",
			"services": status,
		})
	}
}

// StartupProbe reports that routing is configured.
func StartupProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "started",
	})
}

func probe(ctx context.Context, client *http.Client, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "invalid"
	}
	resp, err := client.Do(req)
	if err != nil {
		return "unreachable"
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "unavailable"
	}
	return "ready"
}
