package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles health check requests.
type HealthHandler struct {
	pool   Pinger
	checks map[string]Pinger
}

// NewHealthHandler creates a new HealthHandler with the given database pool.
func NewHealthHandler(pool Pinger) *HealthHandler {
	return &HealthHandler{pool: pool, checks: map[string]Pinger{}}
}

// WithCheck registers an optional dependency. A failing optional dependency
// is reported as degraded and does not fail the health check.
func (h *HealthHandler) WithCheck(name string, p Pinger) *HealthHandler {
	h.checks[name] = p
	return h
}

// Check performs a health check by pinging the database.
// Returns 200 OK with {"status": "healthy"} when database is reachable.
// Returns 503 Service Unavailable with {"status": "unhealthy", "error": "..."} when database is unreachable.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.pool.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
	}

	if len(h.checks) == 0 {
		return c.JSON(fiber.Map{
			"status": "healthy",
		})
	}

	checks := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(c.Context()); err != nil {
			log.Warn().Err(err).Str("dependency", name).Msg("health check: dependency degraded")
			checks[name] = "degraded"
			continue
		}
		checks[name] = "ok"
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
		"checks": checks,
	})
}
