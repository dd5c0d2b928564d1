package handler

import (
	"skillsync/internal/database"
	"skillsync/internal/infrastructure/cache"
	"skillsync/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type HealthHandler struct {
	db    database.DB
	redis *cache.Redis
}

func NewHealthHandler(db database.DB, redis *cache.Redis) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.Health)
}

// Health reports per-dependency status. Redis is optional, so a failed ping
// degrades the report without failing the endpoint.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
	}
	status := fiber.StatusOK

	if h.db == nil {
		checks["database"] = "not configured"
		status = fiber.StatusServiceUnavailable
	} else if err := h.db.Ping(c.Context()); err != nil {
		checks["database"] = err.Error()
		status = fiber.StatusServiceUnavailable
	}

	if err := h.redis.Ping(c.Context()); err != nil {
		checks["redis"] = "unavailable"
	}

	if status != fiber.StatusOK {
		return response.Error(c, status, "degraded", checks)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, checks)
}
