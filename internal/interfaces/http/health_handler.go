package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger dependencia que /health puede sondear (pool de Postgres, cliente Redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler liveness y estado de dependencias.
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler construye el handler. checks puede ser nil (almacenamiento en memoria).
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	out := fiber.Map{"status": "ok"}
	status := fiber.StatusOK
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			out[name] = "down"
			out["status"] = "degraded"
			status = fiber.StatusServiceUnavailable
			continue
		}
		out[name] = "up"
	}
	return c.Status(status).JSON(out)
}

// PingFunc adapta una función a Pinger (ej: rdb.Ping(ctx).Err()).
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }
