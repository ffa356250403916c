package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger dependencia externa cuya disponibilidad se reporta en /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapta una función a Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler revisa base de datos y caché.
type HealthHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewHealthHandler construye el handler. Las entradas nil se ignoran.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	active := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			active[name] = p
		}
	}
	return &HealthHandler{checks: active, timeout: 2 * time.Second}
}

// Check godoc
// @Summary      Estado del servicio
// @Tags         ops
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /health [get]
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	status := fiber.StatusOK
	out := fiber.Map{"status": "ok"}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			status = fiber.StatusServiceUnavailable
			out["status"] = "degraded"
			out[name] = err.Error()
			continue
		}
		out[name] = "ok"
	}
	return c.Status(status).JSON(out)
}
