package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger checks a backing service.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{
		store: store,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	status := map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if h.store == nil {
		return c.JSON(http.StatusOK, status)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()
	if err := h.store(ctx); err != nil {
		status["status"] = "degraded"
		status["store"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	status["store"] = "ok"
	return c.JSON(http.StatusOK, status)
}
