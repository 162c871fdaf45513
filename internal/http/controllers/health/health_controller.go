// Package health contiene los controllers de health check.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dropDatabas3/passlane/internal/observability/logger"
	"github.com/dropDatabas3/passlane/internal/store"
)

// HealthController expone liveness y readiness.
type HealthController struct {
	store   store.DataAccess
	version string
}

// NewHealthController crea el controller.
func NewHealthController(da store.DataAccess, version string) *HealthController {
	return &HealthController{store: da, version: version}
}

// Healthz responde 200 si el proceso está vivo.
func (c *HealthController) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": c.version,
	})
}

// Readyz responde 200 si el servicio puede atender tráfico (store accesible).
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		logger.From(r.Context()).Warn("readiness check failed", logger.Err(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "store unreachable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
