package router

import (
	"github.com/go-chi/chi/v5"
)

// registerHealthRoutes registra liveness y readiness. Quedan fuera del rate
// limiting y de la exigencia de interacción.
func registerHealthRoutes(r chi.Router, deps Deps) {
	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
}
