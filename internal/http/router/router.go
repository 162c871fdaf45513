// Package router arma el árbol de rutas del servicio sobre chi.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	healthctrl "github.com/dropDatabas3/passlane/internal/http/controllers/health"
	sessionctrl "github.com/dropDatabas3/passlane/internal/http/controllers/session"
	httperrors "github.com/dropDatabas3/passlane/internal/http/errors"
	mw "github.com/dropDatabas3/passlane/internal/http/middlewares"
	"github.com/dropDatabas3/passlane/internal/rate"
)

// Deps contiene las dependencias para armar el router.
type Deps struct {
	Passwordless *sessionctrl.PasswordlessController
	Social       *sessionctrl.SocialController
	Health       *healthctrl.HealthController

	// SendLimiter acota los send-passcode (los endpoints que gastan SMS y
	// email). Opcional: nil desactiva el límite.
	SendLimiter rate.Limiter
	RateWindow  time.Duration
}

// New arma el router completo.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Middlewares globales, del más externo al más interno.
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithLogging(),
		mw.WithMetrics(),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	registerHealthRoutes(r, deps)
	registerSessionRoutes(r, deps)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
