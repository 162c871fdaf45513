package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/passlane/internal/http/middlewares"
)

// registerSessionRoutes registra las rutas de sesión passwordless y social.
// Todas requieren una interacción OIDC en curso (cookie del provider) y no
// deben cachearse.
func registerSessionRoutes(r chi.Router, deps Deps) {
	r.Route("/session", func(r chi.Router) {
		r.Use(mw.WithNoStore(), mw.WithInteraction())

		// El rate limit cubre solo los send: son los endpoints que gastan
		// entregas. Verify tiene su propia defensa (el consume one-shot).
		var sendLimit mw.Middleware
		if deps.SendLimiter != nil {
			sendLimit = mw.WithRateLimit(mw.RateLimitConfig{
				Limiter: deps.SendLimiter,
				KeyFunc: mw.IPPathRateKey,
				Window:  deps.RateWindow,
			})
		}

		r.Route("/sign-in", func(r chi.Router) {
			r.Route("/passwordless/{channel}", func(r chi.Router) {
				r.Method(http.MethodPost, "/send-passcode",
					withOptional(sendLimit, http.HandlerFunc(deps.Passwordless.SendSignInPasscode)))
				r.Post("/verify-passcode", deps.Passwordless.VerifySignInPasscode)
			})

			r.Route("/social", func(r chi.Router) {
				r.Post("/", deps.Social.Start)
				r.Post("/callback", deps.Social.Callback)
			})
		})

		r.Route("/register/passwordless/{channel}", func(r chi.Router) {
			r.Method(http.MethodPost, "/send-passcode",
				withOptional(sendLimit, http.HandlerFunc(deps.Passwordless.SendRegisterPasscode)))
			r.Post("/verify-passcode", deps.Passwordless.VerifyRegisterPasscode)
		})
	})
}

// withOptional aplica el middleware solo si no es nil.
func withOptional(m mw.Middleware, h http.Handler) http.Handler {
	if m == nil {
		return h
	}
	return m(h)
}
