package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/passlane/internal/http/errors"
)

// interactionCookie es la cookie de sesión de interacción que setea el
// provider OIDC al iniciar el prompt.
const interactionCookie = "_interaction"

// WithInteraction extrae el jti de la interacción en curso desde la cookie
// del provider y lo inyecta en el contexto. Sin interacción no hay flujo de
// sesión posible: responde 401.
func WithInteraction() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(interactionCookie)
			if err != nil || strings.TrimSpace(c.Value) == "" {
				errors.WriteError(w, errors.ErrInteractionMissing)
				return
			}

			ctx := WithInteractionJTI(r.Context(), strings.TrimSpace(c.Value))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
