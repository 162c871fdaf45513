package session

import (
	"context"

	mw "github.com/dropDatabas3/passlane/internal/http/middlewares"
)

// interactionFrom lee el jti de la interacción que inyectó el middleware.
func interactionFrom(ctx context.Context) string {
	return mw.GetInteractionJTI(ctx)
}
