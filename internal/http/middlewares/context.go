package middlewares

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type ctxKey string

const (
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
	// ctxInteractionKey guarda el jti de la interacción OIDC en curso
	ctxInteractionKey ctxKey = "interaction_jti"
)

// setRequestID inyecta el request ID en el contexto (interno)
func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID obtiene el request ID del contexto.
// Retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithInteractionJTI inyecta el jti de la interacción en el contexto.
func WithInteractionJTI(ctx context.Context, jti string) context.Context {
	return context.WithValue(ctx, ctxInteractionKey, jti)
}

// GetInteractionJTI obtiene el jti de la interacción del contexto.
// Retorna cadena vacía si el middleware de interacción no corrió.
func GetInteractionJTI(ctx context.Context) string {
	if v := ctx.Value(ctxInteractionKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// clientIP extrae la IP del cliente, considerando proxies.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
