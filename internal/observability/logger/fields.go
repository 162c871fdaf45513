package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(v int64) zap.Field {
	return zap.Int64("duration_ms", v)
}

// Bytes crea un campo para los bytes de respuesta.
func Bytes(v int) zap.Field {
	return zap.Int("bytes", v)
}

// ClientIP crea un campo para la IP del cliente.
func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - NEGOCIO
// =================================================================================

// AccountID crea un campo para el ID de cuenta.
func AccountID(v string) zap.Field {
	return zap.String("account_id", v)
}

// InteractionID crea un campo para el jti de la interacción OIDC.
func InteractionID(v string) zap.Field {
	return zap.String("interaction_id", v)
}

// Channel crea un campo para el canal passwordless ("sms" | "email").
func Channel(v string) zap.Field {
	return zap.String("channel", v)
}

// Destination crea un campo para el destino (teléfono/email) ENMASCARADO.
// Nunca loguear el destino completo: es PII.
func Destination(v string) zap.Field {
	return zap.String("destination", maskDestination(v))
}

// Connector crea un campo para el target del connector social.
func Connector(v string) zap.Field {
	return zap.String("connector", v)
}

// Decision crea un campo para la decisión de reconciliación.
func Decision(v string) zap.Field {
	return zap.String("decision", v)
}

// maskDestination deja visibles solo los extremos del destino.
// "13000000000" -> "13*******00", "a@a.com" -> "a***@a.com"
func maskDestination(v string) string {
	if at := strings.IndexByte(v, '@'); at > 0 {
		local := v[:at]
		if len(local) <= 1 {
			return local + "***" + v[at:]
		}
		return local[:1] + "***" + v[at:]
	}
	if len(v) <= 4 {
		return "****"
	}
	return v[:2] + strings.Repeat("*", len(v)-4) + v[len(v)-2:]
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Layer crea un campo para la capa (controller, service, repository).
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// =================================================================================
// CAMPOS GENÉRICOS
// =================================================================================

// Count crea un campo para un conteo.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}
