// Package connector define los contratos hacia los proveedores externos de
// entrega (SMS/email) y de identidad social. Las implementaciones concretas
// viven en subpaquetes; el resto del sistema solo ve estas interfaces.
package connector

import (
	"context"
	"errors"
	"time"
)

// ErrDeliveryFailed indica que el proveedor externo no pudo entregar el
// mensaje. No se reintenta automáticamente: reintentar a ciegas duplica
// envíos; el cliente debe pedir un passcode nuevo.
var ErrDeliveryFailed = errors.New("delivery failed")

// DeliveryReceipt es el acuse del proveedor tras un envío.
type DeliveryReceipt struct {
	MessageID string
	SentAt    time.Time
}

// Sender entrega un passcode a un destino (teléfono o email según el
// connector). El TTL es informativo para el template del mensaje.
type Sender interface {
	Send(ctx context.Context, destination, code string, ttl time.Duration) (*DeliveryReceipt, error)
}

// ExternalProfile es el perfil normalizado que devuelve un connector social
// tras el code exchange.
type ExternalProfile struct {
	ExternalUserID string
	Email          string
	Phone          string
	Name           string
	Avatar         string
	Raw            map[string]any
}

// SocialConnector intercambia el authorization code de un IdP social por un
// perfil normalizado. Target identifica al connector ("github", "google"...).
type SocialConnector interface {
	Target() string
	AuthorizationURI(state, redirectURI string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*ExternalProfile, error)
}
