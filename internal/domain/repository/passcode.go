package repository

import (
	"context"
	"time"
)

// Channel identifica el canal de entrega de un passcode.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Valid reporta si el canal es uno de los soportados.
func (c Channel) Valid() bool {
	return c == ChannelSMS || c == ChannelEmail
}

// PasscodeFlow indica el propósito del passcode.
type PasscodeFlow string

const (
	FlowSignIn   PasscodeFlow = "sign-in"
	FlowRegister PasscodeFlow = "register"
)

// PasscodeKey identifica unívocamente la serie de passcodes de una interacción.
// A lo sumo un passcode vivo por key: un Create nuevo supersede a los anteriores.
type PasscodeKey struct {
	Channel        Channel
	Destination    string
	InteractionJTI string
	Flow           PasscodeFlow
}

// Passcode representa un código one-time enviado a un teléfono o email.
// El código se guarda hasheado (sha256 hex), nunca en claro.
type Passcode struct {
	ID         string
	Key        PasscodeKey
	CodeHash   string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// Live reporta si el passcode sigue siendo utilizable al momento dado.
func (p *Passcode) Live(now time.Time) bool {
	return p.ConsumedAt == nil && now.Before(p.ExpiresAt)
}

// CreatePasscodeInput contiene los datos para crear un passcode.
type CreatePasscodeInput struct {
	Key        PasscodeKey
	CodeHash   string
	TTLSeconds int
}

// PasscodeRepository define operaciones sobre passcodes.
type PasscodeRepository interface {
	// Create persiste un passcode nuevo e invalida lógicamente los vivos
	// previos de la misma key (marca consumed_at, no borra filas).
	Create(ctx context.Context, input CreatePasscodeInput) (*Passcode, error)

	// FindLatest retorna el passcode más reciente para la key, consumido o no.
	// Retorna ErrNotFound si nunca se emitió uno.
	FindLatest(ctx context.Context, key PasscodeKey) (*Passcode, error)

	// Consume marca el passcode como consumido en un único update condicional
	// (consumed_at IS NULL AND expires_at > now). Dos requests concurrentes no
	// pueden consumir el mismo código: el segundo recibe ErrCodeConsumed.
	// Retorna ErrCodeExpired si el passcode existe pero ya venció,
	// ErrNotFound si el ID no existe.
	Consume(ctx context.Context, id string) error

	// DeleteExpired elimina passcodes vencidos o consumidos (cleanup job).
	DeleteExpired(ctx context.Context) (int, error)
}
