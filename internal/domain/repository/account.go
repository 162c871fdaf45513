package repository

import (
	"context"
	"time"
)

// Account representa una cuenta del sistema.
type Account struct {
	ID            string
	PrimaryPhone  string
	PrimaryEmail  string
	Name          string
	Avatar        string
	CreatedAt     time.Time
	LastSignInAt  *time.Time
	SuspendedAt   *time.Time
	SuspendReason *string
}

// CreateAccountInput contiene los datos para crear una cuenta.
// Exactamente uno de PrimaryPhone/PrimaryEmail se setea en flujos
// passwordless; los registros sociales pueden traer ambos vacíos.
type CreateAccountInput struct {
	ID           string // Si está vacío, el repo genera uno.
	PrimaryPhone string
	PrimaryEmail string
	Name         string
	Avatar       string
}

// AccountRepository define operaciones sobre cuentas.
type AccountRepository interface {
	// GetByID busca una cuenta por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetByPhone busca una cuenta por teléfono primario.
	// Retorna ErrNotFound si no existe.
	GetByPhone(ctx context.Context, phone string) (*Account, error)

	// GetByEmail busca una cuenta por email primario (case-insensitive).
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Create crea una cuenta nueva. Retorna ErrConflict si el teléfono o
	// email primario ya está reclamado (unique constraint del store, no
	// locking en proceso).
	Create(ctx context.Context, input CreateAccountInput) (*Account, error)

	// TouchLastSignIn actualiza last_sign_in_at al instante actual.
	TouchLastSignIn(ctx context.Context, id string) error
}
