package repository

import (
	"context"
	"time"
)

// SocialIdentity representa el binding entre un usuario externo de un
// connector social y una cuenta interna. Dentro de un target, un external id
// mapea a lo sumo a una cuenta (unique constraint en el store).
type SocialIdentity struct {
	ID             string
	AccountID      string
	Target         string // target del connector: "github", "google", "wechat"...
	ExternalUserID string
	RawProfile     map[string]any
	CreatedAt      time.Time
}

// BindIdentityInput contiene los datos para crear un binding social.
type BindIdentityInput struct {
	AccountID      string
	Target         string
	ExternalUserID string
	RawProfile     map[string]any
}

// IdentityRepository define operaciones sobre identidades sociales.
type IdentityRepository interface {
	// GetByExternalID busca el binding por (target, external user id).
	// Retorna ErrNotFound si no existe.
	GetByExternalID(ctx context.Context, target, externalUserID string) (*SocialIdentity, error)

	// ListByAccount lista los bindings de una cuenta.
	ListByAccount(ctx context.Context, accountID string) ([]SocialIdentity, error)

	// Bind crea un binding nuevo. Retorna ErrConflict si (target, external id)
	// ya está ligado a otra cuenta; el binding existente queda intacto.
	Bind(ctx context.Context, input BindIdentityInput) (*SocialIdentity, error)
}
