// Package identity resuelve destinos e identidades externas a cuentas. Es la
// capa de lectura que consume el motor de reconciliación: no crea ni muta
// nada.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/passlane/internal/domain/repository"
	"github.com/dropDatabas3/passlane/internal/observability/logger"
)

// ErrNoAccount indica que el destino o la identidad no mapea a ninguna
// cuenta.
var ErrNoAccount = errors.New("identity: no account")

// Lookup resuelve cuentas por destino de canal o por identidad social.
type Lookup struct {
	accounts   repository.AccountRepository
	identities repository.IdentityRepository
}

// NewLookup construye el Lookup sobre los repositorios.
func NewLookup(accounts repository.AccountRepository, identities repository.IdentityRepository) *Lookup {
	return &Lookup{accounts: accounts, identities: identities}
}

// FindAccountByChannel resuelve el destino (ya normalizado) a la cuenta que
// lo reclama como primario. ErrNoAccount si nadie lo reclama.
func (l *Lookup) FindAccountByChannel(ctx context.Context, channel repository.Channel, destination string) (*repository.Account, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("Lookup.FindAccountByChannel"),
		logger.Channel(string(channel)),
		logger.Destination(destination),
	)

	var (
		acc *repository.Account
		err error
	)
	switch channel {
	case repository.ChannelSMS:
		acc, err = l.accounts.GetByPhone(ctx, destination)
	case repository.ChannelEmail:
		acc, err = l.accounts.GetByEmail(ctx, destination)
	default:
		return nil, fmt.Errorf("identity: unknown channel %q", channel)
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Debug("destination does not map to an account")
		return nil, ErrNoAccount
	case err != nil:
		log.Error("account lookup failed", logger.Err(err))
		return nil, err
	}
	return acc, nil
}

// FindAccountBySocialIdentity resuelve (target, externalUserID) a la cuenta
// ligada. Devuelve también la identidad encontrada.
func (l *Lookup) FindAccountBySocialIdentity(ctx context.Context, target, externalUserID string) (*repository.Account, *repository.SocialIdentity, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("Lookup.FindAccountBySocialIdentity"),
		logger.Connector(target),
	)

	ident, err := l.identities.GetByExternalID(ctx, target, externalUserID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Debug("external identity is not bound")
		return nil, nil, ErrNoAccount
	case err != nil:
		log.Error("identity lookup failed", logger.Err(err))
		return nil, nil, err
	}

	acc, err := l.accounts.GetByID(ctx, ident.AccountID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// Identidad huérfana: la cuenta fue borrada sin cascada. Se trata
		// como no-cuenta y se deja rastro para operaciones.
		log.Warn("identity points to a missing account",
			logger.AccountID(ident.AccountID))
		return nil, nil, ErrNoAccount
	case err != nil:
		return nil, nil, err
	}
	return acc, ident, nil
}
