// Package reconcile contiene el motor de reconciliación de cuentas: dado un
// destino verificado o un perfil social, decide si la interacción termina en
// sign-in, registro o binding. El motor no habla HTTP ni conoce al provider;
// produce Decisions que la capa de sesión traduce.
package reconcile

import (
	"context"
	"errors"

	"github.com/dropDatabas3/passlane/internal/connector"
	"github.com/dropDatabas3/passlane/internal/domain/repository"
	"github.com/dropDatabas3/passlane/internal/identity"
	"github.com/dropDatabas3/passlane/internal/observability/logger"
)

// Errores de negocio del motor. Los controllers los mapean a 4xx.
var (
	ErrAccountNotFound              = errors.New("account not found")
	ErrDestinationAlreadyRegistered = errors.New("destination already registered")
	ErrIdentityAlreadyBound         = errors.New("identity already bound")
)

// Kind clasifica la decisión tomada.
type Kind string

const (
	KindSignIn       Kind = "sign-in"
	KindRegister     Kind = "register"
	KindBindIdentity Kind = "bind-identity"
)

// Decision es el resultado de una reconciliación exitosa. Los casos de
// rechazo se devuelven como error, nunca como Decision.
type Decision struct {
	Kind      Kind
	AccountID string
	// Target/ExternalUserID solo en KindBindIdentity.
	Target         string
	ExternalUserID string
}

// Engine toma decisiones de reconciliación sobre el almacenamiento.
type Engine struct {
	lookup     *identity.Lookup
	accounts   repository.AccountRepository
	identities repository.IdentityRepository
}

// New construye el motor.
func New(lookup *identity.Lookup, accounts repository.AccountRepository, identities repository.IdentityRepository) *Engine {
	return &Engine{lookup: lookup, accounts: accounts, identities: identities}
}

// SignInPasswordless resuelve un destino ya verificado a su cuenta. El
// passcode debe haberse consumido antes de llamar acá.
func (e *Engine) SignInPasswordless(ctx context.Context, channel repository.Channel, destination string) (*Decision, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("Engine.SignInPasswordless"),
		logger.Channel(string(channel)),
		logger.Destination(destination),
	)

	acc, err := e.lookup.FindAccountByChannel(ctx, channel, destination)
	switch {
	case errors.Is(err, identity.ErrNoAccount):
		log.Info("sign-in rejected: destination has no account")
		return nil, ErrAccountNotFound
	case err != nil:
		return nil, err
	}

	if err := e.accounts.TouchLastSignIn(ctx, acc.ID); err != nil {
		// El timestamp es informativo: no bloquea el sign-in.
		log.Warn("could not touch last_sign_in_at", logger.Err(err))
	}

	log.Info("decision", logger.Decision(string(KindSignIn)), logger.AccountID(acc.ID))
	return &Decision{Kind: KindSignIn, AccountID: acc.ID}, nil
}

// RegisterPasswordless crea la cuenta para un destino ya verificado. La
// unicidad la garantiza el constraint del store: una carrera entre dos
// registros concurrentes deja exactamente una cuenta y este método devuelve
// ErrDestinationAlreadyRegistered al perdedor.
func (e *Engine) RegisterPasswordless(ctx context.Context, channel repository.Channel, destination string) (*Decision, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("Engine.RegisterPasswordless"),
		logger.Channel(string(channel)),
		logger.Destination(destination),
	)

	in := repository.CreateAccountInput{}
	switch channel {
	case repository.ChannelSMS:
		in.PrimaryPhone = destination
	case repository.ChannelEmail:
		in.PrimaryEmail = destination
	}

	acc, err := e.accounts.Create(ctx, in)
	switch {
	case errors.Is(err, repository.ErrConflict):
		log.Info("register rejected: destination already claimed")
		return nil, ErrDestinationAlreadyRegistered
	case err != nil:
		return nil, err
	}

	log.Info("decision", logger.Decision(string(KindRegister)), logger.AccountID(acc.ID))
	return &Decision{Kind: KindRegister, AccountID: acc.ID}, nil
}

// Social reconcilia un perfil externo ya intercambiado. relatedAccountID
// viene del registro de interacción del lado del servidor (nunca del
// cliente): si está presente y la identidad no existe, se liga a esa cuenta.
func (e *Engine) Social(ctx context.Context, profile *connector.ExternalProfile, target, relatedAccountID string) (*Decision, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("Engine.Social"),
		logger.Connector(target),
	)

	acc, _, err := e.lookup.FindAccountBySocialIdentity(ctx, target, profile.ExternalUserID)
	switch {
	case err == nil:
		log.Info("decision", logger.Decision(string(KindSignIn)), logger.AccountID(acc.ID))
		if terr := e.accounts.TouchLastSignIn(ctx, acc.ID); terr != nil {
			log.Warn("could not touch last_sign_in_at", logger.Err(terr))
		}
		return &Decision{Kind: KindSignIn, AccountID: acc.ID}, nil
	case !errors.Is(err, identity.ErrNoAccount):
		return nil, err
	}

	if relatedAccountID != "" {
		return e.bindIdentity(ctx, relatedAccountID, target, profile)
	}

	// Identidad nueva sin cuenta relacionada: se registra una cuenta desde
	// el perfil y se liga en el mismo paso.
	acc, err = e.accounts.Create(ctx, repository.CreateAccountInput{
		PrimaryPhone: profile.Phone,
		PrimaryEmail: profile.Email,
		Name:         profile.Name,
		Avatar:       profile.Avatar,
	})
	switch {
	case errors.Is(err, repository.ErrConflict):
		// El email/teléfono del perfil ya pertenece a otra cuenta. No se
		// auto-liga: el dueño debe autenticarse por su canal y ligar después.
		log.Info("social register rejected: profile identifier already claimed")
		return nil, ErrDestinationAlreadyRegistered
	case err != nil:
		return nil, err
	}

	if _, err := e.identities.Bind(ctx, repository.BindIdentityInput{
		AccountID:      acc.ID,
		Target:         target,
		ExternalUserID: profile.ExternalUserID,
		RawProfile:     profile.Raw,
	}); err != nil {
		return nil, err
	}

	log.Info("decision", logger.Decision(string(KindRegister)), logger.AccountID(acc.ID))
	return &Decision{Kind: KindRegister, AccountID: acc.ID}, nil
}

func (e *Engine) bindIdentity(ctx context.Context, accountID, target string, profile *connector.ExternalProfile) (*Decision, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("Engine.bindIdentity"),
		logger.Connector(target),
		logger.AccountID(accountID),
	)

	if _, err := e.accounts.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	_, err := e.identities.Bind(ctx, repository.BindIdentityInput{
		AccountID:      accountID,
		Target:         target,
		ExternalUserID: profile.ExternalUserID,
		RawProfile:     profile.Raw,
	})
	switch {
	case errors.Is(err, repository.ErrConflict):
		log.Info("bind rejected: identity already bound elsewhere")
		return nil, ErrIdentityAlreadyBound
	case err != nil:
		return nil, err
	}

	log.Info("decision", logger.Decision(string(KindBindIdentity)))
	return &Decision{
		Kind:           KindBindIdentity,
		AccountID:      accountID,
		Target:         target,
		ExternalUserID: profile.ExternalUserID,
	}, nil
}
