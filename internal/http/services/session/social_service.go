package session

import (
	"context"
	"errors"

	"github.com/dropDatabas3/passlane/internal/audit"
	"github.com/dropDatabas3/passlane/internal/cache"
	"github.com/dropDatabas3/passlane/internal/connector"
	"github.com/dropDatabas3/passlane/internal/connector/social"
	"github.com/dropDatabas3/passlane/internal/interaction"
	"github.com/dropDatabas3/passlane/internal/metrics"
	"github.com/dropDatabas3/passlane/internal/observability/logger"
	"github.com/dropDatabas3/passlane/internal/reconcile"
)

// Errores propios del flujo social.
var (
	ErrConnectorNotFound = errors.New("connector not found")
	ErrMissingConnector  = errors.New("connectorId is required")
	ErrMissingState      = errors.New("state is required")
	ErrMissingAuthCode   = errors.New("authorization code is required")
)

// SocialService maneja el inicio y el callback del flujo social.
type SocialService interface {
	// Start devuelve la URL de autorización del IdP con un state firmado
	// ligado a la interacción en curso.
	Start(ctx context.Context, connectorID, redirectURI string) (string, error)

	// Callback valida el state, canjea el code, reconcilia y cierra la
	// interacción. Devuelve la URL de continuación del provider.
	Callback(ctx context.Context, connectorID, code, state, redirectURI string) (string, error)
}

// SocialDeps contiene las dependencias del servicio social.
type SocialDeps struct {
	Connectors map[string]connector.SocialConnector
	States     *social.StateSigner
	// Nonces guarda los nonces de state emitidos; el callback los consume
	// one-shot.
	Nonces   cache.Cache
	Engine   *reconcile.Engine
	Provider interaction.Provider
	Audit    audit.Recorder
}

type socialService struct {
	connectors map[string]connector.SocialConnector
	states     *social.StateSigner
	nonces     cache.Cache
	engine     *reconcile.Engine
	provider   interaction.Provider
	audit      audit.Recorder
}

// NewSocialService crea el servicio.
func NewSocialService(deps SocialDeps) SocialService {
	return &socialService{
		connectors: deps.Connectors,
		states:     deps.States,
		nonces:     deps.Nonces,
		engine:     deps.Engine,
		provider:   deps.Provider,
		audit:      deps.Audit,
	}
}

func stateNonceKey(nonce string) string {
	return "social:state:nonce:" + nonce
}

func (s *socialService) Start(ctx context.Context, connectorID, redirectURI string) (string, error) {
	jti := interactionFrom(ctx)
	if jti == "" {
		return "", ErrNoInteraction
	}
	if connectorID == "" {
		return "", ErrMissingConnector
	}

	conn, ok := s.connectors[connectorID]
	if !ok {
		return "", ErrConnectorNotFound
	}

	state, nonce, err := s.states.Sign(jti, conn.Target())
	if err != nil {
		return "", err
	}
	// El nonce registrado hace al state one-shot: sin este registro el
	// callback lo rechaza.
	if err := s.nonces.Set(ctx, stateNonceKey(nonce), "1", s.states.TTL()); err != nil {
		return "", err
	}
	return conn.AuthorizationURI(state, redirectURI), nil
}

func (s *socialService) Callback(ctx context.Context, connectorID, code, state, redirectURI string) (string, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session.social"),
		logger.Op("Callback"),
		logger.Connector(connectorID),
	)

	jti := interactionFrom(ctx)
	if jti == "" {
		return "", ErrNoInteraction
	}
	switch {
	case connectorID == "":
		return "", ErrMissingConnector
	case state == "":
		return "", ErrMissingState
	case code == "":
		return "", ErrMissingAuthCode
	}

	conn, ok := s.connectors[connectorID]
	if !ok {
		return "", ErrConnectorNotFound
	}

	claims, err := s.states.Verify(state)
	if err != nil {
		return "", err
	}
	// El state debe pertenecer a ESTA interacción y a ESTE connector: un
	// state robado de otra sesión no sirve.
	if claims.InteractionJTI != jti || claims.Target != conn.Target() {
		return "", social.ErrStateInvalid
	}

	// Consumo one-shot del nonce: un state repetido (o que nunca emitimos)
	// muere acá, antes de tocar el IdP.
	if _, err := s.nonces.TakeOnce(ctx, stateNonceKey(claims.ID)); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			log.Warn("state nonce replayed or unknown")
			return "", social.ErrStateInvalid
		}
		return "", err
	}

	profile, err := conn.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return "", err
	}

	// relatedAccountID sale del registro de interacción del provider, nunca
	// del body del cliente.
	details, err := s.provider.Details(ctx, jti)
	if err != nil {
		return "", err
	}

	decision, err := s.engine.Social(ctx, profile, conn.Target(), details.RelatedAccountID)
	if err != nil {
		return "", err
	}
	metrics.ReconcileDecisions.WithLabelValues(string(decision.Kind)).Inc()

	s.audit.Record(ctx, audit.Event{
		Decision:       string(decision.Kind),
		AccountID:      decision.AccountID,
		Target:         conn.Target(),
		InteractionJTI: jti,
	})

	result, err := interaction.ToProviderResult(decision)
	if err != nil {
		return "", err
	}
	redirectTo, err := s.provider.SubmitResult(ctx, jti, result)
	if err != nil {
		return "", err
	}

	log.Debug("interaction closed", logger.Decision(string(decision.Kind)))
	return redirectTo, nil
}
