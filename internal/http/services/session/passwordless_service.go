// Package session orquesta los flujos de sesión: valida la entrada, ejecuta
// passcodes y reconciliación, y cierra la interacción contra el provider.
// Los errores de negocio suben como sentinels de las capas de dominio; el
// controller los traduce a HTTP.
package session

import (
	"context"
	"errors"

	"github.com/dropDatabas3/passlane/internal/audit"
	"github.com/dropDatabas3/passlane/internal/domain/repository"
	"github.com/dropDatabas3/passlane/internal/identity"
	"github.com/dropDatabas3/passlane/internal/interaction"
	"github.com/dropDatabas3/passlane/internal/metrics"
	"github.com/dropDatabas3/passlane/internal/observability/logger"
	"github.com/dropDatabas3/passlane/internal/passcode"
	"github.com/dropDatabas3/passlane/internal/reconcile"
	"github.com/dropDatabas3/passlane/internal/validation"
)

// Errores propios de la orquestación.
var (
	ErrNoInteraction = errors.New("no interaction in context")
	ErrMissingCode   = errors.New("code is required")
)

// PasswordlessService maneja send/verify de passcodes para sign-in y registro.
type PasswordlessService interface {
	// SendPasscode emite y entrega un passcode para el destino.
	SendPasscode(ctx context.Context, flow repository.PasscodeFlow, channel repository.Channel, rawDestination string) error

	// VerifyPasscode verifica el código, reconcilia la cuenta y cierra la
	// interacción. Devuelve la URL de continuación del provider.
	VerifyPasscode(ctx context.Context, flow repository.PasscodeFlow, channel repository.Channel, rawDestination, code string) (string, error)
}

// PasswordlessDeps contiene las dependencias del servicio.
type PasswordlessDeps struct {
	Passcodes *passcode.Service
	Lookup    *identity.Lookup
	Engine    *reconcile.Engine
	Provider  interaction.Provider
	Audit     audit.Recorder
}

type passwordlessService struct {
	passcodes *passcode.Service
	lookup    *identity.Lookup
	engine    *reconcile.Engine
	provider  interaction.Provider
	audit     audit.Recorder
}

// NewPasswordlessService crea el servicio.
func NewPasswordlessService(deps PasswordlessDeps) PasswordlessService {
	return &passwordlessService{
		passcodes: deps.Passcodes,
		lookup:    deps.Lookup,
		engine:    deps.Engine,
		provider:  deps.Provider,
		audit:     deps.Audit,
	}
}

func (s *passwordlessService) SendPasscode(ctx context.Context, flow repository.PasscodeFlow, channel repository.Channel, rawDestination string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session.passwordless"),
		logger.Op("SendPasscode"),
		logger.Channel(string(channel)),
	)

	jti := interactionFrom(ctx)
	if jti == "" {
		return ErrNoInteraction
	}

	dest, err := validation.Destination(channel, rawDestination)
	if err != nil {
		return err
	}

	// Chequeo en tiempo de envío: es UX (fallar antes de gastar un SMS). El
	// chequeo autoritativo vuelve a correr en verify contra el constraint
	// del store.
	switch flow {
	case repository.FlowSignIn:
		if _, err := s.lookup.FindAccountByChannel(ctx, channel, dest); err != nil {
			if errors.Is(err, identity.ErrNoAccount) {
				return reconcile.ErrAccountNotFound
			}
			return err
		}
	case repository.FlowRegister:
		_, err := s.lookup.FindAccountByChannel(ctx, channel, dest)
		if err == nil {
			return reconcile.ErrDestinationAlreadyRegistered
		}
		if !errors.Is(err, identity.ErrNoAccount) {
			return err
		}
	}

	key := repository.PasscodeKey{
		Channel:        channel,
		Destination:    dest,
		InteractionJTI: jti,
		Flow:           flow,
	}
	if err := s.passcodes.Issue(ctx, key); err != nil {
		if errors.Is(err, passcode.ErrDeliveryFailed) {
			metrics.DeliveryFailures.WithLabelValues(string(channel)).Inc()
		}
		return err
	}

	metrics.PasscodesIssued.WithLabelValues(string(channel), string(flow)).Inc()
	log.Debug("passcode sent", logger.Destination(dest))
	return nil
}

func (s *passwordlessService) VerifyPasscode(ctx context.Context, flow repository.PasscodeFlow, channel repository.Channel, rawDestination, code string) (string, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session.passwordless"),
		logger.Op("VerifyPasscode"),
		logger.Channel(string(channel)),
	)

	jti := interactionFrom(ctx)
	if jti == "" {
		return "", ErrNoInteraction
	}
	if code == "" {
		return "", ErrMissingCode
	}

	dest, err := validation.Destination(channel, rawDestination)
	if err != nil {
		return "", err
	}

	key := repository.PasscodeKey{
		Channel:        channel,
		Destination:    dest,
		InteractionJTI: jti,
		Flow:           flow,
	}
	if err := s.passcodes.Verify(ctx, key, code); err != nil {
		metrics.PasscodeVerifications.WithLabelValues(verifyResultLabel(err)).Inc()
		return "", err
	}
	metrics.PasscodeVerifications.WithLabelValues("ok").Inc()

	var decision *reconcile.Decision
	switch flow {
	case repository.FlowSignIn:
		decision, err = s.engine.SignInPasswordless(ctx, channel, dest)
	case repository.FlowRegister:
		decision, err = s.engine.RegisterPasswordless(ctx, channel, dest)
	}
	if err != nil {
		return "", err
	}
	metrics.ReconcileDecisions.WithLabelValues(string(decision.Kind)).Inc()

	s.audit.Record(ctx, audit.Event{
		Decision:       string(decision.Kind),
		AccountID:      decision.AccountID,
		Channel:        string(channel),
		Destination:    dest,
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

func verifyResultLabel(err error) string {
	switch {
	case errors.Is(err, passcode.ErrCodeMismatch):
		return "mismatch"
	case errors.Is(err, passcode.ErrCodeExpired):
		return "expired"
	case errors.Is(err, passcode.ErrCodeConsumed):
		return "consumed"
	case errors.Is(err, passcode.ErrNoPasscode):
		return "missing"
	default:
		return "error"
	}
}
