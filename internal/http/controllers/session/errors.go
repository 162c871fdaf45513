package session

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/passlane/internal/connector/social"
	httperrors "github.com/dropDatabas3/passlane/internal/http/errors"
	svc "github.com/dropDatabas3/passlane/internal/http/services/session"
	"github.com/dropDatabas3/passlane/internal/interaction"
	"github.com/dropDatabas3/passlane/internal/observability/logger"
	"github.com/dropDatabas3/passlane/internal/passcode"
	"github.com/dropDatabas3/passlane/internal/reconcile"
	"github.com/dropDatabas3/passlane/internal/validation"

	"go.uber.org/zap"
)

// writeServiceError traduce los sentinels de las capas de dominio a AppError.
// Es el único lugar donde se decide el status code de cada error de negocio.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	// 400 — entrada inválida o código incorrecto
	case errors.Is(err, validation.ErrInvalidPhone),
		errors.Is(err, validation.ErrInvalidEmail):
		httperrors.WriteError(w, httperrors.ErrInvalidDestination)
	case errors.Is(err, validation.ErrInvalidChannel):
		httperrors.WriteError(w, httperrors.ErrInvalidChannel)
	case errors.Is(err, svc.ErrMissingCode),
		errors.Is(err, svc.ErrMissingConnector),
		errors.Is(err, svc.ErrMissingState),
		errors.Is(err, svc.ErrMissingAuthCode):
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail(err.Error()))
	case errors.Is(err, passcode.ErrCodeMismatch):
		httperrors.WriteError(w, httperrors.ErrCodeMismatch)
	case errors.Is(err, passcode.ErrCodeExpired):
		httperrors.WriteError(w, httperrors.ErrCodeExpired)
	case errors.Is(err, passcode.ErrCodeConsumed):
		httperrors.WriteError(w, httperrors.ErrCodeAlreadyConsumed)
	case errors.Is(err, passcode.ErrNoPasscode):
		httperrors.WriteError(w, httperrors.ErrNoPasscodeIssued)
	case errors.Is(err, social.ErrStateExpired),
		errors.Is(err, social.ErrStateInvalid):
		httperrors.WriteError(w, httperrors.ErrInvalidState)

	// 401 — sin interacción en curso
	case errors.Is(err, svc.ErrNoInteraction),
		errors.Is(err, interaction.ErrNotFound):
		httperrors.WriteError(w, httperrors.ErrInteractionMissing)

	// 404 — connector inexistente
	case errors.Is(err, svc.ErrConnectorNotFound):
		httperrors.WriteError(w, httperrors.ErrConnectorNotFound)

	// 422 — conflictos de estado de negocio
	case errors.Is(err, reconcile.ErrAccountNotFound):
		httperrors.WriteError(w, httperrors.ErrAccountNotFound)
	case errors.Is(err, reconcile.ErrDestinationAlreadyRegistered):
		httperrors.WriteError(w, httperrors.ErrDestinationAlreadyRegistered)
	case errors.Is(err, reconcile.ErrIdentityAlreadyBound):
		httperrors.WriteError(w, httperrors.ErrIdentityAlreadyBound)

	// 429 — cooldown de reenvío
	case errors.Is(err, passcode.ErrResendTooSoon):
		httperrors.WriteError(w, httperrors.ErrResendTooSoon)

	// 5xx — infraestructura
	case errors.Is(err, passcode.ErrDeliveryFailed):
		log.Error("passcode delivery failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrDeliveryFailed)
	case errors.Is(err, interaction.ErrProviderDown):
		log.Error("interaction provider unavailable", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrProviderUnavailable)

	default:
		log.Error("unexpected session error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
