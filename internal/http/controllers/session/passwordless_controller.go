// Package session contiene los controllers de las rutas de sesión. Los
// controllers solo parsean/validan el request, delegan en el servicio y
// traducen errores; toda la lógica vive en services y el motor.
package session

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/passlane/internal/domain/repository"
	dto "github.com/dropDatabas3/passlane/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/passlane/internal/http/errors"
	svc "github.com/dropDatabas3/passlane/internal/http/services/session"
	"github.com/dropDatabas3/passlane/internal/observability/logger"
)

const maxBodyBytes = 32 << 10 // 32KB

// PasswordlessController maneja send/verify de passcodes para sign-in y
// registro.
type PasswordlessController struct {
	service svc.PasswordlessService
}

// NewPasswordlessController crea el controller.
func NewPasswordlessController(service svc.PasswordlessService) *PasswordlessController {
	return &PasswordlessController{service: service}
}

// SendSignInPasscode maneja POST /session/sign-in/passwordless/{channel}/send-passcode.
func (c *PasswordlessController) SendSignInPasscode(w http.ResponseWriter, r *http.Request) {
	c.send(w, r, repository.FlowSignIn, "PasswordlessController.SendSignInPasscode")
}

// SendRegisterPasscode maneja POST /session/register/passwordless/{channel}/send-passcode.
func (c *PasswordlessController) SendRegisterPasscode(w http.ResponseWriter, r *http.Request) {
	c.send(w, r, repository.FlowRegister, "PasswordlessController.SendRegisterPasscode")
}

// VerifySignInPasscode maneja POST /session/sign-in/passwordless/{channel}/verify-passcode.
func (c *PasswordlessController) VerifySignInPasscode(w http.ResponseWriter, r *http.Request) {
	c.verify(w, r, repository.FlowSignIn, "PasswordlessController.VerifySignInPasscode")
}

// VerifyRegisterPasscode maneja POST /session/register/passwordless/{channel}/verify-passcode.
func (c *PasswordlessController) VerifyRegisterPasscode(w http.ResponseWriter, r *http.Request) {
	c.verify(w, r, repository.FlowRegister, "PasswordlessController.VerifyRegisterPasscode")
}

func (c *PasswordlessController) send(w http.ResponseWriter, r *http.Request, flow repository.PasscodeFlow, op string) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op(op))

	channel, ok := channelParam(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req dto.SendPasscodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	if err := c.service.SendPasscode(ctx, flow, channel, req.Destination(string(channel))); err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
	log.Debug("passcode send accepted")
}

func (c *PasswordlessController) verify(w http.ResponseWriter, r *http.Request, flow repository.PasscodeFlow, op string) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op(op))

	channel, ok := channelParam(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req dto.VerifyPasscodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	redirectTo, err := c.service.VerifyPasscode(ctx, flow, channel, req.Destination(string(channel)), req.Code)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RedirectResponse{RedirectTo: redirectTo})
	log.Debug("passcode verify completed")
}

// channelParam valida el parámetro {channel} de la ruta.
func channelParam(w http.ResponseWriter, r *http.Request) (repository.Channel, bool) {
	channel := repository.Channel(chi.URLParam(r, "channel"))
	if !channel.Valid() {
		httperrors.WriteError(w, httperrors.ErrInvalidChannel)
		return "", false
	}
	return channel, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
