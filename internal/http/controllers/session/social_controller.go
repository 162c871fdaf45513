package session

import (
	"encoding/json"
	"net/http"

	dto "github.com/dropDatabas3/passlane/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/passlane/internal/http/errors"
	svc "github.com/dropDatabas3/passlane/internal/http/services/session"
	"github.com/dropDatabas3/passlane/internal/observability/logger"
)

// SocialController maneja el inicio y el callback del flujo social.
type SocialController struct {
	service svc.SocialService
}

// NewSocialController crea el controller.
func NewSocialController(service svc.SocialService) *SocialController {
	return &SocialController{service: service}
}

// Start maneja POST /session/sign-in/social.
func (c *SocialController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SocialController.Start"))

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req dto.SocialStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	redirectTo, err := c.service.Start(ctx, req.ConnectorID, req.RedirectURI)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SocialStartResponse{RedirectTo: redirectTo})
	log.Debug("social flow started", logger.Connector(req.ConnectorID))
}

// Callback maneja POST /session/sign-in/social/callback.
func (c *SocialController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SocialController.Callback"))

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req dto.SocialCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	redirectTo, err := c.service.Callback(ctx, req.ConnectorID, req.Code, req.State, req.RedirectURI)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RedirectResponse{RedirectTo: redirectTo})
	log.Debug("social callback completed", logger.Connector(req.ConnectorID))
}
