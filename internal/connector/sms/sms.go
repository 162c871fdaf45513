// Package sms implementa el Sender de passcodes por SMS contra un gateway
// HTTP genérico (POST JSON + API key), el contrato que exponen la mayoría
// de los agregadores.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dropDatabas3/passlane/internal/connector"
	"github.com/dropDatabas3/passlane/internal/observability/logger"
)

// Config contiene la configuración del gateway SMS.
type Config struct {
	GatewayURL string
	APIKey     string
	From       string
	Timeout    time.Duration
}

// Sender implementa connector.Sender contra el gateway.
type Sender struct {
	cfg  Config
	http *http.Client
}

// New crea un Sender. Falla si falta la URL del gateway: la capability se
// chequea al construir, no por llamada.
func New(cfg Config) (*Sender, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("sms: gateway url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}, nil
}

type sendRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

// Send entrega el passcode al teléfono destino vía el gateway.
func (s *Sender) Send(ctx context.Context, destination, code string, ttl time.Duration) (*connector.DeliveryReceipt, error) {
	log := logger.From(ctx).With(
		logger.Component("sms.Sender"),
		logger.Destination(destination),
	)

	body, err := json.Marshal(sendRequest{
		To:   destination,
		From: s.cfg.From,
		Body: fmt.Sprintf("%s is your verification code. Valid for %d minutes.", code, int(ttl.Minutes())),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.http.Do(req)
	if err != nil {
		log.Error("sms gateway unreachable", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", connector.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		log.Error("sms gateway rejected send",
			logger.Status(resp.StatusCode),
			logger.String("response", string(b)),
		)
		return nil, fmt.Errorf("%w: gateway status %d", connector.ErrDeliveryFailed, resp.StatusCode)
	}

	var out sendResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)

	log.Debug("passcode sms sent")
	return &connector.DeliveryReceipt{
		MessageID: out.MessageID,
		SentAt:    time.Now().UTC(),
	}, nil
}
