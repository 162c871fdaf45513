// Package smtp implementa el Sender de passcodes por email sobre SMTP.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/passlane/internal/connector"
	"github.com/dropDatabas3/passlane/internal/observability/logger"
)

// Config contiene la configuración para conectarse a un servidor SMTP.
type Config struct {
	Host               string
	Port               int
	Username           string
	Password           string
	FromEmail          string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

// Sender implementa connector.Sender usando SMTP.
type Sender struct {
	cfg Config
}

// New crea un Sender desde la configuración.
func New(cfg Config) *Sender {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Sender{cfg: cfg}
}

// Send envía el passcode al email destino como multipart/alternative.
func (s *Sender) Send(ctx context.Context, destination, code string, ttl time.Duration) (*connector.DeliveryReceipt, error) {
	log := logger.From(ctx).With(
		logger.Component("smtp.Sender"),
		logger.Destination(destination),
	)

	subject := "Your sign-in code"
	text := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(ttl.Minutes()))
	html := fmt.Sprintf(
		`<p>Your verification code is</p><p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p><p>It expires in %d minutes.</p>`,
		code, int(ttl.Minutes()))

	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", destination)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", html)

	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify, // solo dev
	}

	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.cfg.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	if err := d.DialAndSend(m); err != nil {
		log.Error("smtp send failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", connector.ErrDeliveryFailed, err)
	}

	log.Debug("passcode email sent")
	return &connector.DeliveryReceipt{SentAt: time.Now().UTC()}, nil
}
