// Package validation valida los destinos de passcode antes de tocar el
// almacenamiento o los connectors.
package validation

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/dropDatabas3/passlane/internal/domain/repository"
)

// Errores de formato de destino.
var (
	ErrInvalidPhone   = errors.New("invalid phone format")
	ErrInvalidEmail   = errors.New("invalid email format")
	ErrInvalidChannel = errors.New("invalid channel")
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15 // E.164
	maxEmailLen    = 320
)

// Destination valida el destino según el canal y devuelve la forma
// normalizada (email en minúsculas, teléfono solo dígitos).
func Destination(channel repository.Channel, destination string) (string, error) {
	switch channel {
	case repository.ChannelSMS:
		return Phone(destination)
	case repository.ChannelEmail:
		return Email(destination)
	default:
		return "", ErrInvalidChannel
	}
}

// Phone acepta solo dígitos, con un "+" inicial opcional que se descarta.
func Phone(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	p = strings.TrimPrefix(p, "+")
	if len(p) < minPhoneDigits || len(p) > maxPhoneDigits {
		return "", ErrInvalidPhone
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return p, nil
}

// Email valida con el parser de RFC 5322 y normaliza a minúsculas.
func Email(raw string) (string, error) {
	e := strings.TrimSpace(raw)
	if e == "" || len(e) > maxEmailLen {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		// ParseAddress acepta "Name <a@b>"; acá solo queremos la dirección.
		return "", ErrInvalidEmail
	}
	if !strings.Contains(e, ".") {
		// Exigimos dominio con punto: "a@b" pasa el parser pero no es un
		// destino entregable.
		return "", ErrInvalidEmail
	}
	return strings.ToLower(e), nil
}
