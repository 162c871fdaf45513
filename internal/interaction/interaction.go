// Package interaction habla con la API de interacciones del provider OIDC:
// lee el contexto de la interacción en curso y le somete el resultado de la
// reconciliación a cambio del redirect final.
package interaction

import (
	"context"
	"errors"
)

// Errores del provider de interacciones.
var (
	ErrNotFound     = errors.New("interaction not found")
	ErrProviderDown = errors.New("interaction provider unavailable")
)

// Interaction es el registro del lado del servidor de una interacción OIDC
// en curso. RelatedAccountID solo viene cuando el provider sugiere ligar la
// identidad social a una cuenta existente; nunca lo aporta el cliente.
type Interaction struct {
	JTI              string `json:"jti"`
	Prompt           string `json:"prompt"`
	RelatedAccountID string `json:"relatedAccountId,omitempty"`
	ReturnTo         string `json:"returnTo,omitempty"`
}

// LoginResult es el payload que el provider espera para cerrar la
// interacción: { "login": { "accountId": "..." } }.
type LoginResult struct {
	AccountID string `json:"accountId"`
}

// Result es el sobre del resultado.
type Result struct {
	Login *LoginResult `json:"login,omitempty"`
}

// Provider es el cliente de la API de interacciones.
type Provider interface {
	// Details lee la interacción. ErrNotFound si el jti no existe o venció.
	Details(ctx context.Context, jti string) (*Interaction, error)

	// SubmitResult cierra la interacción con el resultado dado y devuelve la
	// URL a la que el navegador debe continuar.
	SubmitResult(ctx context.Context, jti string, result Result) (redirectTo string, err error)
}
