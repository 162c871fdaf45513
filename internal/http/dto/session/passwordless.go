// Package session contiene los DTOs de las rutas de sesión.
package session

// SendPasscodeRequest es el body de send-passcode. Según el canal de la ruta
// se espera phone o email; el otro campo se ignora.
type SendPasscodeRequest struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// VerifyPasscodeRequest es el body de verify-passcode.
type VerifyPasscodeRequest struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Code  string `json:"code"`
}

// RedirectResponse es la respuesta de los endpoints que cierran la
// interacción: el navegador debe continuar en RedirectTo.
type RedirectResponse struct {
	RedirectTo string `json:"redirectTo"`
}

// Destination devuelve el campo correspondiente al canal de la ruta.
func (r SendPasscodeRequest) Destination(channel string) string {
	if channel == "sms" {
		return r.Phone
	}
	return r.Email
}

// Destination devuelve el campo correspondiente al canal de la ruta.
func (r VerifyPasscodeRequest) Destination(channel string) string {
	if channel == "sms" {
		return r.Phone
	}
	return r.Email
}
