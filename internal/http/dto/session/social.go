package session

// SocialStartRequest inicia el flujo social: pide la URL de autorización del
// connector indicado.
type SocialStartRequest struct {
	ConnectorID string `json:"connectorId"`
	RedirectURI string `json:"redirectUri"`
}

// SocialStartResponse contiene la URL de autorización hacia el IdP.
type SocialStartResponse struct {
	RedirectTo string `json:"redirectTo"`
}

// SocialCallbackRequest es el body del callback social con el authorization
// code y el state firmado que emitió el start.
type SocialCallbackRequest struct {
	ConnectorID string `json:"connectorId"`
	Code        string `json:"code"`
	State       string `json:"state"`
	RedirectURI string `json:"redirectUri"`
}
