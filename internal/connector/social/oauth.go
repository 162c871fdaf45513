// Package social implementa un SocialConnector OAuth2 genérico (authorization
// code) configurable por endpoints, suficiente para GitHub, Google y cualquier
// IdP que exponga un userinfo JSON.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/passlane/internal/connector"
	"github.com/dropDatabas3/passlane/internal/observability/logger"
)

// Config describe un IdP OAuth2 por sus endpoints y el mapeo de claims.
type Config struct {
	Target       string
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string

	// Claves dentro del JSON de userinfo. IDKey es obligatorio.
	IDKey     string
	EmailKey  string
	PhoneKey  string
	NameKey   string
	AvatarKey string

	Timeout time.Duration
}

// Connector implementa connector.SocialConnector sobre la Config.
type Connector struct {
	cfg  Config
	http *http.Client
}

// New valida la configuración y construye el connector.
func New(cfg Config) (*Connector, error) {
	switch {
	case cfg.Target == "":
		return nil, fmt.Errorf("social: target is required")
	case cfg.ClientID == "" || cfg.ClientSecret == "":
		return nil, fmt.Errorf("social: client credentials are required for %q", cfg.Target)
	case cfg.TokenURL == "" || cfg.UserInfoURL == "":
		return nil, fmt.Errorf("social: token and userinfo URLs are required for %q", cfg.Target)
	}
	if cfg.IDKey == "" {
		cfg.IDKey = "id"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Connector{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}, nil
}

// Target devuelve el identificador del connector.
func (c *Connector) Target() string { return c.cfg.Target }

// AuthorizationURI arma la URL de autorización hacia el IdP.
func (c *Connector) AuthorizationURI(state, redirectURI string) string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("state", state)
	if len(c.cfg.Scopes) > 0 {
		q.Set("scope", strings.Join(c.cfg.Scopes, " "))
	}
	return c.cfg.AuthorizeURL + "?" + q.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// ExchangeCode canjea el authorization code y resuelve el perfil externo.
func (c *Connector) ExchangeCode(ctx context.Context, code, redirectURI string) (*connector.ExternalProfile, error) {
	log := logger.From(ctx).With(
		logger.Component("social.Connector"),
		logger.Connector(c.cfg.Target),
	)

	token, err := c.fetchToken(ctx, code, redirectURI)
	if err != nil {
		log.Warn("token exchange failed", logger.Err(err))
		return nil, err
	}

	profile, err := c.fetchProfile(ctx, token)
	if err != nil {
		log.Warn("userinfo fetch failed", logger.Err(err))
		return nil, err
	}
	return profile, nil
}

func (c *Connector) fetchToken(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("social: token endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("social: token endpoint status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&tok); err != nil {
		return "", fmt.Errorf("social: decode token response: %w", err)
	}
	if tok.Error != "" {
		return "", fmt.Errorf("social: token endpoint error %q: %s", tok.Error, tok.ErrorDesc)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("social: token endpoint returned empty access_token")
	}
	return tok.AccessToken, nil
}

func (c *Connector) fetchProfile(ctx context.Context, accessToken string) (*connector.ExternalProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("social: userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("social: userinfo endpoint status %d", resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 256<<10)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("social: decode userinfo: %w", err)
	}

	id := stringClaim(raw, c.cfg.IDKey)
	if id == "" {
		return nil, fmt.Errorf("social: userinfo missing %q claim", c.cfg.IDKey)
	}

	return &connector.ExternalProfile{
		ExternalUserID: id,
		Email:          stringClaim(raw, c.cfg.EmailKey),
		Phone:          stringClaim(raw, c.cfg.PhoneKey),
		Name:           stringClaim(raw, c.cfg.NameKey),
		Avatar:         stringClaim(raw, c.cfg.AvatarKey),
		Raw:            raw,
	}, nil
}

// stringClaim normaliza claims string o numéricos (GitHub devuelve id int).
func stringClaim(m map[string]any, key string) string {
	if key == "" {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
