package interaction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/passlane/internal/observability/logger"
)

// Client implementa Provider sobre la API HTTP del provider OIDC.
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
}

// NewClient valida la configuración y construye el cliente.
func NewClient(baseURL, apiToken string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("interaction: provider base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("interaction: invalid provider base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Details lee la interacción en curso.
func (c *Client) Details(ctx context.Context, jti string) (*Interaction, error) {
	log := logger.From(ctx).With(
		logger.Component("interaction.Client"),
		logger.InteractionID(jti),
	)

	req, err := c.newRequest(ctx, http.MethodGet, "/interactions/"+url.PathEscape(jti), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error("provider unreachable", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 300:
		log.Error("provider rejected details", logger.Status(resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrProviderDown, resp.StatusCode)
	}

	var it Interaction
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&it); err != nil {
		return nil, fmt.Errorf("interaction: decode details: %w", err)
	}
	if it.JTI == "" {
		it.JTI = jti
	}
	return &it, nil
}

type resultResponse struct {
	RedirectTo string `json:"redirectTo"`
}

// SubmitResult cierra la interacción y devuelve el redirect.
func (c *Client) SubmitResult(ctx context.Context, jti string, result Result) (string, error) {
	log := logger.From(ctx).With(
		logger.Component("interaction.Client"),
		logger.InteractionID(jti),
	)

	body, err := json.Marshal(result)
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/interactions/"+url.PathEscape(jti)+"/result", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error("provider unreachable", logger.Err(err))
		return "", fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	case resp.StatusCode >= 300:
		log.Error("provider rejected result", logger.Status(resp.StatusCode))
		return "", fmt.Errorf("%w: status %d", ErrProviderDown, resp.StatusCode)
	}

	var out resultResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return "", fmt.Errorf("interaction: decode result: %w", err)
	}
	if out.RedirectTo == "" {
		return "", fmt.Errorf("interaction: provider returned empty redirectTo")
	}
	return out.RedirectTo, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

var _ Provider = (*Client)(nil)
