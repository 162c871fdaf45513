package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type cliOptions struct {
	baseURL     string
	interaction string
	timeout     time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "passlanectl",
		Short:         "CLI de operación de passlane",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("PASSLANE_URL", "http://localhost:8085"), "URL base del servicio")
	root.PersistentFlags().StringVar(&opts.interaction, "interaction", "", "jti de la interacción (cookie _interaction)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "timeout de los requests")

	root.AddCommand(
		newHealthCmd(opts),
		newPasscodeCmd(opts),
		newSocialCmd(opts),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// do ejecuta un request contra el servicio y vuelca la respuesta a stdout.
func (o *cliOptions) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, o.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if o.interaction != "" {
		req.AddCookie(&http.Cookie{Name: "_interaction", Value: o.interaction})
	}

	client := &http.Client{Timeout: o.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Printf("HTTP %d\n", resp.StatusCode)
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if len(bytes.TrimSpace(b)) > 0 {
		var pretty bytes.Buffer
		if json.Indent(&pretty, b, "", "  ") == nil {
			fmt.Println(pretty.String())
		} else {
			fmt.Println(string(b))
		}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}

func newHealthCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Consulta /healthz y /readyz",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := opts.do(http.MethodGet, "/healthz", nil); err != nil {
				return err
			}
			return opts.do(http.MethodGet, "/readyz", nil)
		},
	}
	return cmd
}

func newPasscodeCmd(opts *cliOptions) *cobra.Command {
	var (
		flow        string
		channel     string
		destination string
		code        string
	)

	cmd := &cobra.Command{
		Use:   "passcode",
		Short: "Opera los flujos passwordless (send/verify)",
	}

	send := &cobra.Command{
		Use:   "send",
		Short: "Emite un passcode para el destino",
		RunE: func(_ *cobra.Command, _ []string) error {
			body := destinationBody(channel, destination, "")
			path := fmt.Sprintf("/session/%s/passwordless/%s/send-passcode", flowSegment(flow), channel)
			return opts.do(http.MethodPost, path, body)
		},
	}

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Verifica un passcode y cierra la interacción",
		RunE: func(_ *cobra.Command, _ []string) error {
			body := destinationBody(channel, destination, code)
			path := fmt.Sprintf("/session/%s/passwordless/%s/verify-passcode", flowSegment(flow), channel)
			return opts.do(http.MethodPost, path, body)
		},
	}
	verify.Flags().StringVar(&code, "code", "", "código recibido")
	_ = verify.MarkFlagRequired("code")

	for _, c := range []*cobra.Command{send, verify} {
		c.Flags().StringVar(&flow, "flow", "sign-in", "sign-in | register")
		c.Flags().StringVar(&channel, "channel", "sms", "sms | email")
		c.Flags().StringVar(&destination, "destination", "", "teléfono o email destino")
		_ = c.MarkFlagRequired("destination")
	}

	cmd.AddCommand(send, verify)
	return cmd
}

func newSocialCmd(opts *cliOptions) *cobra.Command {
	var (
		connectorID string
		redirectURI string
		code        string
		state       string
	)

	cmd := &cobra.Command{
		Use:   "social",
		Short: "Opera el flujo social (start/callback)",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Pide la URL de autorización del connector",
		RunE: func(_ *cobra.Command, _ []string) error {
			return opts.do(http.MethodPost, "/session/sign-in/social", map[string]string{
				"connectorId": connectorID,
				"redirectUri": redirectURI,
			})
		},
	}

	callback := &cobra.Command{
		Use:   "callback",
		Short: "Completa el callback social",
		RunE: func(_ *cobra.Command, _ []string) error {
			return opts.do(http.MethodPost, "/session/sign-in/social/callback", map[string]string{
				"connectorId": connectorID,
				"redirectUri": redirectURI,
				"code":        code,
				"state":       state,
			})
		},
	}
	callback.Flags().StringVar(&code, "code", "", "authorization code del IdP")
	callback.Flags().StringVar(&state, "state", "", "state devuelto por el IdP")
	_ = callback.MarkFlagRequired("code")
	_ = callback.MarkFlagRequired("state")

	for _, c := range []*cobra.Command{start, callback} {
		c.Flags().StringVar(&connectorID, "connector", "", "target del connector (github, google...)")
		c.Flags().StringVar(&redirectURI, "redirect-uri", "", "redirect URI registrada en el IdP")
		_ = c.MarkFlagRequired("connector")
	}

	cmd.AddCommand(start, callback)
	return cmd
}

func flowSegment(flow string) string {
	if flow == "register" {
		return "register"
	}
	return "sign-in"
}

func destinationBody(channel, destination, code string) map[string]string {
	body := map[string]string{}
	if channel == "sms" {
		body["phone"] = destination
	} else {
		body["email"] = destination
	}
	if code != "" {
		body["code"] = code
	}
	return body
}
