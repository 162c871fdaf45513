// Package config carga la configuración del servicio desde YAML con
// overrides por variables de entorno. El resultado es un objeto explícito
// que main pasa al wiring; nada lee configuración de forma ambiental.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env     string `yaml:"env"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		MaxConns int    `yaml:"max_conns"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Send    struct {
			Limit  int           `yaml:"limit"`
			Window time.Duration `yaml:"window"`
		} `yaml:"send"`
	} `yaml:"rate"`

	Passcode struct {
		TTL            time.Duration `yaml:"ttl"`
		ResendCooldown time.Duration `yaml:"resend_cooldown"`
		// SweepInterval es la cadencia del barrido de passcodes muertos.
		SweepInterval time.Duration `yaml:"sweep_interval"`
	} `yaml:"passcode"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
		TLS      string `yaml:"tls"` // auto | starttls | ssl | none
		Insecure bool   `yaml:"insecure"`
	} `yaml:"smtp"`

	SMS struct {
		GatewayURL string        `yaml:"gateway_url"`
		APIKey     string        `yaml:"api_key"`
		From       string        `yaml:"from"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"sms"`

	Provider struct {
		// API de interacciones del provider OIDC.
		BaseURL  string        `yaml:"base_url"`
		APIToken string        `yaml:"api_token"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"provider"`

	Social struct {
		StateSecret string        `yaml:"state_secret"`
		StateTTL    time.Duration `yaml:"state_ttl"`
		Connectors  []Connector   `yaml:"connectors"`
	} `yaml:"social"`
}

// Connector describe un IdP social OAuth2.
type Connector struct {
	Target       string   `yaml:"target"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	AuthorizeURL string   `yaml:"authorize_url"`
	TokenURL     string   `yaml:"token_url"`
	UserInfoURL  string   `yaml:"userinfo_url"`
	Scopes       []string `yaml:"scopes"`
	IDKey        string   `yaml:"id_key"`
	EmailKey     string   `yaml:"email_key"`
	PhoneKey     string   `yaml:"phone_key"`
	NameKey      string   `yaml:"name_key"`
	AvatarKey    string   `yaml:"avatar_key"`
}

// Load lee el YAML (si path no está vacío), aplica defaults y overrides de
// entorno, y valida.
func Load(path string) (*Config, error) {
	var c Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8085"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.MaxConns == 0 {
		c.Storage.MaxConns = 10
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Rate.Send.Limit == 0 {
		c.Rate.Send.Limit = 10
	}
	if c.Rate.Send.Window == 0 {
		c.Rate.Send.Window = time.Minute
	}
	if c.Passcode.TTL == 0 {
		c.Passcode.TTL = 10 * time.Minute
	}
	if c.Passcode.ResendCooldown == 0 {
		c.Passcode.ResendCooldown = 60 * time.Second
	}
	if c.Passcode.SweepInterval == 0 {
		c.Passcode.SweepInterval = 10 * time.Minute
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 10 * time.Second
	}
	if c.Social.StateTTL == 0 {
		c.Social.StateTTL = 10 * time.Minute
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func getEnvBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func getEnvDur(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("PASSLANE_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("PASSLANE_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("PASSLANE_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("PASSLANE_STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("PASSLANE_STORAGE_MAX_CONNS"); ok {
		c.Storage.MaxConns = v
	}
	if v, ok := getEnvStr("PASSLANE_CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvBool("PASSLANE_RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("PASSLANE_RATE_SEND_LIMIT"); ok {
		c.Rate.Send.Limit = v
	}
	if v, ok := getEnvDur("PASSLANE_RATE_SEND_WINDOW"); ok {
		c.Rate.Send.Window = v
	}
	if v, ok := getEnvDur("PASSLANE_PASSCODE_TTL"); ok {
		c.Passcode.TTL = v
	}
	if v, ok := getEnvDur("PASSLANE_PASSCODE_RESEND_COOLDOWN"); ok {
		c.Passcode.ResendCooldown = v
	}
	if v, ok := getEnvDur("PASSLANE_PASSCODE_SWEEP_INTERVAL"); ok {
		c.Passcode.SweepInterval = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMS_GATEWAY_URL"); ok {
		c.SMS.GatewayURL = v
	}
	if v, ok := getEnvStr("SMS_API_KEY"); ok {
		c.SMS.APIKey = v
	}
	if v, ok := getEnvStr("PASSLANE_PROVIDER_URL"); ok {
		c.Provider.BaseURL = v
	}
	if v, ok := getEnvStr("PASSLANE_PROVIDER_TOKEN"); ok {
		c.Provider.APIToken = v
	}
	if v, ok := getEnvStr("PASSLANE_STATE_SECRET"); ok {
		c.Social.StateSecret = v
	}
}

// Validate chequea las combinaciones que no pueden arrancar.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.dsn is required for postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("config: cache.redis.addr is required for redis cache")
		}
	default:
		return fmt.Errorf("config: unknown cache kind %q", c.Cache.Kind)
	}

	if c.Provider.BaseURL == "" {
		return fmt.Errorf("config: provider.base_url is required")
	}
	if len(c.Social.Connectors) > 0 && len(c.Social.StateSecret) < 32 {
		return fmt.Errorf("config: social.state_secret must be at least 32 bytes when connectors are configured")
	}
	return nil
}
