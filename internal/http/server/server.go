// Package server hace el wiring completo del servicio: construye el store,
// cache, connectors, servicios y router a partir de la configuración.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropDatabas3/passlane/internal/audit"
	"github.com/dropDatabas3/passlane/internal/cache"
	cachememory "github.com/dropDatabas3/passlane/internal/cache/memory"
	cacheredis "github.com/dropDatabas3/passlane/internal/cache/redis"
	"github.com/dropDatabas3/passlane/internal/config"
	"github.com/dropDatabas3/passlane/internal/connector"
	"github.com/dropDatabas3/passlane/internal/connector/sms"
	"github.com/dropDatabas3/passlane/internal/connector/smtp"
	"github.com/dropDatabas3/passlane/internal/connector/social"
	"github.com/dropDatabas3/passlane/internal/domain/repository"
	healthctrl "github.com/dropDatabas3/passlane/internal/http/controllers/health"
	sessionctrl "github.com/dropDatabas3/passlane/internal/http/controllers/session"
	"github.com/dropDatabas3/passlane/internal/http/router"
	sessionsvc "github.com/dropDatabas3/passlane/internal/http/services/session"
	"github.com/dropDatabas3/passlane/internal/identity"
	"github.com/dropDatabas3/passlane/internal/interaction"
	"github.com/dropDatabas3/passlane/internal/metrics"
	"github.com/dropDatabas3/passlane/internal/observability/logger"
	"github.com/dropDatabas3/passlane/internal/passcode"
	"github.com/dropDatabas3/passlane/internal/rate"
	"github.com/dropDatabas3/passlane/internal/reconcile"
	"github.com/dropDatabas3/passlane/internal/store"
	storememory "github.com/dropDatabas3/passlane/internal/store/memory"
	storepg "github.com/dropDatabas3/passlane/internal/store/pg"
	migrations "github.com/dropDatabas3/passlane/migrations/postgres"
)

// CleanupFunc libera los recursos abiertos durante el wiring.
type CleanupFunc func() error

// Build construye el handler HTTP completo a partir de la configuración.
func Build(ctx context.Context, cfg *config.Config) (http.Handler, CleanupFunc, error) {
	log := logger.Named("server")

	da, cleanupStore, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	kv, rdb, err := buildCache(cfg)
	if err != nil {
		cleanupStore()
		return nil, nil, err
	}

	senders, err := buildSenders(cfg)
	if err != nil {
		cleanupStore()
		return nil, nil, err
	}

	provider, err := interaction.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIToken, cfg.Provider.Timeout)
	if err != nil {
		cleanupStore()
		return nil, nil, err
	}

	if err := metrics.Register(nil); err != nil {
		cleanupStore()
		return nil, nil, err
	}

	passcodes := passcode.NewService(da.Passcodes(), senders, kv, passcode.Options{
		TTL:            cfg.Passcode.TTL,
		ResendCooldown: cfg.Passcode.ResendCooldown,
	})
	startPasscodeSweep(ctx, da.Passcodes(), cfg.Passcode.SweepInterval)
	lookup := identity.NewLookup(da.Accounts(), da.Identities())
	engine := reconcile.New(lookup, da.Accounts(), da.Identities())
	recorder := audit.NewLogRecorder()

	connectors, states, err := buildSocial(cfg)
	if err != nil {
		cleanupStore()
		return nil, nil, err
	}

	passwordlessSvc := sessionsvc.NewPasswordlessService(sessionsvc.PasswordlessDeps{
		Passcodes: passcodes,
		Lookup:    lookup,
		Engine:    engine,
		Provider:  provider,
		Audit:     recorder,
	})
	socialSvc := sessionsvc.NewSocialService(sessionsvc.SocialDeps{
		Connectors: connectors,
		States:     states,
		Nonces:     kv,
		Engine:     engine,
		Provider:   provider,
		Audit:      recorder,
	})

	var sendLimiter rate.Limiter
	if cfg.Rate.Enabled {
		if rdb != nil {
			sendLimiter = rate.NewRedis(rdb, "passlane:rate:", cfg.Rate.Send.Limit, cfg.Rate.Send.Window)
		} else {
			sendLimiter = rate.NewMemory(cfg.Rate.Send.Limit, cfg.Rate.Send.Window)
		}
	}

	handler := router.New(router.Deps{
		Passwordless: sessionctrl.NewPasswordlessController(passwordlessSvc),
		Social:       sessionctrl.NewSocialController(socialSvc),
		Health:       healthctrl.NewHealthController(da, cfg.App.Version),
		SendLimiter:  sendLimiter,
		RateWindow:   cfg.Rate.Send.Window,
	})

	cleanup := func() error {
		cleanupStore()
		if rdb != nil {
			return rdb.Close()
		}
		return nil
	}

	log.Info("wiring completed",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.Count(len(connectors)),
	)
	return handler, cleanup, nil
}

// startPasscodeSweep corre el barrido periódico de passcodes muertos hasta
// que ctx se cancela.
func startPasscodeSweep(ctx context.Context, repo repository.PasscodeRepository, every time.Duration) {
	log := logger.Named("passcode.sweep")
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				sweepExpiredPasscodes(ctx, repo, log)
			}
		}
	}()
}

// sweepExpiredPasscodes borra los passcodes vencidos o consumidos. Las filas
// muertas no cambian la semántica de verify, solo engordan la tabla.
func sweepExpiredPasscodes(ctx context.Context, repo repository.PasscodeRepository, log *zap.Logger) {
	n, err := repo.DeleteExpired(ctx)
	if err != nil {
		log.Warn("passcode sweep failed", logger.Err(err))
		return
	}
	if n > 0 {
		log.Info("expired passcodes removed", logger.Count(n))
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (store.DataAccess, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		adapter, err := storepg.Open(ctx, cfg.Storage.DSN, int32(cfg.Storage.MaxConns))
		if err != nil {
			return nil, nil, fmt.Errorf("server: open postgres: %w", err)
		}
		migrator := store.NewMigrator(migrations.FS, migrations.Dir)
		res, err := migrator.Run(ctx, adapter)
		if err != nil {
			adapter.Close()
			return nil, nil, fmt.Errorf("server: migrations: %w", err)
		}
		logger.Named("server").Info("migrations applied",
			logger.Count(len(res.Applied)),
		)
		return adapter, adapter.Close, nil
	case "memory":
		m := storememory.New()
		return m, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("server: unknown storage driver %q", cfg.Storage.Driver)
	}
}

func buildCache(cfg *config.Config) (cache.Cache, *goredis.Client, error) {
	if cfg.Cache.Kind == "redis" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("server: redis ping: %w", err)
		}
		return cacheredis.New(rdb, cfg.Cache.Redis.Prefix), rdb, nil
	}
	return cachememory.New(), nil, nil
}

func buildSenders(cfg *config.Config) (map[repository.Channel]connector.Sender, error) {
	senders := make(map[repository.Channel]connector.Sender)

	if cfg.SMTP.Host != "" {
		senders[repository.ChannelEmail] = smtp.New(smtp.Config{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			FromEmail:          cfg.SMTP.From,
			TLSMode:            cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.Insecure,
		})
	}

	if cfg.SMS.GatewayURL != "" {
		s, err := sms.New(sms.Config{
			GatewayURL: cfg.SMS.GatewayURL,
			APIKey:     cfg.SMS.APIKey,
			From:       cfg.SMS.From,
			Timeout:    cfg.SMS.Timeout,
		})
		if err != nil {
			return nil, err
		}
		senders[repository.ChannelSMS] = s
	}

	if len(senders) == 0 {
		return nil, fmt.Errorf("server: no passcode senders configured (smtp.host and/or sms.gateway_url)")
	}
	return senders, nil
}

func buildSocial(cfg *config.Config) (map[string]connector.SocialConnector, *social.StateSigner, error) {
	connectors := make(map[string]connector.SocialConnector)
	if len(cfg.Social.Connectors) == 0 {
		return connectors, nil, nil
	}

	states, err := social.NewStateSigner([]byte(cfg.Social.StateSecret), cfg.Social.StateTTL)
	if err != nil {
		return nil, nil, err
	}

	for _, cc := range cfg.Social.Connectors {
		conn, err := social.New(social.Config{
			Target:       cc.Target,
			ClientID:     cc.ClientID,
			ClientSecret: cc.ClientSecret,
			AuthorizeURL: cc.AuthorizeURL,
			TokenURL:     cc.TokenURL,
			UserInfoURL:  cc.UserInfoURL,
			Scopes:       cc.Scopes,
			IDKey:        cc.IDKey,
			EmailKey:     cc.EmailKey,
			PhoneKey:     cc.PhoneKey,
			NameKey:      cc.NameKey,
			AvatarKey:    cc.AvatarKey,
		})
		if err != nil {
			return nil, nil, err
		}
		connectors[cc.Target] = conn
	}
	return connectors, states, nil
}
