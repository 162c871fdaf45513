// Package passcode emite y verifica los códigos one-time de los flujos
// passwordless. El código viaja por el connector y se guarda hasheado; la
// verificación consume el registro con un único update condicional, así que
// un código correcto sirve exactamente una vez.
package passcode

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dropDatabas3/passlane/internal/cache"
	"github.com/dropDatabas3/passlane/internal/connector"
	"github.com/dropDatabas3/passlane/internal/domain/repository"
	"github.com/dropDatabas3/passlane/internal/observability/logger"
)

// Errores de negocio del servicio.
var (
	ErrCodeMismatch   = errors.New("passcode mismatch")
	ErrCodeExpired    = errors.New("passcode expired")
	ErrCodeConsumed   = errors.New("passcode already consumed")
	ErrNoPasscode     = errors.New("no passcode issued")
	ErrResendTooSoon  = errors.New("passcode resend too soon")
	ErrDeliveryFailed = connector.ErrDeliveryFailed
	ErrUnknownChannel = errors.New("unknown passcode channel")
)

const (
	codeLength     = 6
	defaultTTL     = 10 * time.Minute
	resendCooldown = 60 * time.Second
)

// Options ajusta el servicio; los ceros usan los defaults.
type Options struct {
	TTL            time.Duration
	ResendCooldown time.Duration
}

// Service emite y verifica passcodes.
type Service struct {
	repo    repository.PasscodeRepository
	senders map[repository.Channel]connector.Sender
	cache   cache.Cache
	ttl     time.Duration
	cool    time.Duration

	// generate permite fijar el código en tests.
	generate func() (string, error)
	// now permite congelar el reloj en tests.
	now func() time.Time
}

// NewService construye el servicio con un sender por canal.
func NewService(repo repository.PasscodeRepository, senders map[repository.Channel]connector.Sender, c cache.Cache, opts Options) *Service {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	cool := opts.ResendCooldown
	if cool <= 0 {
		cool = resendCooldown
	}
	return &Service{
		repo:     repo,
		senders:  senders,
		cache:    c,
		ttl:      ttl,
		cool:     cool,
		generate: generateCode,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Issue genera, persiste y entrega un passcode para la key dada. Un Issue
// nuevo invalida los códigos vivos anteriores de la misma key. El cooldown
// corta reenvíos compulsivos por (canal, destino).
func (s *Service) Issue(ctx context.Context, key repository.PasscodeKey) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("Passcode.Issue"),
		logger.Channel(string(key.Channel)),
		logger.Destination(key.Destination),
	)

	sender, ok := s.senders[key.Channel]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, key.Channel)
	}

	coolKey := "passcode:cooldown:" + string(key.Channel) + ":" + key.Destination
	fresh, err := s.cache.SetNX(ctx, coolKey, "1", s.cool)
	if err != nil {
		// El cooldown es mejora de UX: si el cache falla, se emite igual.
		log.Warn("cooldown check failed", logger.Err(err))
	} else if !fresh {
		log.Info("issue rejected by resend cooldown")
		return ErrResendTooSoon
	}

	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("passcode: generate: %w", err)
	}

	if _, err := s.repo.Create(ctx, repository.CreatePasscodeInput{
		Key:        key,
		CodeHash:   HashCode(code),
		TTLSeconds: int(s.ttl.Seconds()),
	}); err != nil {
		log.Error("could not persist passcode", logger.Err(err))
		return err
	}

	if _, err := sender.Send(ctx, key.Destination, code, s.ttl); err != nil {
		// El registro persistido queda, pero el cliente nunca vio el código:
		// se libera el cooldown para que pueda reintentar ya.
		_ = s.cache.Delete(ctx, coolKey)
		log.Error("passcode delivery failed", logger.Err(err))
		return err
	}

	log.Info("passcode issued")
	return nil
}

// Verify compara el código contra el registro más reciente de la key y, si
// coincide, lo consume atómicamente. Un mismatch no muta nada: el código
// vigente sigue siendo válido.
func (s *Service) Verify(ctx context.Context, key repository.PasscodeKey, code string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("Passcode.Verify"),
		logger.Channel(string(key.Channel)),
		logger.Destination(key.Destination),
	)

	p, err := s.repo.FindLatest(ctx, key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Info("verify rejected: no passcode for key")
		return ErrNoPasscode
	case err != nil:
		return err
	}

	// Comparación en tiempo constante sobre el hash. Ante un registro muerto
	// el estado tiene precedencia sobre el mismatch: un passcode vencido
	// responde expired sin importar qué código llegó.
	got := HashCode(code)
	if subtle.ConstantTimeCompare([]byte(got), []byte(p.CodeHash)) != 1 {
		switch {
		case p.ConsumedAt != nil:
			log.Info("verify rejected: code already consumed")
			return ErrCodeConsumed
		case !s.now().Before(p.ExpiresAt):
			log.Info("verify rejected: code expired")
			return ErrCodeExpired
		}
		log.Info("verify rejected: code mismatch")
		return ErrCodeMismatch
	}

	err = s.repo.Consume(ctx, p.ID)
	switch {
	case errors.Is(err, repository.ErrCodeConsumed):
		log.Info("verify rejected: code already consumed")
		return ErrCodeConsumed
	case errors.Is(err, repository.ErrCodeExpired):
		log.Info("verify rejected: code expired")
		return ErrCodeExpired
	case errors.Is(err, repository.ErrNotFound):
		// El registro desapareció entre FindLatest y Consume (cleanup).
		return ErrNoPasscode
	case err != nil:
		return err
	}

	log.Info("passcode verified")
	return nil
}

// HashCode devuelve el sha256 hex del código, la forma en que se guarda.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// generateCode produce un código numérico de codeLength dígitos con
// crypto/rand, con ceros a la izquierda incluidos.
func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLength, n), nil
}
