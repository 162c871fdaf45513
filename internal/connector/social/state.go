package social

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Errores de validación del state OAuth.
var (
	ErrStateInvalid = errors.New("social: invalid state")
	ErrStateExpired = errors.New("social: state expired")
)

// StateClaims viaja firmado en el parámetro state del flujo OAuth: liga el
// callback a la interacción que lo originó sin guardar estado del lado del
// IdP.
type StateClaims struct {
	InteractionJTI string `json:"ijti"`
	Target         string `json:"target"`
	jwt.RegisteredClaims
}

// StateSigner emite y valida states firmados con HMAC.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewStateSigner crea el signer. El TTL acota la ventana del round-trip al
// IdP; por defecto 10 minutos.
func NewStateSigner(secret []byte, ttl time.Duration) (*StateSigner, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("social: state secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateSigner{secret: secret, ttl: ttl}, nil
}

// TTL devuelve la vigencia de los states emitidos.
func (s *StateSigner) TTL() time.Duration { return s.ttl }

// Sign emite un state para la interacción y el connector dados. Devuelve
// también el nonce (claim jti) para que el emisor lo registre: un state es
// one-shot y el callback debe consumirlo.
func (s *StateSigner) Sign(interactionJTI, target string) (string, string, error) {
	now := time.Now().UTC()
	nonce := uuid.NewString()
	claims := StateClaims{
		InteractionJTI: interactionJTI,
		Target:         target,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        nonce,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return state, nonce, nil
}

// Verify valida firma y vigencia, y devuelve los claims del state.
func (s *StateSigner) Verify(state string) (*StateClaims, error) {
	claims := &StateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrStateExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrStateInvalid, err)
	}
	if claims.InteractionJTI == "" || claims.Target == "" || claims.ID == "" {
		return nil, ErrStateInvalid
	}
	return claims, nil
}
