// Package memory implementa el DataAccess en memoria.
// Se usa en desarrollo y tests; replica la atomicidad del adapter de
// Postgres (consume condicional, unique constraints) bajo un mutex.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/passlane/internal/domain/repository"
	"github.com/dropDatabas3/passlane/internal/store"
)

// Store implementa store.DataAccess en memoria.
type Store struct {
	mu         sync.Mutex
	passcodes  []*repository.Passcode
	accounts   map[string]*repository.Account
	identities []*repository.SocialIdentity

	// now permite congelar el reloj en tests.
	now func() time.Time
}

// New crea un Store vacío.
func New() *Store {
	return &Store{
		accounts: make(map[string]*repository.Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock reemplaza la fuente de tiempo (solo tests).
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) Passcodes() repository.PasscodeRepository  { return (*passcodeRepo)(s) }
func (s *Store) Accounts() repository.AccountRepository    { return (*accountRepo)(s) }
func (s *Store) Identities() repository.IdentityRepository { return (*identityRepo)(s) }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

var _ store.DataAccess = (*Store)(nil)

// ─── Passcodes ───

type passcodeRepo Store

func (r *passcodeRepo) Create(_ context.Context, input repository.CreatePasscodeInput) (*repository.Passcode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	// Supersede: invalidar los vivos previos de la misma key.
	for _, p := range r.passcodes {
		if p.Key == input.Key && p.ConsumedAt == nil {
			t := now
			p.ConsumedAt = &t
		}
	}

	p := &repository.Passcode{
		ID:        uuid.NewString(),
		Key:       input.Key,
		CodeHash:  input.CodeHash,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(input.TTLSeconds) * time.Second),
	}
	r.passcodes = append(r.passcodes, p)
	return clonePasscode(p), nil
}

func (r *passcodeRepo) FindLatest(_ context.Context, key repository.PasscodeKey) (*repository.Passcode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *repository.Passcode
	for _, p := range r.passcodes {
		if p.Key != key {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return clonePasscode(latest), nil
}

func (r *passcodeRepo) Consume(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, p := range r.passcodes {
		if p.ID != id {
			continue
		}
		if p.ConsumedAt != nil {
			return repository.ErrCodeConsumed
		}
		if !now.Before(p.ExpiresAt) {
			return repository.ErrCodeExpired
		}
		t := now
		p.ConsumedAt = &t
		return nil
	}
	return repository.ErrNotFound
}

func (r *passcodeRepo) DeleteExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	kept := r.passcodes[:0]
	removed := 0
	for _, p := range r.passcodes {
		if p.ConsumedAt != nil || !now.Before(p.ExpiresAt) {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	r.passcodes = kept
	return removed, nil
}

func clonePasscode(p *repository.Passcode) *repository.Passcode {
	cp := *p
	if p.ConsumedAt != nil {
		t := *p.ConsumedAt
		cp.ConsumedAt = &t
	}
	return &cp
}

// ─── Accounts ───

type accountRepo Store

func (r *accountRepo) GetByID(_ context.Context, id string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		return cloneAccount(a), nil
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) GetByPhone(_ context.Context, phone string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.PrimaryPhone != "" && a.PrimaryPhone == phone {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.PrimaryEmail != "" && strings.EqualFold(a.PrimaryEmail, email) {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) Create(_ context.Context, input repository.CreateAccountInput) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Unique constraints: mismo contrato que el adapter pg.
	for _, a := range r.accounts {
		if input.PrimaryPhone != "" && a.PrimaryPhone == input.PrimaryPhone {
			return nil, repository.ErrConflict
		}
		if input.PrimaryEmail != "" && strings.EqualFold(a.PrimaryEmail, input.PrimaryEmail) {
			return nil, repository.ErrConflict
		}
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := r.accounts[id]; exists {
		return nil, repository.ErrConflict
	}

	a := &repository.Account{
		ID:           id,
		PrimaryPhone: input.PrimaryPhone,
		PrimaryEmail: strings.ToLower(input.PrimaryEmail),
		Name:         input.Name,
		Avatar:       input.Avatar,
		CreatedAt:    r.now(),
	}
	r.accounts[id] = a
	return cloneAccount(a), nil
}

func (r *accountRepo) TouchLastSignIn(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	t := r.now()
	a.LastSignInAt = &t
	return nil
}

func cloneAccount(a *repository.Account) *repository.Account {
	cp := *a
	return &cp
}

// ─── Social identities ───

type identityRepo Store

func (r *identityRepo) GetByExternalID(_ context.Context, target, externalUserID string) (*repository.SocialIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, si := range r.identities {
		if si.Target == target && si.ExternalUserID == externalUserID {
			cp := *si
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *identityRepo) ListByAccount(_ context.Context, accountID string) ([]repository.SocialIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.SocialIdentity
	for _, si := range r.identities {
		if si.AccountID == accountID {
			out = append(out, *si)
		}
	}
	return out, nil
}

func (r *identityRepo) Bind(_ context.Context, input repository.BindIdentityInput) (*repository.SocialIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, si := range r.identities {
		if si.Target == input.Target && si.ExternalUserID == input.ExternalUserID {
			return nil, repository.ErrConflict
		}
	}

	si := &repository.SocialIdentity{
		ID:             uuid.NewString(),
		AccountID:      input.AccountID,
		Target:         input.Target,
		ExternalUserID: input.ExternalUserID,
		RawProfile:     input.RawProfile,
		CreatedAt:      r.now(),
	}
	r.identities = append(r.identities, si)
	cp := *si
	return &cp, nil
}
