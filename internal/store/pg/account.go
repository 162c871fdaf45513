package pg

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/passlane/internal/domain/repository"
)

type accountRepo struct {
	pool *pgxpool.Pool
}

const accountColumns = `id, COALESCE(primary_phone, ''), COALESCE(primary_email, ''),
	COALESCE(name, ''), COALESCE(avatar, ''), created_at, last_sign_in_at, suspended_at, suspend_reason`

func scanAccount(row pgx.Row) (*repository.Account, error) {
	var a repository.Account
	err := row.Scan(&a.ID, &a.PrimaryPhone, &a.PrimaryEmail, &a.Name, &a.Avatar,
		&a.CreatedAt, &a.LastSignInAt, &a.SuspendedAt, &a.SuspendReason)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*repository.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE id = $1`, id))
}

func (r *accountRepo) GetByPhone(ctx context.Context, phone string) (*repository.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE primary_phone = $1`, phone))
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*repository.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE LOWER(primary_email) = LOWER($1)`, email))
}

func (r *accountRepo) Create(ctx context.Context, input repository.CreateAccountInput) (*repository.Account, error) {
	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	a := &repository.Account{
		ID:           id,
		PrimaryPhone: input.PrimaryPhone,
		PrimaryEmail: strings.ToLower(input.PrimaryEmail),
		Name:         input.Name,
		Avatar:       input.Avatar,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO account (id, primary_phone, primary_email, name, avatar, created_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)`,
		a.ID, a.PrimaryPhone, a.PrimaryEmail, a.Name, a.Avatar, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// Carrera de registro concurrente: la unique constraint gana.
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return a, nil
}

func (r *accountRepo) TouchLastSignIn(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE account SET last_sign_in_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
