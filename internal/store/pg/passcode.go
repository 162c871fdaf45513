package pg

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/passlane/internal/domain/repository"
)

type passcodeRepo struct {
	pool *pgxpool.Pool
}

func (r *passcodeRepo) Create(ctx context.Context, input repository.CreatePasscodeInput) (*repository.Passcode, error) {
	// Invalidar lógicamente los passcodes vivos previos de la misma key.
	// No hace falta borrar filas: consumed_at los saca de juego.
	_, err := r.pool.Exec(ctx, `
		UPDATE passcode SET consumed_at = NOW()
		WHERE channel = $1 AND destination = $2 AND interaction_jti = $3 AND flow = $4
		  AND consumed_at IS NULL`,
		input.Key.Channel, input.Key.Destination, input.Key.InteractionJTI, input.Key.Flow)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &repository.Passcode{
		ID:        uuid.NewString(),
		Key:       input.Key,
		CodeHash:  input.CodeHash,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(input.TTLSeconds) * time.Second),
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO passcode (id, channel, destination, interaction_jti, flow, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Key.Channel, p.Key.Destination, p.Key.InteractionJTI, p.Key.Flow,
		p.CodeHash, p.ExpiresAt, p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *passcodeRepo) FindLatest(ctx context.Context, key repository.PasscodeKey) (*repository.Passcode, error) {
	p := &repository.Passcode{Key: key}
	err := r.pool.QueryRow(ctx, `
		SELECT id, code_hash, created_at, expires_at, consumed_at
		FROM passcode
		WHERE channel = $1 AND destination = $2 AND interaction_jti = $3 AND flow = $4
		ORDER BY created_at DESC
		LIMIT 1`,
		key.Channel, key.Destination, key.InteractionJTI, key.Flow,
	).Scan(&p.ID, &p.CodeHash, &p.CreatedAt, &p.ExpiresAt, &p.ConsumedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *passcodeRepo) Consume(ctx context.Context, id string) error {
	// Check-and-mark en un único update condicional. Dos requests
	// concurrentes no pueden pasar los dos: solo uno ve la fila viva.
	var consumed string
	err := r.pool.QueryRow(ctx, `
		UPDATE passcode SET consumed_at = NOW()
		WHERE id = $1 AND consumed_at IS NULL AND expires_at > NOW()
		RETURNING id`,
		id).Scan(&consumed)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	// Distinguir por qué falló: consumido, vencido, o inexistente.
	var expiresAt time.Time
	var consumedAt *time.Time
	err = r.pool.QueryRow(ctx,
		`SELECT expires_at, consumed_at FROM passcode WHERE id = $1`, id,
	).Scan(&expiresAt, &consumedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	if consumedAt != nil {
		return repository.ErrCodeConsumed
	}
	return repository.ErrCodeExpired
}

func (r *passcodeRepo) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM passcode WHERE expires_at < NOW() OR consumed_at IS NOT NULL`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
