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

type identityRepo struct {
	pool *pgxpool.Pool
}

func (r *identityRepo) GetByExternalID(ctx context.Context, target, externalUserID string) (*repository.SocialIdentity, error) {
	var si repository.SocialIdentity
	err := r.pool.QueryRow(ctx, `
		SELECT id, account_id, target, external_user_id, raw_profile, created_at
		FROM social_identity
		WHERE target = $1 AND external_user_id = $2`,
		target, externalUserID,
	).Scan(&si.ID, &si.AccountID, &si.Target, &si.ExternalUserID, &si.RawProfile, &si.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &si, nil
}

func (r *identityRepo) ListByAccount(ctx context.Context, accountID string) ([]repository.SocialIdentity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, target, external_user_id, raw_profile, created_at
		FROM social_identity
		WHERE account_id = $1
		ORDER BY created_at`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.SocialIdentity
	for rows.Next() {
		var si repository.SocialIdentity
		if err := rows.Scan(&si.ID, &si.AccountID, &si.Target, &si.ExternalUserID, &si.RawProfile, &si.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

func (r *identityRepo) Bind(ctx context.Context, input repository.BindIdentityInput) (*repository.SocialIdentity, error) {
	si := &repository.SocialIdentity{
		ID:             uuid.NewString(),
		AccountID:      input.AccountID,
		Target:         input.Target,
		ExternalUserID: input.ExternalUserID,
		RawProfile:     input.RawProfile,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO social_identity (id, account_id, target, external_user_id, raw_profile, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		si.ID, si.AccountID, si.Target, si.ExternalUserID, si.RawProfile, si.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return si, nil
}
