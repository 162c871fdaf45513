// Package pg implementa el DataAccess sobre PostgreSQL usando pgx.
package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/passlane/internal/domain/repository"
	"github.com/dropDatabas3/passlane/internal/store"
)

// Adapter implementa store.DataAccess sobre un pgxpool.
type Adapter struct {
	pool       *pgxpool.Pool
	passcodes  *passcodeRepo
	accounts   *accountRepo
	identities *identityRepo
}

// Open crea el pool y el adapter. El caller es dueño del lifecycle (Close).
func Open(ctx context.Context, databaseURL string, maxConns int32) (*Adapter, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(pool), nil
}

// New crea un Adapter sobre un pool existente.
func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		pool:       pool,
		passcodes:  &passcodeRepo{pool: pool},
		accounts:   &accountRepo{pool: pool},
		identities: &identityRepo{pool: pool},
	}
}

func (a *Adapter) Passcodes() repository.PasscodeRepository  { return a.passcodes }
func (a *Adapter) Accounts() repository.AccountRepository    { return a.accounts }
func (a *Adapter) Identities() repository.IdentityRepository { return a.identities }
func (a *Adapter) Ping(ctx context.Context) error            { return a.pool.Ping(ctx) }
func (a *Adapter) Close()                                    { a.pool.Close() }

// Pool expone el pool para métricas y el migrator.
func (a *Adapter) Pool() *pgxpool.Pool { return a.pool }

// Exec implementa store.SQLExecutor.
func (a *Adapter) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := a.pool.Exec(ctx, sql, args...)
	return err
}

// QueryRowScan implementa store.SQLExecutor.
func (a *Adapter) QueryRowScan(ctx context.Context, sql string, dest ...any) error {
	return a.pool.QueryRow(ctx, sql).Scan(dest...)
}

var _ store.DataAccess = (*Adapter)(nil)
var _ store.SQLExecutor = (*Adapter)(nil)

// isUniqueViolation mapea el código 23505 de Postgres.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
