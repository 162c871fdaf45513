// Package store define el acceso a datos del servicio.
// Los adapters concretos viven en subpaquetes (pg, memory).
package store

import (
	"context"

	"github.com/dropDatabas3/passlane/internal/domain/repository"
)

// DataAccess agrupa los repositorios del servicio detrás de una fachada.
// Se construye una vez en el wiring y se pasa explícitamente: nunca estado
// ambiente a nivel módulo.
type DataAccess interface {
	Passcodes() repository.PasscodeRepository
	Accounts() repository.AccountRepository
	Identities() repository.IdentityRepository

	// Ping verifica conectividad con el backing store.
	Ping(ctx context.Context) error

	// Close libera recursos (pools, conexiones).
	Close()
}
