package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abdulkaderkhouja/elpazar/internal/core/port"
)

// UnitOfWork runs repository operations inside one pgx transaction so that
// per-account lockout decisions stay atomic under concurrent logins.
type UnitOfWork struct {
	pool  *pgxpool.Pool
	repos *Repositories
}

// NewUnitOfWork wires a transaction runner over the shared pool.
func NewUnitOfWork(pool *pgxpool.Pool, repos *Repositories) *UnitOfWork {
	return &UnitOfWork{pool: pool, repos: repos}
}

type txScope struct {
	accounts  *AccountRepository
	attempts  *AttemptRepository
	passwords *PasswordHistoryRepository
}

func (s txScope) Accounts() port.AccountRepository          { return s.accounts }
func (s txScope) Attempts() port.AttemptRepository          { return s.attempts }
func (s txScope) Passwords() port.PasswordHistoryRepository { return s.passwords }

// Within executes fn inside a transaction, committing on success and rolling
// back on error or panic.
func (u *UnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, scope port.AccountScope) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// Rollback after a successful commit returns ErrTxClosed and is ignored.
	defer func() { _ = tx.Rollback(ctx) }()

	scope := txScope{
		accounts:  u.repos.Accounts.WithTx(tx),
		attempts:  u.repos.Attempts.WithTx(tx),
		passwords: u.repos.Passwords.WithTx(tx),
	}

	if err := fn(ctx, scope); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

var _ port.UnitOfWork = (*UnitOfWork)(nil)
