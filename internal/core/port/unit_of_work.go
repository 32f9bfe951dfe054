package port

import "context"

// AccountScope groups repositories bound to one transaction.
type AccountScope interface {
	Accounts() AccountRepository
	Attempts() AttemptRepository
	Passwords() PasswordHistoryRepository
}

// UnitOfWork executes fn within a single database transaction. The
// login and password-change decisions run here so that the
// read-modify-write of lockout state stays atomic per account.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, scope AccountScope) error) error
}
