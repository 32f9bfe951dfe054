package port

import (
	"context"
	"time"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
)

// AccountFilter narrows List and Count queries.
type AccountFilter struct {
	Status   domain.AccountStatus
	IsActive *bool
	Limit    int
	Offset   int
}

// AccountRepository exposes persistence behavior for accounts.
//
// GetByUsernameForUpdate must only be called inside a unit of work; it
// acquires a row-level lock held until the transaction ends.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByUsernameForUpdate(ctx context.Context, username string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Account, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error)
	List(ctx context.Context, filter AccountFilter) ([]domain.Account, error)
	Count(ctx context.Context, filter AccountFilter) (int, error)

	UpdateLockout(ctx context.Context, id int64, lockoutUntil *time.Time) error
	RecordLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error
	SetResetToken(ctx context.Context, id int64, tokenHash string, expiry time.Time) error
	ClearResetToken(ctx context.Context, id int64) error

	UpdateStatus(ctx context.Context, id int64, status domain.AccountStatus, isActive bool, actorID int64, actorName string, at time.Time) error
	SoftDelete(ctx context.Context, id int64, actorID int64, actorName string, at time.Time) error
}

// AttemptRepository persists the append-only failed login audit log.
type AttemptRepository interface {
	Append(ctx context.Context, attempt domain.FailedLoginAttempt) error
	// CountFailedSince counts bad-password attempts recorded strictly
	// after the given instant. Lockout and disabled-account rejections
	// are excluded so they never push an account toward a lockout.
	CountFailedSince(ctx context.Context, accountID int64, since time.Time) (int, error)
	ListRecent(ctx context.Context, accountID int64, limit int) ([]domain.FailedLoginAttempt, error)
}

// PasswordHistoryRepository persists superseded password hashes.
type PasswordHistoryRepository interface {
	Append(ctx context.Context, entry domain.OldUserPassword) error
	ListRecent(ctx context.Context, accountID int64, limit int) ([]domain.OldUserPassword, error)
	Trim(ctx context.Context, accountID int64, maxEntries int) error
}
