package usecase

import (
	"context"
	"time"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
	"github.com/abdulkaderkhouja/elpazar/internal/core/port"
	"github.com/abdulkaderkhouja/elpazar/internal/repository"
)

// fakeAccountRepo keeps a single account in memory, enough for policy tests.
type fakeAccountRepo struct {
	account *domain.Account
	nextID  int64
}

func (f *fakeAccountRepo) Create(_ context.Context, account domain.Account) (int64, error) {
	f.nextID++
	account.ID = f.nextID
	f.account = &account
	return account.ID, nil
}

func (f *fakeAccountRepo) get() (*domain.Account, error) {
	if f.account == nil {
		return nil, repository.ErrNotFound
	}
	copied := *f.account
	return &copied, nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	if f.account == nil || f.account.ID != id {
		return nil, repository.ErrNotFound
	}
	return f.get()
}

func (f *fakeAccountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	if f.account == nil || f.account.Username != username {
		return nil, repository.ErrNotFound
	}
	return f.get()
}

func (f *fakeAccountRepo) GetByUsernameForUpdate(ctx context.Context, username string) (*domain.Account, error) {
	return f.GetByUsername(ctx, username)
}

func (f *fakeAccountRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeAccountRepo) GetByResetTokenHash(_ context.Context, tokenHash string) (*domain.Account, error) {
	if f.account == nil || f.account.ResetTokenHash == nil || *f.account.ResetTokenHash != tokenHash {
		return nil, repository.ErrNotFound
	}
	return f.get()
}

func (f *fakeAccountRepo) List(_ context.Context, _ port.AccountFilter) ([]domain.Account, error) {
	if f.account == nil {
		return nil, nil
	}
	return []domain.Account{*f.account}, nil
}

func (f *fakeAccountRepo) Count(_ context.Context, _ port.AccountFilter) (int, error) {
	if f.account == nil {
		return 0, nil
	}
	return 1, nil
}

func (f *fakeAccountRepo) UpdateLockout(_ context.Context, id int64, lockoutUntil *time.Time) error {
	if f.account == nil || f.account.ID != id {
		return repository.ErrNotFound
	}
	f.account.LockoutUntil = lockoutUntil
	return nil
}

func (f *fakeAccountRepo) RecordLogin(_ context.Context, id int64, at time.Time) error {
	if f.account == nil || f.account.ID != id {
		return repository.ErrNotFound
	}
	f.account.LastLoginAt = &at
	return nil
}

func (f *fakeAccountRepo) UpdatePassword(_ context.Context, id int64, passwordHash string, changedAt time.Time) error {
	if f.account == nil || f.account.ID != id {
		return repository.ErrNotFound
	}
	f.account.PasswordHash = passwordHash
	f.account.PasswordChangedAt = &changedAt
	return nil
}

func (f *fakeAccountRepo) SetResetToken(_ context.Context, id int64, tokenHash string, expiry time.Time) error {
	if f.account == nil || f.account.ID != id {
		return repository.ErrNotFound
	}
	f.account.ResetTokenHash = &tokenHash
	f.account.ResetTokenExpiry = &expiry
	return nil
}

func (f *fakeAccountRepo) ClearResetToken(_ context.Context, id int64) error {
	if f.account == nil || f.account.ID != id {
		return repository.ErrNotFound
	}
	f.account.ResetTokenHash = nil
	f.account.ResetTokenExpiry = nil
	return nil
}

func (f *fakeAccountRepo) UpdateStatus(_ context.Context, id int64, status domain.AccountStatus, isActive bool, actorID int64, actorName string, at time.Time) error {
	if f.account == nil || f.account.ID != id {
		return repository.ErrNotFound
	}
	f.account.Status = status
	f.account.IsActive = isActive
	f.account.UpdatedAt = &at
	f.account.UpdatedByID = &actorID
	f.account.UpdatedBy = &actorName
	return nil
}

func (f *fakeAccountRepo) SoftDelete(_ context.Context, id int64, actorID int64, actorName string, at time.Time) error {
	if f.account == nil || f.account.ID != id {
		return repository.ErrNotFound
	}
	f.account.Status = domain.AccountStatusDeleted
	f.account.IsActive = false
	f.account.DeletedAt = &at
	f.account.DeletedByID = &actorID
	f.account.DeletedBy = &actorName
	return nil
}

// fakeAttemptRepo is an append-only slice of attempts.
type fakeAttemptRepo struct {
	attempts []domain.FailedLoginAttempt
}

func (f *fakeAttemptRepo) Append(_ context.Context, attempt domain.FailedLoginAttempt) error {
	attempt.ID = int64(len(f.attempts) + 1)
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeAttemptRepo) CountFailedSince(_ context.Context, accountID int64, since time.Time) (int, error) {
	count := 0
	for _, attempt := range f.attempts {
		if attempt.AccountID != accountID || attempt.Reason != domain.FailureBadPassword {
			continue
		}
		if attempt.AttemptedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttemptRepo) ListRecent(_ context.Context, accountID int64, limit int) ([]domain.FailedLoginAttempt, error) {
	out := make([]domain.FailedLoginAttempt, 0, limit)
	for i := len(f.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if f.attempts[i].AccountID == accountID {
			out = append(out, f.attempts[i])
		}
	}
	return out, nil
}

// fakePasswordRepo stores archived hashes newest-last.
type fakePasswordRepo struct {
	entries []domain.OldUserPassword
	trimmed int
}

func (f *fakePasswordRepo) Append(_ context.Context, entry domain.OldUserPassword) error {
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakePasswordRepo) ListRecent(_ context.Context, accountID int64, limit int) ([]domain.OldUserPassword, error) {
	out := make([]domain.OldUserPassword, 0, limit)
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.entries[i].AccountID == accountID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func (f *fakePasswordRepo) Trim(_ context.Context, accountID int64, maxEntries int) error {
	kept := make([]domain.OldUserPassword, 0, len(f.entries))
	excess := 0
	for _, entry := range f.entries {
		if entry.AccountID == accountID {
			excess++
		}
	}
	excess -= maxEntries
	for _, entry := range f.entries {
		if entry.AccountID == accountID && excess > 0 {
			excess--
			f.trimmed++
			continue
		}
		kept = append(kept, entry)
	}
	f.entries = kept
	return nil
}

// fakeScope binds the fakes into one unit-of-work scope.
type fakeScope struct {
	accounts  *fakeAccountRepo
	attempts  *fakeAttemptRepo
	passwords *fakePasswordRepo
}

func (s fakeScope) Accounts() port.AccountRepository          { return s.accounts }
func (s fakeScope) Attempts() port.AttemptRepository          { return s.attempts }
func (s fakeScope) Passwords() port.PasswordHistoryRepository { return s.passwords }

// fakeUnitOfWork runs the callback directly without a real transaction.
type fakeUnitOfWork struct {
	scope fakeScope
}

func (u fakeUnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, scope port.AccountScope) error) error {
	return fn(ctx, u.scope)
}

// fakePublisher records published events for assertions.
type fakePublisher struct {
	created         []domain.AccountCreatedEvent
	locked          []domain.AccountLockedEvent
	logins          []domain.LoginSucceededEvent
	passwordChanged []domain.PasswordChangedEvent
	resetRequested  []domain.PasswordResetRequestedEvent
}

func (p *fakePublisher) PublishAccountCreated(_ context.Context, event domain.AccountCreatedEvent) error {
	p.created = append(p.created, event)
	return nil
}

func (p *fakePublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	p.locked = append(p.locked, event)
	return nil
}

func (p *fakePublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	p.logins = append(p.logins, event)
	return nil
}

func (p *fakePublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.passwordChanged = append(p.passwordChanged, event)
	return nil
}

func (p *fakePublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.resetRequested = append(p.resetRequested, event)
	return nil
}

var (
	_ port.AccountRepository         = (*fakeAccountRepo)(nil)
	_ port.AttemptRepository         = (*fakeAttemptRepo)(nil)
	_ port.PasswordHistoryRepository = (*fakePasswordRepo)(nil)
	_ port.UnitOfWork                = fakeUnitOfWork{}
	_ port.EventPublisher            = (*fakePublisher)(nil)
)
