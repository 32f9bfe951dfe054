package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
	"github.com/abdulkaderkhouja/elpazar/internal/core/port"
	"github.com/abdulkaderkhouja/elpazar/internal/infra/security"
	"github.com/abdulkaderkhouja/elpazar/internal/infra/telemetry"
	"github.com/abdulkaderkhouja/elpazar/internal/repository"
)

var (
	// ErrAccountNotFound indicates the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountDeleted indicates the account was soft deleted and cannot transition further.
	ErrAccountDeleted = errors.New("account is deleted")
	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
)

// Actor identifies the administrator performing a lifecycle operation.
type Actor struct {
	ID   int64
	Name string
}

// CreateAccountInput carries the fields needed to provision an account.
type CreateAccountInput struct {
	UserID   int64
	Username string
	Password string
	Actor    Actor
}

// AccountService manages the administrative account lifecycle.
type AccountService struct {
	accounts  port.AccountRepository
	attempts  port.AttemptRepository
	policy    *security.PasswordPolicy
	publisher port.EventPublisher
	metrics   *telemetry.Provider
	log       *zap.Logger

	now  func() time.Time
	hash func(password string) (string, error)
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(
	accounts port.AccountRepository,
	attempts port.AttemptRepository,
	policy *security.PasswordPolicy,
	publisher port.EventPublisher,
	metrics *telemetry.Provider,
	log *zap.Logger,
) *AccountService {
	return &AccountService{
		accounts:  accounts,
		attempts:  attempts,
		policy:    policy,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
		hash:      security.HashPassword,
	}
}

// Create provisions a new active account.
func (s *AccountService) Create(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if input.Username == "" {
		return nil, ErrUsernameRequired
	}
	if input.Password == "" {
		return nil, ErrPasswordRequired
	}

	if _, err := s.accounts.GetByUsername(ctx, input.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	if err := s.policy.Validate(input.Password, domain.PasswordContext{Username: input.Username}); err != nil {
		return nil, err
	}

	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.Account{
		UserID:       input.UserID,
		Username:     input.Username,
		PasswordHash: hash,
		Status:       domain.AccountStatusActive,
		IsActive:     true,
		CreatedAt:    now,
		CreatedByID:  input.Actor.ID,
		CreatedBy:    input.Actor.Name,
	}

	id, err := s.accounts.Create(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	account.ID = id

	if s.publisher != nil {
		event := domain.AccountCreatedEvent{
			EventID:   uuid.NewString(),
			AccountID: id,
			UserID:    input.UserID,
			Username:  input.Username,
			Status:    string(account.Status),
			CreatedAt: now,
			CreatedBy: input.Actor.Name,
		}
		if err := s.publisher.PublishAccountCreated(ctx, event); err != nil && s.log != nil {
			s.log.Warn("publish account created event failed", zap.Error(err))
		}
	}

	account.PasswordHash = ""
	return &account, nil
}

// Get returns a single account without its password hash.
func (s *AccountService) Get(ctx context.Context, id int64) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	account.PasswordHash = ""
	return account, nil
}

// List returns accounts matching the filter plus the total match count.
func (s *AccountService) List(ctx context.Context, filter port.AccountFilter) ([]domain.Account, int, error) {
	accounts, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}

	total, err := s.accounts.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	for i := range accounts {
		accounts[i].PasswordHash = ""
	}

	return accounts, total, nil
}

// Suspend disables authentication for the account.
func (s *AccountService) Suspend(ctx context.Context, id int64, actor Actor) error {
	return s.transition(ctx, id, domain.AccountStatusSuspended, false, actor)
}

// Reactivate restores a suspended or inactive account.
func (s *AccountService) Reactivate(ctx context.Context, id int64, actor Actor) error {
	return s.transition(ctx, id, domain.AccountStatusActive, true, actor)
}

func (s *AccountService) transition(ctx context.Context, id int64, status domain.AccountStatus, isActive bool, actor Actor) error {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("get account: %w", err)
	}

	// Deleted accounts are terminal.
	if account.Status == domain.AccountStatusDeleted {
		return ErrAccountDeleted
	}

	if err := s.accounts.UpdateStatus(ctx, id, status, isActive, actor.ID, actor.Name, s.now().UTC()); err != nil {
		return fmt.Errorf("update account status: %w", err)
	}

	if s.log != nil {
		s.log.Info("account status changed",
			zap.Int64("account_id", id),
			zap.String("status", string(status)),
			zap.Int64("actor_id", actor.ID),
		)
	}
	return nil
}

// SoftDelete marks the account deleted while retaining its audit history.
func (s *AccountService) SoftDelete(ctx context.Context, id int64, actor Actor) error {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("get account: %w", err)
	}
	if account.Status == domain.AccountStatusDeleted {
		return ErrAccountDeleted
	}

	if err := s.accounts.SoftDelete(ctx, id, actor.ID, actor.Name, s.now().UTC()); err != nil {
		return fmt.Errorf("soft delete account: %w", err)
	}
	return nil
}

// ClearLockout removes an active lockout ahead of its expiry.
func (s *AccountService) ClearLockout(ctx context.Context, id int64, actor Actor) error {
	if err := s.accounts.UpdateLockout(ctx, id, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("clear lockout: %w", err)
	}

	if s.log != nil {
		s.log.Info("lockout cleared by administrator",
			zap.Int64("account_id", id),
			zap.Int64("actor_id", actor.ID),
		)
	}
	return nil
}

// RecentAttempts exposes the audit trail for one account.
func (s *AccountService) RecentAttempts(ctx context.Context, id int64, limit int) ([]domain.FailedLoginAttempt, error) {
	list, err := s.attempts.ListRecent(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("list failed attempts: %w", err)
	}
	return list, nil
}
