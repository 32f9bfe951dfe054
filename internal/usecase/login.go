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
	"github.com/abdulkaderkhouja/elpazar/internal/infra/config"
	"github.com/abdulkaderkhouja/elpazar/internal/infra/logger"
	"github.com/abdulkaderkhouja/elpazar/internal/infra/security"
	"github.com/abdulkaderkhouja/elpazar/internal/infra/telemetry"
	"github.com/abdulkaderkhouja/elpazar/internal/repository"
)

var (
	// ErrUsernameRequired indicates a blank login identifier.
	ErrUsernameRequired = errors.New("username is required")
	// ErrPasswordRequired indicates a blank password.
	ErrPasswordRequired = errors.New("password is required")
)

// LoginInput carries one credential presentation plus request metadata.
type LoginInput struct {
	Username  string
	Password  string
	IPAddress *string
	UserAgent *string
}

// LoginResult reports the outcome of one login evaluation. Reason is empty
// when Accepted is true; it is audit-grade detail and must never be exposed
// verbatim to callers outside the service.
type LoginResult struct {
	Accepted          bool
	AccountID         int64
	Reason            domain.FailureReason
	RemainingAttempts int
	RetryAfter        time.Duration
	LockedNow         bool
}

// LoginService evaluates login attempts against the account lockout policy.
//
// All lockout decisions for one account happen under a row lock inside a
// single transaction, so concurrent presentations of the same username
// serialize and each sees the attempts recorded by the previous one.
type LoginService struct {
	cfg       config.LockoutSettings
	accounts  port.AccountRepository
	uow       port.UnitOfWork
	publisher port.EventPublisher
	metrics   *telemetry.Provider
	log       *zap.Logger

	now    func() time.Time
	verify func(password, encoded string) (bool, error)
}

// NewLoginService constructs a LoginService instance.
func NewLoginService(
	cfg config.LockoutSettings,
	accounts port.AccountRepository,
	uow port.UnitOfWork,
	publisher port.EventPublisher,
	metrics *telemetry.Provider,
	log *zap.Logger,
) *LoginService {
	return &LoginService{
		cfg:       cfg,
		accounts:  accounts,
		uow:       uow,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
		verify:    security.VerifyPassword,
	}
}

// AttemptLogin runs one credential presentation through the policy.
//
// Unknown usernames are rejected without writing any audit rows, so the
// attempt log cannot be used to probe which usernames exist. A storage
// failure is returned as an error; the caller must treat it as a rejection
// without revealing whether the credentials were valid.
func (s *LoginService) AttemptLogin(ctx context.Context, input LoginInput) (LoginResult, error) {
	if input.Username == "" {
		return LoginResult{}, ErrUsernameRequired
	}
	if input.Password == "" {
		return LoginResult{}, ErrPasswordRequired
	}

	if _, err := s.accounts.GetByUsername(ctx, input.Username); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.observe("unknown_account")
			return LoginResult{Reason: domain.FailureUnknownAccount}, nil
		}
		return LoginResult{}, fmt.Errorf("lookup account: %w", err)
	}

	var (
		result      LoginResult
		lockedEvent *domain.AccountLockedEvent
		loginEvent  *domain.LoginSucceededEvent
	)

	err := s.uow.Within(ctx, func(ctx context.Context, scope port.AccountScope) error {
		now := s.now().UTC()

		account, err := scope.Accounts().GetByUsernameForUpdate(ctx, input.Username)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				result = LoginResult{Reason: domain.FailureUnknownAccount}
				return nil
			}
			return fmt.Errorf("lock account row: %w", err)
		}

		if account.Disabled() {
			if err := s.recordFailure(ctx, scope, account.ID, input, domain.FailureAccountDisabled, now); err != nil {
				return err
			}
			result = LoginResult{AccountID: account.ID, Reason: domain.FailureAccountDisabled}
			return nil
		}

		// An active lockout short-circuits before any hash comparison.
		if account.LockedAt(now) {
			if err := s.recordFailure(ctx, scope, account.ID, input, domain.FailureAccountLocked, now); err != nil {
				return err
			}
			result = LoginResult{
				AccountID:  account.ID,
				Reason:     domain.FailureAccountLocked,
				RetryAfter: account.LockoutUntil.Sub(now),
			}
			return nil
		}

		ok, err := s.verify(input.Password, account.PasswordHash)
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}

		if !ok {
			if err := s.recordFailure(ctx, scope, account.ID, input, domain.FailureBadPassword, now); err != nil {
				return err
			}

			count, err := scope.Attempts().CountFailedSince(ctx, account.ID, s.countingFloor(*account, now))
			if err != nil {
				return fmt.Errorf("count failed attempts: %w", err)
			}

			if count >= s.cfg.Threshold {
				until := now.Add(s.cfg.Duration)
				if err := scope.Accounts().UpdateLockout(ctx, account.ID, &until); err != nil {
					return fmt.Errorf("set lockout: %w", err)
				}

				lockedEvent = &domain.AccountLockedEvent{
					EventID:        uuid.NewString(),
					AccountID:      account.ID,
					Username:       account.Username,
					LockedAt:       now,
					LockoutUntil:   until,
					FailedAttempts: count,
					IPAddress:      input.IPAddress,
				}
				result = LoginResult{
					AccountID:  account.ID,
					Reason:     domain.FailureAccountLocked,
					RetryAfter: s.cfg.Duration,
					LockedNow:  true,
				}
				return nil
			}

			result = LoginResult{
				AccountID:         account.ID,
				Reason:            domain.FailureBadPassword,
				RemainingAttempts: s.cfg.Threshold - count,
			}
			return nil
		}

		// Correct password after an expired lockout clears the stale window.
		if account.LockoutUntil != nil {
			if err := scope.Accounts().UpdateLockout(ctx, account.ID, nil); err != nil {
				return fmt.Errorf("clear lockout: %w", err)
			}
		}

		if err := scope.Accounts().RecordLogin(ctx, account.ID, now); err != nil {
			return fmt.Errorf("record login: %w", err)
		}

		loginEvent = &domain.LoginSucceededEvent{
			EventID:   uuid.NewString(),
			AccountID: account.ID,
			Username:  account.Username,
			LoginAt:   now,
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
		}
		result = LoginResult{Accepted: true, AccountID: account.ID}
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}

	s.publishOutcome(ctx, input, result, lockedEvent, loginEvent)

	return result, nil
}

func (s *LoginService) recordFailure(ctx context.Context, scope port.AccountScope, accountID int64, input LoginInput, reason domain.FailureReason, at time.Time) error {
	attempt := domain.FailedLoginAttempt{
		AccountID:   accountID,
		IPAddress:   input.IPAddress,
		UserAgent:   input.UserAgent,
		Reason:      reason,
		AttemptedAt: at,
	}
	if err := scope.Attempts().Append(ctx, attempt); err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	return nil
}

// countingFloor bounds the attempt-counting window. Attempts that predate
// the most recent successful login never count toward a lockout.
func (s *LoginService) countingFloor(account domain.Account, now time.Time) time.Time {
	floor := now.Add(-s.cfg.Window)
	if account.LastLoginAt != nil && account.LastLoginAt.After(floor) {
		floor = *account.LastLoginAt
	}
	return floor
}

func (s *LoginService) publishOutcome(ctx context.Context, input LoginInput, result LoginResult, lockedEvent *domain.AccountLockedEvent, loginEvent *domain.LoginSucceededEvent) {
	outcome := "accepted"
	if !result.Accepted {
		outcome = string(result.Reason)
	}
	s.observe(outcome)

	if s.log != nil {
		s.log.Info("login attempt evaluated",
			zap.String("username", logger.MaskUsername(input.Username)),
			zap.String("outcome", outcome),
			zap.Int64("account_id", result.AccountID),
		)
	}

	if s.publisher == nil {
		return
	}

	if lockedEvent != nil {
		if s.metrics != nil {
			s.metrics.ObserveLockout()
		}
		if err := s.publisher.PublishAccountLocked(ctx, *lockedEvent); err != nil && s.log != nil {
			s.log.Warn("publish account locked event failed", zap.Error(err))
		}
	}

	if loginEvent != nil {
		if err := s.publisher.PublishLoginSucceeded(ctx, *loginEvent); err != nil && s.log != nil {
			s.log.Warn("publish login succeeded event failed", zap.Error(err))
		}
	}
}

func (s *LoginService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveLogin(outcome)
	}
}
