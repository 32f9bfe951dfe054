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
	// ErrInvalidCredentials indicates the current password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled indicates the account cannot authenticate or change its password.
	ErrAccountDisabled = errors.New("account is not active")
	// ErrPasswordReused indicates the new password matches the current one or a recent predecessor.
	ErrPasswordReused = errors.New("password was used recently")
	// ErrInvalidResetToken indicates an unknown or expired password reset token.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// PasswordService manages password changes and the reset token flow.
type PasswordService struct {
	cfg       config.PasswordSettings
	accounts  port.AccountRepository
	uow       port.UnitOfWork
	policy    *security.PasswordPolicy
	publisher port.EventPublisher
	metrics   *telemetry.Provider
	log       *zap.Logger

	now    func() time.Time
	verify func(password, encoded string) (bool, error)
	hash   func(password string) (string, error)
}

// NewPasswordService constructs a PasswordService instance.
func NewPasswordService(
	cfg config.PasswordSettings,
	accounts port.AccountRepository,
	uow port.UnitOfWork,
	policy *security.PasswordPolicy,
	publisher port.EventPublisher,
	metrics *telemetry.Provider,
	log *zap.Logger,
) *PasswordService {
	return &PasswordService{
		cfg:       cfg,
		accounts:  accounts,
		uow:       uow,
		policy:    policy,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
		verify:    security.VerifyPassword,
		hash:      security.HashPassword,
	}
}

// ChangePassword replaces the password after verifying the current one.
//
// The superseded hash is archived with the timestamp it originally became
// active, the reuse window is enforced against the current hash plus the
// archive, and any lockout is cleared since possession of the current
// password proves the owner is back in control.
func (s *PasswordService) ChangePassword(ctx context.Context, accountID int64, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return ErrPasswordRequired
	}

	var changedEvent *domain.PasswordChangedEvent

	err := s.uow.Within(ctx, func(ctx context.Context, scope port.AccountScope) error {
		now := s.now().UTC()

		account, err := scope.Accounts().GetByIDForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return fmt.Errorf("lock account row: %w", err)
		}

		if account.Disabled() {
			return ErrAccountDisabled
		}

		ok, err := s.verify(currentPassword, account.PasswordHash)
		if err != nil {
			return fmt.Errorf("verify current password: %w", err)
		}
		if !ok {
			return ErrInvalidCredentials
		}

		if err := s.rotatePassword(ctx, scope, account, newPassword, now); err != nil {
			return err
		}

		changedEvent = &domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			AccountID: account.ID,
			ChangedAt: now,
			ChangedBy: account.Username,
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishChanged(ctx, changedEvent)
	return nil
}

// RequestReset issues a reset token for the given username.
//
// The raw token is returned for out-of-band delivery; only its hash is
// persisted. Unknown and disabled accounts return an empty token with no
// error, so the caller's response cannot reveal whether the username exists.
func (s *PasswordService) RequestReset(ctx context.Context, username string, ipAddress *string) (string, error) {
	if username == "" {
		return "", ErrUsernameRequired
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("lookup account: %w", err)
	}
	if account.Disabled() {
		return "", nil
	}

	size := s.cfg.ResetTokenSize
	if size <= 0 {
		size = 32
	}
	token, err := security.GenerateSecureToken(size)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now().UTC()
	expiry := now.Add(s.cfg.ResetTokenTTL)
	if err := s.accounts.SetResetToken(ctx, account.ID, security.HashToken(token), expiry); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ObservePasswordReset()
	}
	if s.log != nil {
		s.log.Info("password reset requested",
			zap.String("username", logger.MaskUsername(username)),
			zap.Time("expires_at", expiry),
		)
	}

	if s.publisher != nil {
		event := domain.PasswordResetRequestedEvent{
			EventID:     uuid.NewString(),
			AccountID:   account.ID,
			Username:    account.Username,
			RequestedAt: now,
			ExpiresAt:   expiry,
			IPAddress:   ipAddress,
		}
		if err := s.publisher.PublishPasswordResetRequested(ctx, event); err != nil && s.log != nil {
			s.log.Warn("publish reset requested event failed", zap.Error(err))
		}
	}

	return token, nil
}

// ConfirmReset sets a new password for the account holding the token.
// The token is single use; it is cleared whether expired or consumed.
func (s *PasswordService) ConfirmReset(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return ErrInvalidResetToken
	}

	tokenHash := security.HashToken(token)

	account, err := s.accounts.GetByResetTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	var changedEvent *domain.PasswordChangedEvent

	err = s.uow.Within(ctx, func(ctx context.Context, scope port.AccountScope) error {
		now := s.now().UTC()

		account, err := scope.Accounts().GetByIDForUpdate(ctx, account.ID)
		if err != nil {
			return fmt.Errorf("lock account row: %w", err)
		}

		if account.ResetTokenHash == nil || !security.TokensEqual(*account.ResetTokenHash, tokenHash) {
			return ErrInvalidResetToken
		}
		if account.ResetTokenExpiry == nil || !account.ResetTokenExpiry.After(now) {
			if err := scope.Accounts().ClearResetToken(ctx, account.ID); err != nil {
				return fmt.Errorf("clear expired reset token: %w", err)
			}
			return ErrInvalidResetToken
		}
		if account.Disabled() {
			return ErrAccountDisabled
		}

		if err := s.rotatePassword(ctx, scope, account, newPassword, now); err != nil {
			return err
		}

		if err := scope.Accounts().ClearResetToken(ctx, account.ID); err != nil {
			return fmt.Errorf("clear reset token: %w", err)
		}

		changedEvent = &domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			AccountID: account.ID,
			ChangedAt: now,
			ChangedBy: account.Username,
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishChanged(ctx, changedEvent)
	return nil
}

// rotatePassword holds the shared tail of both change flows: policy check,
// reuse check, archive, swap, lockout clear, history trim.
func (s *PasswordService) rotatePassword(ctx context.Context, scope port.AccountScope, account *domain.Account, newPassword string, now time.Time) error {
	if err := s.policy.Validate(newPassword, domain.PasswordContext{Username: account.Username}); err != nil {
		return err
	}

	reused, err := s.isReused(ctx, scope, account, newPassword)
	if err != nil {
		return err
	}
	if reused {
		return ErrPasswordReused
	}

	// The archived entry keeps the moment the old hash became active, not
	// the moment it was replaced.
	setAt := account.CreatedAt
	if account.PasswordChangedAt != nil {
		setAt = *account.PasswordChangedAt
	}
	archived := domain.OldUserPassword{
		AccountID:     account.ID,
		PasswordHash:  account.PasswordHash,
		PasswordSetAt: setAt,
	}
	if err := scope.Passwords().Append(ctx, archived); err != nil {
		return fmt.Errorf("archive password: %w", err)
	}

	newHash, err := s.hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}
	if err := scope.Accounts().UpdatePassword(ctx, account.ID, newHash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if account.LockoutUntil != nil {
		if err := scope.Accounts().UpdateLockout(ctx, account.ID, nil); err != nil {
			return fmt.Errorf("clear lockout: %w", err)
		}
	}

	if s.cfg.ReuseWindow > 0 {
		if err := scope.Passwords().Trim(ctx, account.ID, s.cfg.ReuseWindow); err != nil {
			return fmt.Errorf("trim password history: %w", err)
		}
	}

	return nil
}

// isReused checks the candidate against the current hash and the retained history.
func (s *PasswordService) isReused(ctx context.Context, scope port.AccountScope, account *domain.Account, candidate string) (bool, error) {
	ok, err := s.verify(candidate, account.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("compare against current password: %w", err)
	}
	if ok {
		return true, nil
	}

	if s.cfg.ReuseWindow <= 0 {
		return false, nil
	}

	history, err := scope.Passwords().ListRecent(ctx, account.ID, s.cfg.ReuseWindow)
	if err != nil {
		return false, fmt.Errorf("list password history: %w", err)
	}

	for _, entry := range history {
		ok, err := s.verify(candidate, entry.PasswordHash)
		if err != nil {
			return false, fmt.Errorf("compare against archived password: %w", err)
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

func (s *PasswordService) publishChanged(ctx context.Context, event *domain.PasswordChangedEvent) {
	if event == nil || s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPasswordChanged(ctx, *event); err != nil && s.log != nil {
		s.log.Warn("publish password changed event failed", zap.Error(err))
	}
}
