package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
	"github.com/abdulkaderkhouja/elpazar/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, accountID int64, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.Int64("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountCreated logs account.created events.
func (p *StubPublisher) PublishAccountCreated(_ context.Context, event domain.AccountCreatedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"user_id":    event.UserID,
		"username":   event.Username,
		"status":     event.Status,
		"created_at": event.CreatedAt,
		"created_by": event.CreatedBy,
		"metadata":   event.Metadata,
	}
	p.logEvent("account.created", event.AccountID, event.CreatedAt, payload)
	return nil
}

// PublishAccountLocked logs account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	payload := map[string]any{
		"account_id":      event.AccountID,
		"username":        event.Username,
		"locked_at":       event.LockedAt,
		"lockout_until":   event.LockoutUntil,
		"failed_attempts": event.FailedAttempts,
		"ip_address":      event.IPAddress,
		"metadata":        event.Metadata,
	}
	p.logEvent("account.locked", event.AccountID, event.LockedAt, payload)
	return nil
}

// PublishLoginSucceeded logs login.succeeded events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"username":   event.Username,
		"login_at":   event.LoginAt,
		"ip_address": event.IPAddress,
		"user_agent": event.UserAgent,
		"metadata":   event.Metadata,
	}
	p.logEvent("login.succeeded", event.AccountID, event.LoginAt, payload)
	return nil
}

// PublishPasswordChanged logs password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"changed_at": event.ChangedAt,
		"changed_by": event.ChangedBy,
		"metadata":   event.Metadata,
	}
	p.logEvent("password.changed", event.AccountID, event.ChangedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"account_id":   event.AccountID,
		"username":     event.Username,
		"requested_at": event.RequestedAt,
		"expires_at":   event.ExpiresAt,
		"ip_address":   event.IPAddress,
		"metadata":     event.Metadata,
	}
	p.logEvent("password.reset_requested", event.AccountID, event.RequestedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
