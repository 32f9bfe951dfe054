package port

import (
	"context"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
)

// EventPublisher publishes account security events to downstream consumers.
type EventPublisher interface {
	PublishAccountCreated(ctx context.Context, event domain.AccountCreatedEvent) error
	PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error
	PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
}
