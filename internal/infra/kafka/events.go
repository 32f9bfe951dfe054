package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
	"github.com/abdulkaderkhouja/elpazar/internal/core/port"
	"github.com/abdulkaderkhouja/elpazar/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID int64            `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType string, accountID int64, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountCreated publishes accounts.account.created events.
func (p *EventPublisher) PublishAccountCreated(ctx context.Context, event domain.AccountCreatedEvent) error {
	payload := struct {
		AccountID int64          `json:"account_id"`
		UserID    int64          `json:"user_id"`
		Username  string         `json:"username"`
		Status    string         `json:"status"`
		CreatedAt time.Time      `json:"created_at"`
		CreatedBy string         `json:"created_by,omitempty"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		UserID:    event.UserID,
		Username:  event.Username,
		Status:    event.Status,
		CreatedAt: event.CreatedAt.UTC(),
		CreatedBy: event.CreatedBy,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "account.created", event.AccountID, event.CreatedAt, payload)
}

// PublishAccountLocked publishes accounts.account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	payload := struct {
		AccountID      int64          `json:"account_id"`
		Username       string         `json:"username"`
		LockedAt       time.Time      `json:"locked_at"`
		LockoutUntil   time.Time      `json:"lockout_until"`
		FailedAttempts int            `json:"failed_attempts"`
		IPAddress      *string        `json:"ip_address,omitempty"`
		Metadata       map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:      event.AccountID,
		Username:       event.Username,
		LockedAt:       event.LockedAt.UTC(),
		LockoutUntil:   event.LockoutUntil.UTC(),
		FailedAttempts: event.FailedAttempts,
		IPAddress:      event.IPAddress,
		Metadata:       event.Metadata,
	}

	return p.publish(ctx, event.EventID, "account.locked", event.AccountID, event.LockedAt, payload)
}

// PublishLoginSucceeded publishes accounts.login.succeeded events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error {
	payload := struct {
		AccountID int64          `json:"account_id"`
		Username  string         `json:"username"`
		LoginAt   time.Time      `json:"login_at"`
		IPAddress *string        `json:"ip_address,omitempty"`
		UserAgent *string        `json:"user_agent,omitempty"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		Username:  event.Username,
		LoginAt:   event.LoginAt.UTC(),
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "login.succeeded", event.AccountID, event.LoginAt, payload)
}

// PublishPasswordChanged publishes accounts.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		AccountID int64          `json:"account_id"`
		ChangedAt time.Time      `json:"changed_at"`
		ChangedBy string         `json:"changed_by"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		ChangedAt: event.ChangedAt.UTC(),
		ChangedBy: event.ChangedBy,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "password.changed", event.AccountID, event.ChangedAt, payload)
}

// PublishPasswordResetRequested publishes accounts.password.reset_requested events.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		AccountID   int64          `json:"account_id"`
		Username    string         `json:"username"`
		RequestedAt time.Time      `json:"requested_at"`
		ExpiresAt   time.Time      `json:"expires_at"`
		IPAddress   *string        `json:"ip_address,omitempty"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:   event.AccountID,
		Username:    event.Username,
		RequestedAt: event.RequestedAt.UTC(),
		ExpiresAt:   event.ExpiresAt.UTC(),
		IPAddress:   event.IPAddress,
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "password.reset_requested", event.AccountID, event.RequestedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
