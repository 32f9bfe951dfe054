package domain

import "time"

// AccountCreatedEvent represents the payload for accounts.account.created messages.
type AccountCreatedEvent struct {
	EventID   string
	AccountID int64
	UserID    int64
	Username  string
	Status    string
	CreatedAt time.Time
	CreatedBy string
	Metadata  map[string]any
}

// AccountLockedEvent represents the payload for accounts.account.locked messages.
type AccountLockedEvent struct {
	EventID        string
	AccountID      int64
	Username       string
	LockedAt       time.Time
	LockoutUntil   time.Time
	FailedAttempts int
	IPAddress      *string
	Metadata       map[string]any
}

// LoginSucceededEvent represents the payload for accounts.login.succeeded messages.
type LoginSucceededEvent struct {
	EventID   string
	AccountID int64
	Username  string
	LoginAt   time.Time
	IPAddress *string
	UserAgent *string
	Metadata  map[string]any
}

// PasswordChangedEvent represents the payload for accounts.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	AccountID int64
	ChangedAt time.Time
	ChangedBy string
	Metadata  map[string]any
}

// PasswordResetRequestedEvent represents the payload for
// accounts.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID     string
	AccountID   int64
	Username    string
	RequestedAt time.Time
	ExpiresAt   time.Time
	IPAddress   *string
	Metadata    map[string]any
}
