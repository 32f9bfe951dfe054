package domain

import "time"

// AccountStatus enumerates possible account states.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "Active"
	AccountStatusInactive  AccountStatus = "Inactive"
	AccountStatusPending   AccountStatus = "Pending"
	AccountStatusSuspended AccountStatus = "Suspended"
	AccountStatusDeleted   AccountStatus = "Deleted"
)

// Valid reports whether the status is one of the known enumeration values.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusInactive, AccountStatusPending,
		AccountStatusSuspended, AccountStatusDeleted:
		return true
	}
	return false
}

// Account mirrors the persisted representation in the account table.
type Account struct {
	ID               int64
	UserID           int64
	Username         string
	PasswordHash     string
	TwoFactorEnabled bool

	LockoutUntil      *time.Time
	PasswordChangedAt *time.Time
	ResetTokenHash    *string
	ResetTokenExpiry  *time.Time

	Status   AccountStatus
	IsActive bool

	LastLoginAt *time.Time

	CreatedAt   time.Time
	CreatedByID int64
	CreatedBy   string

	UpdatedAt   *time.Time
	UpdatedByID *int64
	UpdatedBy   *string

	SuspendedAt   *time.Time
	SuspendedByID *int64
	SuspendedBy   *string

	DeletedAt   *time.Time
	DeletedByID *int64
	DeletedBy   *string
}

// Disabled reports whether the account is barred from authenticating
// regardless of credentials. Suspended and Deleted statuses imply
// is_active=false; the flag is checked as well so the two never disagree
// in favor of access.
func (a Account) Disabled() bool {
	if !a.IsActive {
		return true
	}
	return a.Status == AccountStatusSuspended || a.Status == AccountStatusDeleted
}

// LockedAt reports whether a lockout window is in force at the given instant.
func (a Account) LockedAt(now time.Time) bool {
	return a.LockoutUntil != nil && a.LockoutUntil.After(now)
}

// FailureReason classifies a rejected login attempt for audit purposes.
// The granularity exists for audit-log consumption only and is never
// exposed verbatim to HTTP callers.
type FailureReason string

const (
	FailureUnknownAccount  FailureReason = "unknown_account"
	FailureAccountDisabled FailureReason = "account_disabled"
	FailureAccountLocked   FailureReason = "account_locked"
	FailureBadPassword     FailureReason = "bad_password"
)

// FailedLoginAttempt is an immutable audit record for one rejected login.
type FailedLoginAttempt struct {
	ID          int64
	AccountID   int64
	IPAddress   *string
	UserAgent   *string
	Reason      FailureReason
	AttemptedAt time.Time
}

// OldUserPassword holds a superseded password hash for reuse prevention.
// PasswordSetAt records when the hash originally became active, and
// PasswordAdapter optionally names an external identity provider that
// produced it.
type OldUserPassword struct {
	ID              int64
	AccountID       int64
	PasswordHash    string
	PasswordSetAt   time.Time
	PasswordAdapter *string
}
