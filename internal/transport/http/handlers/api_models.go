package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
	"github.com/abdulkaderkhouja/elpazar/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse reports whether the credentials were accepted. Rejections
// carry the same generic message regardless of cause; retry_after appears
// only when the account is locked and remaining_attempts only after a
// wrong password, both deliberately coarse.
type LoginResponse struct {
	Authenticated     bool   `json:"authenticated"`
	AccountID         int64  `json:"account_id,omitempty"`
	Message           string `json:"message,omitempty"`
	RetryAfterSeconds *int   `json:"retry_after_seconds,omitempty"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
}

// PasswordChangeRequest defines the payload for the password change endpoint.
type PasswordChangeRequest struct {
	AccountID       int64  `json:"account_id" binding:"required"`
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// PasswordResetRequest defines the payload for requesting a reset token.
type PasswordResetRequest struct {
	Username string `json:"username" binding:"required"`
}

// PasswordResetResponse acknowledges a reset request. The body is identical
// for known and unknown usernames; the token itself is only echoed in
// development mode.
type PasswordResetResponse struct {
	Message  string  `json:"message"`
	DevToken *string `json:"dev_token,omitempty"`
}

// PasswordResetConfirmRequest defines the payload for consuming a reset token.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// CreateAccountRequest defines the payload for provisioning an account.
type CreateAccountRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AccountSummary describes the account view returned by the admin API.
// The password hash is never included.
type AccountSummary struct {
	ID           int64                `json:"id"`
	UserID       int64                `json:"user_id"`
	Username     string               `json:"username"`
	Status       domain.AccountStatus `json:"status"`
	IsActive     bool                 `json:"is_active"`
	LockoutUntil *time.Time           `json:"lockout_until,omitempty"`
	LastLoginAt  *time.Time           `json:"last_login_at,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    *time.Time           `json:"updated_at,omitempty"`
	SuspendedAt  *time.Time           `json:"suspended_at,omitempty"`
	DeletedAt    *time.Time           `json:"deleted_at,omitempty"`
}

func newAccountSummary(account *domain.Account) AccountSummary {
	return AccountSummary{
		ID:           account.ID,
		UserID:       account.UserID,
		Username:     account.Username,
		Status:       account.Status,
		IsActive:     account.IsActive,
		LockoutUntil: account.LockoutUntil,
		LastLoginAt:  account.LastLoginAt,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
		SuspendedAt:  account.SuspendedAt,
		DeletedAt:    account.DeletedAt,
	}
}

// AccountListResponse wraps a page of accounts with the total match count.
type AccountListResponse struct {
	Accounts []AccountSummary `json:"accounts"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// FailedAttemptView is the audit representation of one rejected login.
type FailedAttemptView struct {
	ID          int64     `json:"id"`
	Reason      string    `json:"reason"`
	IPAddress   *string   `json:"ip_address,omitempty"`
	UserAgent   *string   `json:"user_agent,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// FailedAttemptListResponse wraps the recent audit trail for one account.
type FailedAttemptListResponse struct {
	Attempts []FailedAttemptView `json:"attempts"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse describes the readiness payload with per-dependency detail.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
