package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
	"github.com/abdulkaderkhouja/elpazar/internal/repository"
)

func accountRow(now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "username", "password_hash", "two_factor_enabled",
		"lockout_until", "password_changed_at", "reset_password_token", "reset_password_token_expiry",
		"status", "is_active", "last_login_at",
		"created_at", "created_by_id", "created_by",
		"updated_at", "updated_by_id", "updated_by",
		"suspended_at", "suspended_by_id", "suspended_by",
		"deleted_at", "deleted_by_id", "deleted_by",
	}).AddRow(
		int64(7), int64(42), "merchant", "argon2id$v=19$m=65536,t=3,p=4$c$h", false,
		nil, nil, nil, nil,
		domain.AccountStatusActive, true, nil,
		now, int64(1), "system",
		nil, nil, nil,
		nil, nil, nil,
		nil, nil, nil,
	)
}

func TestAccountRepository_GetByUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .*FROM marketplace\.account`).
		WithArgs("merchant").
		WillReturnRows(accountRow(now))

	account, err := repo.GetByUsername(context.Background(), "merchant")
	if err != nil {
		t.Fatalf("GetByUsername returned error: %v", err)
	}
	if account.ID != 7 || account.Username != "merchant" {
		t.Fatalf("unexpected account: %+v", account)
	}
	if account.Disabled() {
		t.Fatal("active account reported disabled")
	}
	if account.LockedAt(now) {
		t.Fatal("account without lockout reported locked")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_GetByUsernameNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM marketplace\.account`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(accountColumns))

	_, err = repo.GetByUsername(context.Background(), "ghost")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepository_GetByUsernameForUpdateLocksRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .*FROM marketplace\.account.*FOR UPDATE`).
		WithArgs("merchant").
		WillReturnRows(accountRow(now))

	if _, err := repo.GetByUsernameForUpdate(context.Background(), "merchant"); err != nil {
		t.Fatalf("GetByUsernameForUpdate returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_UpdateLockout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	until := time.Now().UTC().Add(15 * time.Minute)

	mock.ExpectExec(`UPDATE marketplace\.account`).
		WithArgs(until, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateLockout(context.Background(), 7, &until); err != nil {
		t.Fatalf("UpdateLockout returned error: %v", err)
	}

	// Clearing passes NULL.
	mock.ExpectExec(`UPDATE marketplace\.account`).
		WithArgs(nil, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateLockout(context.Background(), 7, nil); err != nil {
		t.Fatalf("UpdateLockout(nil) returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_UpdateLockoutMissingAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectExec(`UPDATE marketplace\.account`).
		WithArgs(nil, int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdateLockout(context.Background(), 404, nil); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAttemptRepository_CountFailedSinceFiltersReason(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAttemptRepository(mock)
	since := time.Now().UTC().Add(-15 * time.Minute)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM marketplace\.failed_login_attempts`).
		WithArgs(int64(7), domain.FailureBadPassword, since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountFailedSince(context.Background(), 7, since)
	if err != nil {
		t.Fatalf("CountFailedSince returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 attempts, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPasswordHistoryRepository_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPasswordHistoryRepository(mock)
	setAt := time.Now().UTC().Add(-48 * time.Hour)

	mock.ExpectExec(`INSERT INTO marketplace\.old_user_passwords`).
		WithArgs(int64(7), "argon2id$v=19$m=65536,t=3,p=4$old$hash", setAt, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	entry := domain.OldUserPassword{
		AccountID:     7,
		PasswordHash:  "argon2id$v=19$m=65536,t=3,p=4$old$hash",
		PasswordSetAt: setAt,
	}
	if err := repo.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
