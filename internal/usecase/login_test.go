package usecase

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
	"github.com/abdulkaderkhouja/elpazar/internal/infra/config"
)

func lockoutSettings() config.LockoutSettings {
	return config.LockoutSettings{
		Threshold: 5,
		Window:    15 * time.Minute,
		Duration:  15 * time.Minute,
	}
}

func newLoginFixture(t *testing.T, account *domain.Account) (*LoginService, *fakeAccountRepo, *fakeAttemptRepo, *fakePublisher) {
	t.Helper()

	accounts := &fakeAccountRepo{account: account}
	attempts := &fakeAttemptRepo{}
	passwords := &fakePasswordRepo{}
	publisher := &fakePublisher{}
	uow := fakeUnitOfWork{scope: fakeScope{accounts: accounts, attempts: attempts, passwords: passwords}}

	svc := NewLoginService(lockoutSettings(), accounts, uow, publisher, nil, zaptest.NewLogger(t))
	return svc, accounts, attempts, publisher
}

func activeAccount(now time.Time) *domain.Account {
	return &domain.Account{
		ID:           7,
		UserID:       42,
		Username:     "merchant",
		PasswordHash: "stored-hash",
		Status:       domain.AccountStatusActive,
		IsActive:     true,
		CreatedAt:    now.Add(-24 * time.Hour),
	}
}

func TestAttemptLoginUnknownAccountLeavesNoTrace(t *testing.T) {
	svc, _, attempts, _ := newLoginFixture(t, nil)

	result, err := svc.AttemptLogin(context.Background(), LoginInput{Username: "ghost", Password: "whatever"})
	if err != nil {
		t.Fatalf("AttemptLogin returned error: %v", err)
	}
	if result.Accepted {
		t.Fatal("unknown account must be rejected")
	}
	if result.Reason != domain.FailureUnknownAccount {
		t.Fatalf("expected unknown_account reason, got %s", result.Reason)
	}
	if len(attempts.attempts) != 0 {
		t.Fatalf("unknown account must not produce audit rows, got %d", len(attempts.attempts))
	}
}

func TestAttemptLoginCountsDownThenLocks(t *testing.T) {
	now := time.Now().UTC()
	svc, accounts, attempts, publisher := newLoginFixture(t, activeAccount(now))
	svc.now = func() time.Time { return now }
	svc.verify = func(_, _ string) (bool, error) { return false, nil }

	input := LoginInput{Username: "merchant", Password: "wrong"}

	for i, wantRemaining := range []int{4, 3, 2, 1} {
		result, err := svc.AttemptLogin(context.Background(), input)
		if err != nil {
			t.Fatalf("attempt %d returned error: %v", i+1, err)
		}
		if result.Accepted || result.Reason != domain.FailureBadPassword {
			t.Fatalf("attempt %d: unexpected result %+v", i+1, result)
		}
		if result.RemainingAttempts != wantRemaining {
			t.Fatalf("attempt %d: expected %d remaining, got %d", i+1, wantRemaining, result.RemainingAttempts)
		}
	}

	result, err := svc.AttemptLogin(context.Background(), input)
	if err != nil {
		t.Fatalf("fifth attempt returned error: %v", err)
	}
	if result.Reason != domain.FailureAccountLocked || !result.LockedNow {
		t.Fatalf("fifth attempt should trigger lockout, got %+v", result)
	}
	if result.RetryAfter != 15*time.Minute {
		t.Fatalf("expected 15m retry-after, got %v", result.RetryAfter)
	}

	if accounts.account.LockoutUntil == nil || !accounts.account.LockoutUntil.Equal(now.Add(15*time.Minute)) {
		t.Fatalf("lockout_until not persisted, got %v", accounts.account.LockoutUntil)
	}
	if len(attempts.attempts) != 5 {
		t.Fatalf("expected 5 audit rows, got %d", len(attempts.attempts))
	}
	if len(publisher.locked) != 1 || publisher.locked[0].FailedAttempts != 5 {
		t.Fatalf("expected one lockout event with 5 attempts, got %+v", publisher.locked)
	}
}

func TestAttemptLoginLockedSkipsHashComparison(t *testing.T) {
	now := time.Now().UTC()
	account := activeAccount(now)
	until := now.Add(10 * time.Minute)
	account.LockoutUntil = &until

	svc, _, attempts, _ := newLoginFixture(t, account)
	svc.now = func() time.Time { return now }
	svc.verify = func(_, _ string) (bool, error) {
		t.Fatal("hash comparison must not run while locked")
		return false, nil
	}

	// Even the correct password is rejected while the lockout is in force.
	result, err := svc.AttemptLogin(context.Background(), LoginInput{Username: "merchant", Password: "correct"})
	if err != nil {
		t.Fatalf("AttemptLogin returned error: %v", err)
	}
	if result.Reason != domain.FailureAccountLocked {
		t.Fatalf("expected account_locked, got %s", result.Reason)
	}
	if result.RetryAfter != 10*time.Minute {
		t.Fatalf("expected 10m retry-after, got %v", result.RetryAfter)
	}
	if len(attempts.attempts) != 1 || attempts.attempts[0].Reason != domain.FailureAccountLocked {
		t.Fatalf("expected one account_locked audit row, got %+v", attempts.attempts)
	}
}

func TestAttemptLoginExpiredLockoutAcceptsAndClears(t *testing.T) {
	now := time.Now().UTC()
	account := activeAccount(now)
	past := now.Add(-time.Minute)
	account.LockoutUntil = &past

	svc, accounts, _, publisher := newLoginFixture(t, account)
	svc.now = func() time.Time { return now }
	svc.verify = func(password, _ string) (bool, error) { return password == "correct", nil }

	result, err := svc.AttemptLogin(context.Background(), LoginInput{Username: "merchant", Password: "correct"})
	if err != nil {
		t.Fatalf("AttemptLogin returned error: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected acceptance after lockout expiry, got %+v", result)
	}
	if accounts.account.LockoutUntil != nil {
		t.Fatal("stale lockout should be cleared on success")
	}
	if accounts.account.LastLoginAt == nil || !accounts.account.LastLoginAt.Equal(now) {
		t.Fatalf("last login not recorded, got %v", accounts.account.LastLoginAt)
	}
	if len(publisher.logins) != 1 {
		t.Fatalf("expected one login event, got %d", len(publisher.logins))
	}
}

func TestAttemptLoginDisabledAccount(t *testing.T) {
	now := time.Now().UTC()
	account := activeAccount(now)
	account.Status = domain.AccountStatusSuspended
	account.IsActive = false

	svc, _, attempts, _ := newLoginFixture(t, account)
	svc.now = func() time.Time { return now }
	svc.verify = func(_, _ string) (bool, error) {
		t.Fatal("hash comparison must not run for disabled accounts")
		return false, nil
	}

	result, err := svc.AttemptLogin(context.Background(), LoginInput{Username: "merchant", Password: "correct"})
	if err != nil {
		t.Fatalf("AttemptLogin returned error: %v", err)
	}
	if result.Reason != domain.FailureAccountDisabled {
		t.Fatalf("expected account_disabled, got %s", result.Reason)
	}
	if len(attempts.attempts) != 1 || attempts.attempts[0].Reason != domain.FailureAccountDisabled {
		t.Fatalf("expected one account_disabled audit row, got %+v", attempts.attempts)
	}
}

func TestAttemptLoginSuccessResetsFailureCount(t *testing.T) {
	now := time.Now().UTC()
	svc, accounts, _, _ := newLoginFixture(t, activeAccount(now))

	clock := now
	svc.now = func() time.Time { return clock }
	svc.verify = func(password, _ string) (bool, error) { return password == "correct", nil }

	input := LoginInput{Username: "merchant", Password: "wrong"}
	for i := 0; i < 3; i++ {
		if _, err := svc.AttemptLogin(context.Background(), input); err != nil {
			t.Fatalf("failed attempt returned error: %v", err)
		}
		clock = clock.Add(time.Second)
	}

	if _, err := svc.AttemptLogin(context.Background(), LoginInput{Username: "merchant", Password: "correct"}); err != nil {
		t.Fatalf("successful login returned error: %v", err)
	}
	if accounts.account.LastLoginAt == nil {
		t.Fatal("last login not recorded")
	}

	// The next failure starts from a clean slate.
	clock = clock.Add(time.Second)
	result, err := svc.AttemptLogin(context.Background(), input)
	if err != nil {
		t.Fatalf("post-success failure returned error: %v", err)
	}
	if result.RemainingAttempts != 4 {
		t.Fatalf("expected counter reset to 4 remaining, got %d", result.RemainingAttempts)
	}
}

func TestAttemptLoginRejectedOutcomesDoNotAdvanceLockout(t *testing.T) {
	now := time.Now().UTC()
	account := activeAccount(now)
	until := now.Add(5 * time.Minute)
	account.LockoutUntil = &until

	svc, accounts, attempts, _ := newLoginFixture(t, account)
	svc.now = func() time.Time { return now }

	// Repeated attempts against a locked account only add locked audit rows.
	for i := 0; i < 10; i++ {
		if _, err := svc.AttemptLogin(context.Background(), LoginInput{Username: "merchant", Password: "wrong"}); err != nil {
			t.Fatalf("attempt returned error: %v", err)
		}
	}

	if !accounts.account.LockoutUntil.Equal(until) {
		t.Fatalf("lockout expiry must not extend, got %v", accounts.account.LockoutUntil)
	}
	count, _ := attempts.CountFailedSince(context.Background(), 7, now.Add(-time.Hour))
	if count != 0 {
		t.Fatalf("locked rejections must not count as bad passwords, got %d", count)
	}
}

func TestAttemptLoginValidatesInput(t *testing.T) {
	svc, _, _, _ := newLoginFixture(t, nil)

	if _, err := svc.AttemptLogin(context.Background(), LoginInput{Password: "x"}); err != ErrUsernameRequired {
		t.Fatalf("expected ErrUsernameRequired, got %v", err)
	}
	if _, err := svc.AttemptLogin(context.Background(), LoginInput{Username: "x"}); err != ErrPasswordRequired {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}
}
