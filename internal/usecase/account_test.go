package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
	"github.com/abdulkaderkhouja/elpazar/internal/infra/security"
)

func newAccountFixture(t *testing.T, account *domain.Account) (*AccountService, *fakeAccountRepo, *fakePublisher) {
	t.Helper()

	accounts := &fakeAccountRepo{account: account}
	if account != nil {
		accounts.nextID = account.ID
	}
	attempts := &fakeAttemptRepo{}
	publisher := &fakePublisher{}

	policy := security.NewPasswordPolicy(security.DefaultPolicyParams())
	svc := NewAccountService(accounts, attempts, policy, publisher, nil, zaptest.NewLogger(t))
	svc.hash = func(password string) (string, error) { return "hashed:" + password, nil }

	return svc, accounts, publisher
}

func TestCreateAccount(t *testing.T) {
	now := time.Now().UTC()
	svc, accounts, publisher := newAccountFixture(t, nil)
	svc.now = func() time.Time { return now }

	created, err := svc.Create(context.Background(), CreateAccountInput{
		UserID:   42,
		Username: "merchant",
		Password: strongPassword,
		Actor:    Actor{ID: 1, Name: "ops"},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created.ID == 0 {
		t.Fatal("expected generated account id")
	}
	if created.PasswordHash != "" {
		t.Fatal("returned account must not expose the hash")
	}
	if accounts.account.PasswordHash != "hashed:"+strongPassword {
		t.Fatalf("stored hash mismatch: %s", accounts.account.PasswordHash)
	}
	if accounts.account.Status != domain.AccountStatusActive || !accounts.account.IsActive {
		t.Fatalf("new account should be active, got %+v", accounts.account)
	}
	if len(publisher.created) != 1 || publisher.created[0].Username != "merchant" {
		t.Fatalf("expected one created event, got %+v", publisher.created)
	}
}

func TestCreateAccountDuplicateUsername(t *testing.T) {
	now := time.Now().UTC()
	svc, _, _ := newAccountFixture(t, activeAccount(now))

	_, err := svc.Create(context.Background(), CreateAccountInput{
		UserID:   43,
		Username: "merchant",
		Password: strongPassword,
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCreateAccountWeakPassword(t *testing.T) {
	svc, _, _ := newAccountFixture(t, nil)

	_, err := svc.Create(context.Background(), CreateAccountInput{
		UserID:   42,
		Username: "merchant",
		Password: "short",
	})
	var vErr *security.PasswordValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected PasswordValidationError, got %v", err)
	}
}

func TestSuspendAndReactivate(t *testing.T) {
	now := time.Now().UTC()
	svc, accounts, _ := newAccountFixture(t, activeAccount(now))

	if err := svc.Suspend(context.Background(), 7, Actor{ID: 1, Name: "ops"}); err != nil {
		t.Fatalf("Suspend returned error: %v", err)
	}
	if accounts.account.Status != domain.AccountStatusSuspended || accounts.account.IsActive {
		t.Fatalf("account not suspended: %+v", accounts.account)
	}
	if !accounts.account.Disabled() {
		t.Fatal("suspended account must be disabled for login")
	}

	if err := svc.Reactivate(context.Background(), 7, Actor{ID: 1, Name: "ops"}); err != nil {
		t.Fatalf("Reactivate returned error: %v", err)
	}
	if accounts.account.Status != domain.AccountStatusActive || !accounts.account.IsActive {
		t.Fatalf("account not reactivated: %+v", accounts.account)
	}
}

func TestSoftDeleteIsTerminal(t *testing.T) {
	now := time.Now().UTC()
	svc, accounts, _ := newAccountFixture(t, activeAccount(now))

	if err := svc.SoftDelete(context.Background(), 7, Actor{ID: 1, Name: "ops"}); err != nil {
		t.Fatalf("SoftDelete returned error: %v", err)
	}
	if accounts.account.Status != domain.AccountStatusDeleted || accounts.account.DeletedAt == nil {
		t.Fatalf("account not soft deleted: %+v", accounts.account)
	}

	if err := svc.Reactivate(context.Background(), 7, Actor{ID: 1, Name: "ops"}); !errors.Is(err, ErrAccountDeleted) {
		t.Fatalf("expected ErrAccountDeleted, got %v", err)
	}
	if err := svc.SoftDelete(context.Background(), 7, Actor{ID: 1, Name: "ops"}); !errors.Is(err, ErrAccountDeleted) {
		t.Fatalf("expected ErrAccountDeleted on repeat delete, got %v", err)
	}
}

func TestClearLockout(t *testing.T) {
	now := time.Now().UTC()
	account := activeAccount(now)
	until := now.Add(10 * time.Minute)
	account.LockoutUntil = &until

	svc, accounts, _ := newAccountFixture(t, account)

	if err := svc.ClearLockout(context.Background(), 7, Actor{ID: 1, Name: "ops"}); err != nil {
		t.Fatalf("ClearLockout returned error: %v", err)
	}
	if accounts.account.LockoutUntil != nil {
		t.Fatal("lockout not cleared")
	}

	if err := svc.ClearLockout(context.Background(), 404, Actor{ID: 1}); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestGetScrubsHash(t *testing.T) {
	now := time.Now().UTC()
	svc, _, _ := newAccountFixture(t, activeAccount(now))

	account, err := svc.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if account.PasswordHash != "" {
		t.Fatal("Get must scrub the password hash")
	}

	if _, err := svc.Get(context.Background(), 404); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
