package security

import (
	"errors"
	"testing"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
)

func TestPasswordPolicySuccess(t *testing.T) {
	policy := NewPasswordPolicy(DefaultPolicyParams())

	password := "C0mplex!Passphrase#2026"
	if strength := zxcvbn.PasswordStrength(password, nil); strength.Score < DefaultPolicyParams().MinStrength {
		t.Fatalf("test password unexpectedly weak: score=%d", strength.Score)
	}
	if err := policy.Validate(password, domain.PasswordContext{}); err != nil {
		t.Fatalf("expected password to pass validation, got %v", err)
	}
}

func TestPasswordPolicyViolations(t *testing.T) {
	policy := NewPasswordPolicy(DefaultPolicyParams())

	assertViolation := func(password, expectedCode string) {
		t.Helper()
		err := policy.Validate(password, domain.PasswordContext{})
		if err == nil {
			t.Fatalf("expected validation error for %s", expectedCode)
		}
		var vErr *PasswordValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected PasswordValidationError, got %T", err)
		}
		if vErr.Code != expectedCode {
			t.Fatalf("expected %s code, got %s", expectedCode, vErr.Code)
		}
	}

	assertViolation("Short1!", "min_length")
	assertViolation("lowercasepassword", "character_classes")
	assertViolation("Password123", "weak_password")
}

func TestPasswordPolicyUsesUsernameAsStrengthInput(t *testing.T) {
	policy := NewPasswordPolicy(DefaultPolicyParams())

	// The username itself with minor embellishment is a weak choice.
	err := policy.Validate("Abdulkader#1", domain.PasswordContext{Username: "abdulkader"})
	if err == nil {
		t.Fatal("expected validation error when password derives from the username")
	}
}

func TestCustomPasswordValidator(t *testing.T) {
	validator := NewPasswordValidator(
		MinLengthRule(4),
		RequireDifferentFrom("existing"),
	)

	if err := validator.Validate("existing"); err == nil {
		t.Fatal("expected validation error when new password equals comparator")
	}

	if err := validator.Validate("abc"); err == nil {
		t.Fatal("expected validation error for short password")
	}

	if err := validator.Validate("long-enough"); err != nil {
		t.Fatalf("expected password to pass custom validation, got %v", err)
	}
}
