package security

import (
	"fmt"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
)

// PolicyParams holds the tunable knobs of the service password policy.
type PolicyParams struct {
	MinLength   int
	MinClasses  int
	MinStrength int
}

// DefaultPolicyParams mirrors the service defaults.
func DefaultPolicyParams() PolicyParams {
	return PolicyParams{
		MinLength:   10,
		MinClasses:  3,
		MinStrength: 3,
	}
}

// PasswordPolicy adapts the rule-chain validator to the domain-level policy
// interface, feeding contextual user inputs into the strength estimator.
type PasswordPolicy struct {
	params PolicyParams
}

// NewPasswordPolicy builds a policy from the provided parameters.
func NewPasswordPolicy(params PolicyParams) *PasswordPolicy {
	if params.MinLength <= 0 {
		params = DefaultPolicyParams()
	}
	return &PasswordPolicy{params: params}
}

// Validate applies the configured rules to ensure the password meets policy requirements.
func (p *PasswordPolicy) Validate(password string, ctx domain.PasswordContext) error {
	if p == nil {
		return fmt.Errorf("password policy not configured")
	}

	inputs := make([]string, 0, 1)
	if ctx.Username != "" {
		inputs = append(inputs, ctx.Username)
	}

	validator := NewPasswordValidator(
		MinLengthRule(p.params.MinLength),
		RequireCharacterClassesRule(p.params.MinClasses),
		RequirePasswordStrengthRule(p.params.MinStrength, inputs...),
	)

	return validator.Validate(password)
}
