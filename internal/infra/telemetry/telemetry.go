package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/abdulkaderkhouja/elpazar/internal/infra/config"
)

// Provider represents a telemetry provider handle.
type Provider struct {
	loginAttempts  *prometheus.CounterVec
	lockoutsTotal  prometheus.Counter
	passwordResets prometheus.Counter
}

// Attach configures telemetry exporters and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	loginAttempts := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "elpazar",
		Name:      "login_attempts_total",
		Help:      "Total login attempts partitioned by outcome",
	}, []string{"outcome"})

	lockoutsTotal := promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "elpazar",
		Name:      "account_lockouts_total",
		Help:      "Total accounts locked by the lockout policy",
	})

	passwordResets := promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "elpazar",
		Name:      "password_reset_requests_total",
		Help:      "Total password reset requests",
	})

	return &Provider{
		loginAttempts:  loginAttempts,
		lockoutsTotal:  lockoutsTotal,
		passwordResets: passwordResets,
	}, nil
}

// ObserveLogin records a login attempt outcome.
func (p *Provider) ObserveLogin(outcome string) {
	if p == nil {
		return
	}
	p.loginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveLockout records a triggered account lockout.
func (p *Provider) ObserveLockout() {
	if p == nil {
		return
	}
	p.lockoutsTotal.Inc()
}

// ObservePasswordReset records a password reset request.
func (p *Provider) ObservePasswordReset() {
	if p == nil {
		return
	}
	p.passwordResets.Inc()
}
