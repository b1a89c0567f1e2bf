package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates at least one component check failed.
	Degraded Status = "degraded"
)

// CheckResult is "ok" or the failed check's error message.
type CheckResult string

// CheckOK marks a passing check.
const CheckOK CheckResult = "ok"

// Component names reported in Report.Checks.
const (
	ComponentIndex    = "index"
	ComponentProvider = "openai"
)

const defaultCheckTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index    IndexPinger
	provider ProviderChecker
	timeout  time.Duration
}

// New creates a Service. Either checker can be nil and is then skipped.
func New(index IndexPinger, provider ProviderChecker) *Service {
	return &Service{index: index, provider: provider, timeout: defaultCheckTimeout}
}

// WithTimeout bounds each component check.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 2)

	if s.index != nil {
		checks[ComponentIndex] = s.run(ctx, s.index.Ping)
	}
	if s.provider != nil {
		checks[ComponentProvider] = s.run(ctx, s.provider.HealthCheck)
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := check(ctx); err != nil {
		return CheckResult(err.Error())
	}
	return CheckOK
}
