package health

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAggregateAnyCriticalWins(t *testing.T) {
	results := []CheckResult{
		{Name: "a", Status: StatusHealthy},
		{Name: "b", Status: StatusWarning},
		{Name: "c", Status: StatusCritical},
	}
	if got := aggregate(results); got != StatusCritical {
		t.Fatalf("expected critical, got %s", got)
	}
}

func TestAggregateWarningThreshold(t *testing.T) {
	two := []CheckResult{
		{Status: StatusWarning}, {Status: StatusWarning}, {Status: StatusHealthy},
	}
	if got := aggregate(two); got != StatusHealthy {
		t.Fatalf("two warnings must stay healthy, got %s", got)
	}

	three := append(two, CheckResult{Status: StatusWarning})
	if got := aggregate(three); got != StatusWarning {
		t.Fatalf("three warnings must aggregate to warning, got %s", got)
	}
}

func TestAggregateUnknownDoesNotDegrade(t *testing.T) {
	results := []CheckResult{
		{Status: StatusUnknown}, {Status: StatusHealthy},
	}
	if got := aggregate(results); got != StatusHealthy {
		t.Fatalf("unknown alone must not degrade the report, got %s", got)
	}
}

func TestRecommendationsMatchFailingChecks(t *testing.T) {
	results := []CheckResult{
		{Name: "database", Status: StatusHealthy},
		{Name: "redis", Status: StatusWarning},
		{Name: "circuit_breakers", Status: StatusCritical},
	}
	recs := recommend(results)
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d: %v", len(recs), recs)
	}
}

func TestTimeBoxReturnsUnknownOnBudgetExceeded(t *testing.T) {
	m := &Monitor{
		cfg:    MonitorConfig{}.withDefaults(),
		logger: discardLogger(),
		now:    time.Now,
	}
	m.cfg.CheckTimeout = 20 * time.Millisecond

	result := m.timeBox(context.Background(), "slow", func(ctx context.Context) CheckResult {
		<-ctx.Done()
		time.Sleep(time.Second)
		return CheckResult{Status: StatusHealthy}
	})
	if result.Status != StatusUnknown {
		t.Fatalf("expected unknown for a check over budget, got %s", result.Status)
	}
	if result.Name != "slow" {
		t.Fatalf("expected check name to be preserved, got %q", result.Name)
	}
}

func TestTimeBoxPassesFastCheckThrough(t *testing.T) {
	m := &Monitor{
		cfg:    MonitorConfig{}.withDefaults(),
		logger: discardLogger(),
		now:    time.Now,
	}

	result := m.timeBox(context.Background(), "fast", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy, Message: "ok"}
	})
	if result.Status != StatusHealthy || result.Name != "fast" {
		t.Fatalf("unexpected result: %+v", result)
	}
}
