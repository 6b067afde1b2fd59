package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegistry_ProtectedCallRunsOperation(t *testing.T) {
	reg := NewRegistry(RegistryConfig{})
	ran := false
	err := reg.ProtectedCall(context.Background(), OpSubmitResult, "club-1", func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("ProtectedCall failed: %v", err)
	}
	if !ran {
		t.Fatalf("operation did not run")
	}
}

func TestRegistry_RateLimitRejectionCarriesRetryAfter(t *testing.T) {
	settings := DefaultSettings()
	entry := settings[OpSubmitResult]
	entry.Limit = LimitSettings{MaxRequests: 1, Window: time.Minute}
	settings[OpSubmitResult] = entry

	reg := NewRegistry(RegistryConfig{Settings: settings})
	ctx := context.Background()

	if err := reg.ProtectedCall(ctx, OpSubmitResult, "club-1", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	err := reg.ProtectedCall(ctx, OpSubmitResult, "club-1", func(context.Context) error { return nil })

	var rej *Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("expected Rejection, got %v", err)
	}
	if rej.Reason != ReasonRateLimited {
		t.Fatalf("expected rate_limited, got %s", rej.Reason)
	}
	if rej.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %s", rej.RetryAfter)
	}
}

func TestRegistry_ScopesAreIsolated(t *testing.T) {
	settings := DefaultSettings()
	entry := settings[OpSubmitResult]
	entry.Limit = LimitSettings{MaxRequests: 1, Window: time.Minute}
	settings[OpSubmitResult] = entry

	reg := NewRegistry(RegistryConfig{Settings: settings})
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	if err := reg.ProtectedCall(ctx, OpSubmitResult, "club-1", noop); err != nil {
		t.Fatalf("club-1 first call: %v", err)
	}
	// Другой клуб — другой scope, лимит независим.
	if err := reg.ProtectedCall(ctx, OpSubmitResult, "club-2", noop); err != nil {
		t.Fatalf("club-2 must not share club-1 window: %v", err)
	}
}

func TestRegistry_BreakerWrapsOperationErrors(t *testing.T) {
	settings := DefaultSettings()
	entry := settings[OpScheduleMatches]
	entry.Breaker = BreakerSettings{FailureThreshold: 2, RecoveryTimeout: time.Minute}
	entry.Limit = LimitSettings{MaxRequests: 1000, Window: time.Minute}
	settings[OpScheduleMatches] = entry

	reg := NewRegistry(RegistryConfig{Settings: settings})
	ctx := context.Background()
	boom := errors.New("store unreachable")

	for i := 0; i < 2; i++ {
		if err := reg.ProtectedCall(ctx, OpScheduleMatches, "", func(context.Context) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected operation error, got %v", i, err)
		}
	}

	err := reg.ProtectedCall(ctx, OpScheduleMatches, "", func(context.Context) error { return nil })
	var rej *Rejection
	if !errors.As(err, &rej) || rej.Reason != ReasonCircuitOpen {
		t.Fatalf("expected circuit_open rejection, got %v", err)
	}
}

func TestRegistry_SnapshotsCoverAllOperations(t *testing.T) {
	reg := NewRegistry(RegistryConfig{})
	snaps := reg.Snapshots(context.Background())
	if len(snaps) != len(Operations()) {
		t.Fatalf("expected %d snapshots, got %d", len(Operations()), len(snaps))
	}
	for name, snap := range snaps {
		if snap.State != StateClosed {
			t.Fatalf("breaker %s should start closed, got %s", name, snap.State)
		}
	}
}
