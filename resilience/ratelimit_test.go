package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryWindow_EleventhCallRejected(t *testing.T) {
	store := NewMemoryWindowStore()
	settings := LimitSettings{MaxRequests: 10, Window: 60 * time.Second}
	base := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		dec, err := store.Take(ctx, "op:club-1", base.Add(time.Duration(i)*time.Second), settings)
		if err != nil {
			t.Fatalf("take %d: %v", i, err)
		}
		if !dec.Allowed {
			t.Fatalf("call %d within limit was rejected", i+1)
		}
	}

	dec, err := store.Take(ctx, "op:club-1", base.Add(30*time.Second), settings)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if dec.Allowed {
		t.Fatalf("11th call within the window must be rejected")
	}
	// Первый запрос выпадет из окна через 30 секунд.
	if dec.RetryAfter != 30*time.Second {
		t.Fatalf("expected retry-after 30s, got %s", dec.RetryAfter)
	}
}

func TestMemoryWindow_SlidesAfterWindow(t *testing.T) {
	store := NewMemoryWindowStore()
	settings := LimitSettings{MaxRequests: 10, Window: 60 * time.Second}
	base := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if dec, _ := store.Take(ctx, "k", base.Add(time.Duration(i)*time.Second), settings); !dec.Allowed {
			t.Fatalf("warmup call %d rejected", i)
		}
	}

	// Через 61 секунду после первого запроса место освободилось.
	dec, err := store.Take(ctx, "k", base.Add(61*time.Second), settings)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("call after the window slid must be accepted")
	}
}

func TestMemoryWindow_Cooldown(t *testing.T) {
	store := NewMemoryWindowStore()
	settings := LimitSettings{MaxRequests: 100, Window: time.Minute, Cooldown: 5 * time.Second}
	base := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if dec, _ := store.Take(ctx, "k", base, settings); !dec.Allowed {
		t.Fatalf("first call rejected")
	}
	dec, _ := store.Take(ctx, "k", base.Add(2*time.Second), settings)
	if dec.Allowed {
		t.Fatalf("call inside cooldown must be rejected")
	}
	if dec.RetryAfter != 3*time.Second {
		t.Fatalf("expected retry-after 3s, got %s", dec.RetryAfter)
	}
	if dec, _ = store.Take(ctx, "k", base.Add(6*time.Second), settings); !dec.Allowed {
		t.Fatalf("call after cooldown must be accepted")
	}
}

func TestMemoryWindow_KeysAreIndependent(t *testing.T) {
	store := NewMemoryWindowStore()
	settings := LimitSettings{MaxRequests: 1, Window: time.Minute}
	base := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if dec, _ := store.Take(ctx, "op:club-1", base, settings); !dec.Allowed {
		t.Fatalf("first key rejected")
	}
	if dec, _ := store.Take(ctx, "op:club-2", base, settings); !dec.Allowed {
		t.Fatalf("independent scope must have its own window")
	}
	if dec, _ := store.Take(ctx, "op:club-1", base.Add(time.Second), settings); dec.Allowed {
		t.Fatalf("exhausted scope must stay limited")
	}
}

type failingWindowStore struct{}

func (failingWindowStore) Take(context.Context, string, time.Time, LimitSettings) (Decision, error) {
	return Decision{}, errors.New("redis down")
}

func TestRateLimiter_FallsBackToLocalStore(t *testing.T) {
	limiter := NewRateLimiter(failingWindowStore{}, NewLocalLimiterStore())
	settings := LimitSettings{MaxRequests: 2, Window: time.Hour}
	ctx := context.Background()

	if dec := limiter.Allow(ctx, "k", settings); !dec.Allowed {
		t.Fatalf("fallback should admit within burst")
	}
	if dec := limiter.Allow(ctx, "k", settings); !dec.Allowed {
		t.Fatalf("fallback should admit within burst")
	}
	dec := limiter.Allow(ctx, "k", settings)
	if dec.Allowed {
		t.Fatalf("fallback must limit once the burst is spent")
	}
	if dec.RetryAfter <= 0 {
		t.Fatalf("fallback rejection must carry a retry-after hint")
	}
}

func TestRateLimiter_FailsOpenWithoutFallback(t *testing.T) {
	limiter := NewRateLimiter(failingWindowStore{}, nil)
	if dec := limiter.Allow(context.Background(), "k", LimitSettings{MaxRequests: 1, Window: time.Minute}); !dec.Allowed {
		t.Fatalf("store failure without fallback must not block calls")
	}
}
