package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiterStore — per-key token bucket в памяти процесса. Служит
// фолбэком, когда общий Redis-стор недоступен: лимит продолжает
// действовать хотя бы в рамках одного экземпляра. Неактивные ключи
// вычищаются по TTL.
type LocalLimiterStore struct {
	mu           sync.Mutex
	entries      map[string]*localEntry
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type localEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type LocalLimiterOption func(*LocalLimiterStore)

func WithLocalIdleTTL(d time.Duration) LocalLimiterOption {
	return func(s *LocalLimiterStore) { s.idleTTL = d }
}

func WithLocalCleanupEvery(d time.Duration) LocalLimiterOption {
	return func(s *LocalLimiterStore) { s.cleanupEvery = d }
}

func NewLocalLimiterStore(opts ...LocalLimiterOption) *LocalLimiterStore {
	s := &LocalLimiterStore{
		entries:      make(map[string]*localEntry),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow аппроксимирует скользящее окно token bucket'ом с rps = max/window
// и burst = max.
func (s *LocalLimiterStore) Allow(key string, settings LimitSettings) bool {
	now := time.Now()

	s.mu.Lock()
	ent, ok := s.entries[key]
	if !ok {
		rps := float64(settings.MaxRequests) / settings.Window.Seconds()
		ent = &localEntry{lim: rate.NewLimiter(rate.Limit(rps), settings.MaxRequests)}
		s.entries[key] = ent
	}
	ent.lastSeen = now
	s.mu.Unlock()

	return ent.lim.Allow()
}

func (s *LocalLimiterStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor периодически чистит неактивные ключи до отмены контекста.
func (s *LocalLimiterStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
