package resilience

import (
	"context"
	"sync"
	"time"
)

type LimitSettings struct {
	// MaxRequests — максимум запросов в скользящем окне.
	MaxRequests int
	// Window — длина окна.
	Window time.Duration
	// Cooldown — минимальная пауза после последнего принятого запроса.
	// 0 = выключено.
	Cooldown time.Duration
}

func (s LimitSettings) withDefaults() LimitSettings {
	if s.MaxRequests <= 0 {
		s.MaxRequests = 60
	}
	if s.Window <= 0 {
		s.Window = time.Minute
	}
	return s
}

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

// WindowStore хранит окно меток времени по ключу (операция, scope).
// Take атомарно чистит устаревшие метки, проверяет лимит и cooldown и,
// если запрос принят, записывает новую метку.
type WindowStore interface {
	Take(ctx context.Context, key string, now time.Time, settings LimitSettings) (Decision, error)
}

// RateLimiter — скользящее окно поверх общего стора. При недоступности
// стора решение принимает локальный per-key token bucket, чтобы отказ
// Redis не превращался ни в полный запрет, ни в полное отсутствие лимита.
type RateLimiter struct {
	store    WindowStore
	fallback *LocalLimiterStore
	now      func() time.Time
}

func NewRateLimiter(store WindowStore, fallback *LocalLimiterStore) *RateLimiter {
	if store == nil {
		store = NewMemoryWindowStore()
	}
	return &RateLimiter{store: store, fallback: fallback, now: time.Now}
}

func (l *RateLimiter) Allow(ctx context.Context, key string, settings LimitSettings) Decision {
	settings = settings.withDefaults()
	dec, err := l.store.Take(ctx, key, l.now(), settings)
	if err == nil {
		return dec
	}
	if l.fallback == nil {
		// Общий стор недоступен и фолбэка нет: пропускаем, защита
		// остаётся за брейкером.
		return Decision{Allowed: true}
	}
	if l.fallback.Allow(key, settings) {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, RetryAfter: settings.Window / time.Duration(settings.MaxRequests)}
}

// memoryWindowStore — точная реализация окна в памяти процесса.
// Используется в тестах и при работе в один экземпляр.
type memoryWindowStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewMemoryWindowStore() WindowStore {
	return &memoryWindowStore{windows: make(map[string][]time.Time)}
}

func (s *memoryWindowStore) Take(_ context.Context, key string, now time.Time, settings LimitSettings) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-settings.Window)
	window := s.windows[key]
	pruned := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}

	if len(pruned) >= settings.MaxRequests {
		oldest := pruned[0]
		s.windows[key] = pruned
		return Decision{
			Allowed:    false,
			RetryAfter: oldest.Add(settings.Window).Sub(now),
		}, nil
	}

	if settings.Cooldown > 0 && len(pruned) > 0 {
		newest := pruned[len(pruned)-1]
		if since := now.Sub(newest); since < settings.Cooldown {
			s.windows[key] = pruned
			return Decision{
				Allowed:    false,
				RetryAfter: settings.Cooldown - since,
			}, nil
		}
	}

	pruned = append(pruned, now)
	s.windows[key] = pruned
	return Decision{Allowed: true, Remaining: settings.MaxRequests - len(pruned)}, nil
}
