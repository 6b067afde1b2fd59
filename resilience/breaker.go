package resilience

import (
	"context"
	"errors"
	"time"
)

// BreakerState соответствует состояниям автомата: CLOSED / OPEN / HALF_OPEN.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

type BreakerSettings struct {
	// FailureThreshold — столько отказов подряд переводят CLOSED в OPEN.
	FailureThreshold int
	// RecoveryTimeout — пауза после последнего отказа, по истечении которой
	// следующий вызов пробует HALF_OPEN. Оценивается лениво, без таймеров.
	RecoveryTimeout time.Duration
	// CallTimeout — превышение засчитывается как отказ. 0 = без лимита.
	CallTimeout time.Duration
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.RecoveryTimeout <= 0 {
		s.RecoveryTimeout = 30 * time.Second
	}
	return s
}

// BreakerSnapshot — состояние одного именованного брейкера.
// FailureCount считает отказы подряд с момента последнего восстановления:
// успехи в CLOSED его не сбрасывают, сброс происходит только при
// HALF_OPEN -> CLOSED.
type BreakerSnapshot struct {
	State         BreakerState `json:"state"`
	FailureCount  int          `json:"failure_count"`
	SuccessCount  int64        `json:"success_count"`
	TotalRequests int64        `json:"total_requests"`
	TotalFailures int64        `json:"total_failures"`
	LastFailure   time.Time    `json:"last_failure,omitempty"`
	LastSuccess   time.Time    `json:"last_success,omitempty"`
}

// FailureRate — доля отказов среди всех выполненных вызовов.
func (s BreakerSnapshot) FailureRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.TotalFailures) / float64(s.TotalRequests)
}

// BreakerStore хранит состояние брейкеров. Update обязан применять fn
// атомарно: при нескольких экземплярах сервиса счётчик "N отказов подряд"
// корректен только над общим состоянием.
type BreakerStore interface {
	Update(ctx context.Context, name string, fn func(BreakerSnapshot) BreakerSnapshot) (BreakerSnapshot, error)
	Get(ctx context.Context, name string) (BreakerSnapshot, error)
}

// Breaker защищает одну операцию. Начальное состояние — CLOSED.
type Breaker struct {
	name     string
	settings BreakerSettings
	store    BreakerStore
	now      func() time.Time
}

func NewBreaker(name string, settings BreakerSettings, store BreakerStore) *Breaker {
	if store == nil {
		store = NewMemoryBreakerStore()
	}
	return &Breaker{
		name:     name,
		settings: settings.withDefaults(),
		store:    store,
		now:      time.Now,
	}
}

func (b *Breaker) Name() string { return b.name }

// Snapshot возвращает текущее состояние для health-отчёта.
func (b *Breaker) Snapshot(ctx context.Context) (BreakerSnapshot, error) {
	snap, err := b.store.Get(ctx, b.name)
	if err != nil {
		return BreakerSnapshot{}, err
	}
	if snap.State == "" {
		snap.State = StateClosed
	}
	return snap, nil
}

// Execute runs fn under the breaker. While OPEN and the recovery timeout has
// not elapsed, the call is rejected without invoking fn. The OPEN->HALF_OPEN
// edge is taken lazily here, on the first attempt after the timeout.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	now := b.now()

	snap, err := b.store.Update(ctx, b.name, func(s BreakerSnapshot) BreakerSnapshot {
		if s.State == "" {
			s.State = StateClosed
		}
		if s.State == StateOpen && now.Sub(s.LastFailure) >= b.settings.RecoveryTimeout {
			s.State = StateHalfOpen
		}
		if s.State != StateOpen {
			s.TotalRequests++
		}
		return s
	})
	if err != nil {
		return err
	}

	if snap.State == StateOpen {
		retryAfter := b.settings.RecoveryTimeout - now.Sub(snap.LastFailure)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return &Rejection{Operation: b.name, Reason: ReasonCircuitOpen, RetryAfter: retryAfter}
	}

	callErr := b.call(ctx, fn)
	if callErr != nil {
		_, _ = b.store.Update(ctx, b.name, b.recordFailure)
		return callErr
	}
	_, err = b.store.Update(ctx, b.name, b.recordSuccess)
	return err
}

func (b *Breaker) call(ctx context.Context, fn func(context.Context) error) error {
	if b.settings.CallTimeout <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, b.settings.CallTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(callCtx) }()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return &TimeoutError{Operation: b.name, Timeout: b.settings.CallTimeout}
		}
		return callCtx.Err()
	}
}

func (b *Breaker) recordFailure(s BreakerSnapshot) BreakerSnapshot {
	now := b.now()
	s.FailureCount++
	s.TotalFailures++
	s.LastFailure = now
	switch s.State {
	case StateHalfOpen:
		s.State = StateOpen
	default:
		if s.FailureCount >= b.settings.FailureThreshold {
			s.State = StateOpen
		}
	}
	return s
}

func (b *Breaker) recordSuccess(s BreakerSnapshot) BreakerSnapshot {
	s.SuccessCount++
	s.LastSuccess = b.now()
	if s.State == StateHalfOpen {
		s.State = StateClosed
		s.FailureCount = 0
	}
	return s
}
