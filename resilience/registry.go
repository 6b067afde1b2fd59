package resilience

import (
	"context"
	"time"
)

// Operation — закрытый набор защищаемых операций. Настройки брейкеров и
// лимитеров выбираются по этому ключу из таблицы, собранной при старте;
// строковой диспетчеризации нет.
type Operation int

const (
	OpGenerateFixtures Operation = iota
	OpScheduleMatches
	OpRescheduleMatch
	OpSubmitResult
	OpRecomputeStandings
	OpEvaluateHealth
)

var operationNames = map[Operation]string{
	OpGenerateFixtures:   "generate_fixtures",
	OpScheduleMatches:    "schedule_matches",
	OpRescheduleMatch:    "reschedule_match",
	OpSubmitResult:       "submit_result",
	OpRecomputeStandings: "recompute_standings",
	OpEvaluateHealth:     "evaluate_health",
}

func (op Operation) String() string {
	if name, ok := operationNames[op]; ok {
		return name
	}
	return "unknown_operation"
}

// Operations перечисляет все известные операции (для health-отчёта).
func Operations() []Operation {
	ops := make([]Operation, 0, len(operationNames))
	for op := range operationNames {
		ops = append(ops, op)
	}
	return ops
}

type OperationSettings struct {
	Breaker BreakerSettings
	Limit   LimitSettings
}

// DefaultSettings — рабочие значения по типам операций. Генерация и
// планирование дороже и реже, подача результатов чаще и дешевле.
func DefaultSettings() map[Operation]OperationSettings {
	return map[Operation]OperationSettings{
		OpGenerateFixtures: {
			Breaker: BreakerSettings{FailureThreshold: 3, RecoveryTimeout: 60 * time.Second, CallTimeout: 30 * time.Second},
			Limit:   LimitSettings{MaxRequests: 5, Window: time.Minute, Cooldown: 2 * time.Second},
		},
		OpScheduleMatches: {
			Breaker: BreakerSettings{FailureThreshold: 3, RecoveryTimeout: 60 * time.Second, CallTimeout: 30 * time.Second},
			Limit:   LimitSettings{MaxRequests: 10, Window: time.Minute},
		},
		OpRescheduleMatch: {
			Breaker: BreakerSettings{FailureThreshold: 5, RecoveryTimeout: 30 * time.Second, CallTimeout: 10 * time.Second},
			Limit:   LimitSettings{MaxRequests: 30, Window: time.Minute},
		},
		OpSubmitResult: {
			Breaker: BreakerSettings{FailureThreshold: 5, RecoveryTimeout: 30 * time.Second, CallTimeout: 10 * time.Second},
			Limit:   LimitSettings{MaxRequests: 60, Window: time.Minute},
		},
		OpRecomputeStandings: {
			Breaker: BreakerSettings{FailureThreshold: 5, RecoveryTimeout: 30 * time.Second, CallTimeout: 15 * time.Second},
			Limit:   LimitSettings{MaxRequests: 30, Window: time.Minute},
		},
		OpEvaluateHealth: {
			Breaker: BreakerSettings{FailureThreshold: 3, RecoveryTimeout: 60 * time.Second, CallTimeout: 45 * time.Second},
			Limit:   LimitSettings{MaxRequests: 12, Window: time.Minute},
		},
	}
}

// Registry собирает брейкеры и лимитер в один внедряемый объект.
// Конструируется один раз при старте процесса; глобального состояния нет.
type Registry struct {
	settings map[Operation]OperationSettings
	breakers map[Operation]*Breaker
	limiter  *RateLimiter
}

type RegistryConfig struct {
	// Settings переопределяет DefaultSettings (полностью, по операциям).
	Settings map[Operation]OperationSettings
	// BreakerStore: nil = память процесса.
	BreakerStore BreakerStore
	// WindowStore: nil = память процесса.
	WindowStore WindowStore
	// LocalFallback подхватывает лимитирование при отказе WindowStore.
	LocalFallback *LocalLimiterStore
}

func NewRegistry(cfg RegistryConfig) *Registry {
	settings := cfg.Settings
	if settings == nil {
		settings = DefaultSettings()
	}

	breakers := make(map[Operation]*Breaker, len(settings))
	for op, s := range settings {
		breakers[op] = NewBreaker(op.String(), s.Breaker, cfg.BreakerStore)
	}

	return &Registry{
		settings: settings,
		breakers: breakers,
		limiter:  NewRateLimiter(cfg.WindowStore, cfg.LocalFallback),
	}
}

func (r *Registry) Breaker(op Operation) *Breaker {
	return r.breakers[op]
}

// Allow применяет только лимитер, без брейкера. Нужен HTTP middleware:
// обработчик нельзя оборачивать в таймаут-горутину брейкера, не рискуя
// записью в ResponseWriter после дедлайна.
func (r *Registry) Allow(ctx context.Context, op Operation, scope string) Decision {
	settings := r.settings[op]
	key := op.String()
	if scope != "" {
		key += ":" + scope
	}
	return r.limiter.Allow(ctx, key, settings.Limit)
}

// ProtectedCall — единая точка входа защитного слоя: сначала лимитер по
// ключу (операция, scope), затем брейкер, затем сама операция.
func (r *Registry) ProtectedCall(ctx context.Context, op Operation, scope string, fn func(context.Context) error) error {
	settings, ok := r.settings[op]
	if !ok {
		settings = OperationSettings{}
	}

	key := op.String()
	if scope != "" {
		key += ":" + scope
	}
	if dec := r.limiter.Allow(ctx, key, settings.Limit); !dec.Allowed {
		return &Rejection{Operation: op.String(), Reason: ReasonRateLimited, RetryAfter: dec.RetryAfter}
	}

	breaker := r.breakers[op]
	if breaker == nil {
		return fn(ctx)
	}
	return breaker.Execute(ctx, fn)
}

// Snapshots возвращает состояние всех брейкеров для health-отчёта.
func (r *Registry) Snapshots(ctx context.Context) map[string]BreakerSnapshot {
	out := make(map[string]BreakerSnapshot, len(r.breakers))
	for op, b := range r.breakers {
		snap, err := b.Snapshot(ctx)
		if err != nil {
			continue
		}
		out[op.String()] = snap
	}
	return out
}
