package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// memoryBreakerStore — состояние в памяти процесса под мьютексом.
// Достаточно для одного экземпляра сервиса и для тестов.
type memoryBreakerStore struct {
	mu    sync.Mutex
	snaps map[string]BreakerSnapshot
}

func NewMemoryBreakerStore() BreakerStore {
	return &memoryBreakerStore{snaps: make(map[string]BreakerSnapshot)}
}

func (s *memoryBreakerStore) Update(_ context.Context, name string, fn func(BreakerSnapshot) BreakerSnapshot) (BreakerSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := fn(s.snaps[name])
	s.snaps[name] = snap
	return snap, nil
}

func (s *memoryBreakerStore) Get(_ context.Context, name string) (BreakerSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snaps[name], nil
}

const redisBreakerRetries = 5

// redisBreakerStore хранит состояние в Redis, общее для всех экземпляров
// сервиса. Update реализован оптимистичным CAS через WATCH: при гонке
// транзакция повторяется.
type redisBreakerStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisBreakerOption func(*redisBreakerStore)

func WithBreakerPrefix(prefix string) RedisBreakerOption {
	return func(s *redisBreakerStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisBreakerStore(rdb *redis.Client, opts ...RedisBreakerOption) BreakerStore {
	s := &redisBreakerStore{rdb: rdb, prefix: "breaker"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *redisBreakerStore) key(name string) string {
	return s.prefix + ":" + name
}

func (s *redisBreakerStore) Update(ctx context.Context, name string, fn func(BreakerSnapshot) BreakerSnapshot) (BreakerSnapshot, error) {
	key := s.key(name)
	var result BreakerSnapshot

	txf := func(tx *redis.Tx) error {
		snap, err := loadSnapshot(ctx, tx, key)
		if err != nil {
			return err
		}
		result = fn(snap)
		payload, err := json.Marshal(result)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	for i := 0; i < redisBreakerRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // конкурирующее обновление, пробуем снова
		}
		return BreakerSnapshot{}, fmt.Errorf("breaker %s: redis update failed: %w", name, err)
	}
	return BreakerSnapshot{}, fmt.Errorf("breaker %s: redis update contention after %d retries", name, redisBreakerRetries)
}

func (s *redisBreakerStore) Get(ctx context.Context, name string) (BreakerSnapshot, error) {
	return loadSnapshot(ctx, s.rdb, s.key(name))
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func loadSnapshot(ctx context.Context, c redisGetter, key string) (BreakerSnapshot, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return BreakerSnapshot{}, nil
	}
	if err != nil {
		return BreakerSnapshot{}, err
	}
	var snap BreakerSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return BreakerSnapshot{}, fmt.Errorf("corrupt breaker state at %s: %w", key, err)
	}
	return snap, nil
}
