package resilience

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript атомарно исполняет цикл окна на стороне Redis: чистка,
// проверка лимита, проверка cooldown, запись метки. Метки хранятся в ZSET
// со score в миллисекундах.
//
// Возврат: {1, remaining} при допуске; {0, 1, oldest_ms} при переполнении
// окна; {0, 2, newest_ms} при нарушении cooldown.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local cooldown = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count >= max then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  return {0, 1, tonumber(oldest[2])}
end

if cooldown > 0 and count > 0 then
  local newest = redis.call('ZRANGE', key, -1, -1, 'WITHSCORES')
  if now - tonumber(newest[2]) < cooldown then
    return {0, 2, tonumber(newest[2])}
  end
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return {1, max - count - 1}
`)

// RedisWindowStore — общее скользящее окно для всех экземпляров сервиса.
type RedisWindowStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisWindowOption func(*RedisWindowStore)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisWindowStore(rdb *redis.Client, opts ...RedisWindowOption) *RedisWindowStore {
	s := &RedisWindowStore{rdb: rdb, prefix: "ratelimit"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisWindowStore) Take(ctx context.Context, key string, now time.Time, settings LimitSettings) (Decision, error) {
	nowMS := now.UnixMilli()
	member := fmt.Sprintf("%d-%d", nowMS, now.UnixNano()%1000)

	raw, err := takeScript.Run(ctx, s.rdb,
		[]string{s.prefix + ":" + key},
		nowMS,
		settings.Window.Milliseconds(),
		settings.MaxRequests,
		settings.Cooldown.Milliseconds(),
		member,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit take %s: %w", key, err)
	}
	if len(raw) < 2 {
		return Decision{}, fmt.Errorf("ratelimit take %s: unexpected script reply %v", key, raw)
	}

	if raw[0] == 1 {
		return Decision{Allowed: true, Remaining: int(raw[1])}, nil
	}
	if len(raw) < 3 {
		return Decision{}, fmt.Errorf("ratelimit take %s: unexpected script reply %v", key, raw)
	}

	ts := time.UnixMilli(raw[2])
	var retryAfter time.Duration
	if raw[1] == 1 {
		retryAfter = ts.Add(settings.Window).Sub(now)
	} else {
		retryAfter = ts.Add(settings.Cooldown).Sub(now)
	}
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}
