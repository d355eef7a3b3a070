package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"legal-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava as decisões de admissão em hashes do Redis, para que
// várias réplicas somem contadores num mesmo lugar. Só estatística: a decisão
// continua local (SlidingWindow).
type RedisStatsStore struct {
	rdb redis.UniversalClient

	prefix string
	// ttl aplica apenas em chaves de série temporal / por key.
	// total e endpoint são cumulativos e não expiram.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackKeys bool

	// timeout limita cada ida ao Redis; a chamada está no caminho da request.
	timeout time.Duration
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func WithStatsTimeout(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.timeout = d }
}

func NewRedisStatsStore(rdb redis.UniversalClient, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:     rdb,
		prefix:  "legal:admission",
		ttl:     24 * time.Hour,
		bucket:  "minute",
		timeout: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) totalKey() string    { return s.prefix + ":total" }
func (s *RedisStatsStore) endpointKey() string { return s.prefix + ":endpoint" }

func (s *RedisStatsStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.totalKey(), field, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if endpoint := strings.TrimSpace(ev.Endpoint); endpoint != "" {
		pipe.HIncrBy(ctx, s.endpointKey(), endpoint+":"+field, 1)
	}

	if s.trackKeys {
		k := strings.TrimSpace(string(ev.Key))
		if k != "" {
			keyKey := s.prefix + ":key:" + k
			pipe.HIncrBy(ctx, keyKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, keyKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Snapshot lê os contadores cumulativos (total e por endpoint).
func (s *RedisStatsStore) Snapshot(ctx context.Context) (StatsSnapshot, error) {
	out := StatsSnapshot{ByEndpoint: map[string]Counters{}}
	if s == nil || s.rdb == nil {
		return out, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pipe := s.rdb.Pipeline()
	totalCmd := pipe.HGetAll(ctx, s.totalKey())
	endpointCmd := pipe.HGetAll(ctx, s.endpointKey())
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return out, fmt.Errorf("redis stats snapshot: %w", err)
	}

	total := totalCmd.Val()
	out.Total = Counters{Allowed: parseCount(total["allowed"]), Denied: parseCount(total["denied"])}

	for field, raw := range endpointCmd.Val() {
		idx := strings.LastIndex(field, ":")
		if idx <= 0 {
			continue
		}
		name, kind := field[:idx], field[idx+1:]
		c := out.ByEndpoint[name]
		switch kind {
		case "allowed":
			c.Allowed = parseCount(raw)
		case "denied":
			c.Denied = parseCount(raw)
		default:
			continue
		}
		out.ByEndpoint[name] = c
	}
	return out, nil
}

func parseCount(raw string) int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
