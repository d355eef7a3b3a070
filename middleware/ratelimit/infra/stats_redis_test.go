package infra

import (
	"context"
	"net"
	"testing"
	"time"

	"legal-gateway/middleware/ratelimit/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisStatsStore_NilClientIsNoop(t *testing.T) {
	s := NewRedisStatsStore(nil, WithStatsPrefix(":custom:"), WithStatsTTL(time.Hour), WithStatsBucket(" NONE "))

	if s.prefix != "custom" {
		t.Fatalf("expected trimmed prefix, got %q", s.prefix)
	}
	if s.bucket != "none" {
		t.Fatalf("expected normalized bucket, got %q", s.bucket)
	}
	if err := s.Record(context.Background(), domain.StatsEvent{Endpoint: "feedback", Allowed: true}); err != nil {
		t.Fatalf("expected no error without client, got %v", err)
	}
	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("expected no error without client, got %v", err)
	}
	if snap.Total.Allowed != 0 || len(snap.ByEndpoint) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestRedisStatsStore_RecordThenSnapshot(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsPrefix("test"), WithStatsTTL(time.Hour), WithStatsTrackKeys(true))
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)

	events := []domain.StatsEvent{
		{Endpoint: "legal-consultation", Key: "1.2.3.4", Allowed: true, At: at},
		{Endpoint: "legal-consultation", Key: "1.2.3.4", Allowed: true, At: at},
		{Endpoint: "legal-consultation", Key: "1.2.3.4", Allowed: false, At: at},
		{Endpoint: "feedback", Key: "5.6.7.8", Allowed: true, At: at},
	}
	for _, ev := range events {
		if err := s.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Total.Allowed != 3 || snap.Total.Denied != 1 {
		t.Fatalf("expected total 3/1, got %+v", snap.Total)
	}
	if got := snap.ByEndpoint["legal-consultation"]; got.Allowed != 2 || got.Denied != 1 {
		t.Fatalf("expected consultation 2/1, got %+v", got)
	}
	if got := snap.ByEndpoint["feedback"]; got.Allowed != 1 || got.Denied != 0 {
		t.Fatalf("expected feedback 1/0, got %+v", got)
	}

	bucket := "test:minute:202403011015"
	if got := mr.HGet(bucket, "allowed"); got != "3" {
		t.Fatalf("expected minute bucket allowed=3, got %q", got)
	}
	if ttl := mr.TTL(bucket); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected bucket ttl within 1h, got %s", ttl)
	}
	if got := mr.HGet("test:key:1.2.3.4", "denied"); got != "1" {
		t.Fatalf("expected per-key denied=1, got %q", got)
	}
	if mr.TTL("test:total") != 0 {
		t.Fatalf("expected cumulative total without ttl")
	}
}

func TestRedisStatsStore_NoBucketNoKeys(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsPrefix("nb"), WithStatsBucket("none"))

	if err := s.Record(context.Background(), domain.StatsEvent{Endpoint: "feedback", Key: "1.1.1.1", Allowed: true}); err != nil {
		t.Fatalf("record: %v", err)
	}
	for _, k := range mr.Keys() {
		if k != "nb:total" && k != "nb:endpoint" {
			t.Fatalf("unexpected key %q", k)
		}
	}
}

func TestRedisStatsStore_RecordIsBoundedByTimeout(t *testing.T) {
	// aceita conexões mas nunca responde
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	conns := make(chan net.Conn, 16)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- c
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		for {
			select {
			case c := <-conns:
				_ = c.Close()
			default:
				return
			}
		}
	})

	rdb := redis.NewClient(&redis.Options{
		Addr:                  ln.Addr().String(),
		ContextTimeoutEnabled: true,
		MaxRetries:            -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStatsStore(rdb, WithStatsTimeout(100*time.Millisecond))
	start := time.Now()
	err = s.Record(context.Background(), domain.StatsEvent{Endpoint: "feedback", Allowed: true})
	if err == nil {
		t.Fatal("expected error from unresponsive redis")
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Fatalf("expected record to give up quickly, took %s", took)
	}
}

func TestParseCount(t *testing.T) {
	if parseCount("42") != 42 {
		t.Fatalf("expected 42")
	}
	if parseCount("x") != 0 {
		t.Fatalf("expected 0 for invalid input")
	}
}
