package application

import (
	"testing"
	"time"

	"legal-gateway/middleware/ratelimit/domain"
)

type fakeLimiter struct {
	dec     domain.Decision
	lastKey domain.Key
	lastAt  time.Time
}

func (f *fakeLimiter) Check(key domain.Key, now time.Time) domain.Decision {
	f.lastKey = key
	f.lastAt = now
	return f.dec
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestService_Decide_AllowsWhenNoLimiter(t *testing.T) {
	svc := Service{}
	dec := svc.Decide("k")
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
	if dec.RetryAfter != 0 {
		t.Fatalf("expected RetryAfter=0 when allowed, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_AllowsWhenLimiterAllows(t *testing.T) {
	lim := &fakeLimiter{dec: domain.Decision{Allowed: true, Remaining: 4}}
	svc := Service{Limiter: lim}
	dec := svc.Decide("k")
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
	if dec.Remaining != 4 {
		t.Fatalf("expected Remaining=4, got %d", dec.Remaining)
	}
}

func TestService_Decide_EmptyKeyBecomesUnknown(t *testing.T) {
	lim := &fakeLimiter{dec: domain.Decision{Allowed: true}}
	svc := Service{Limiter: lim}
	svc.Decide("")
	if lim.lastKey != domain.UnknownKey {
		t.Fatalf("expected key %q, got %q", domain.UnknownKey, lim.lastKey)
	}
}

func TestService_Decide_RetryAfterRoundsUpToSeconds(t *testing.T) {
	now := time.Unix(1_000, 0)
	lim := &fakeLimiter{dec: domain.Decision{Allowed: false, ResetAt: now.Add(54500 * time.Millisecond)}}
	svc := Service{Limiter: lim, Now: fixedClock(now)}

	dec := svc.Decide("k")
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 55*time.Second {
		t.Fatalf("expected RetryAfter=55s, got %s", dec.RetryAfter)
	}
	if !lim.lastAt.Equal(now) {
		t.Fatalf("expected limiter to receive injected clock time")
	}
}

func TestService_Decide_RetryAfterHasFloor(t *testing.T) {
	now := time.Unix(1_000, 0)
	lim := &fakeLimiter{dec: domain.Decision{Allowed: false, ResetAt: now}}
	svc := Service{Limiter: lim, Now: fixedClock(now), MinRetryAfter: 2 * time.Second}

	dec := svc.Decide("k")
	if dec.RetryAfter != 2*time.Second {
		t.Fatalf("expected RetryAfter=2s, got %s", dec.RetryAfter)
	}
}
