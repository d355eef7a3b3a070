package application

import (
	"time"

	"legal-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação da admissão.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Limiter domain.Limiter
	// Now permite relógio falso nos testes. Default: time.Now.
	Now func() time.Time
	// MinRetryAfter é o piso do Retry-After quando bloqueado. Default: 1s.
	MinRetryAfter time.Duration
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Limiter == nil {
		return domain.Decision{Allowed: true, Remaining: -1}
	}
	if s.MinRetryAfter <= 0 {
		s.MinRetryAfter = 1 * time.Second
	}
	if key == "" {
		key = domain.UnknownKey
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	dec := s.Limiter.Check(key, now)
	if dec.Allowed {
		dec.RetryAfter = 0
		return dec
	}

	// arredonda para cima: Retry-After é em segundos inteiros
	wait := dec.ResetAt.Sub(now)
	if rem := wait % time.Second; rem > 0 {
		wait += time.Second - rem
	}
	if wait < s.MinRetryAfter {
		wait = s.MinRetryAfter
	}
	dec.RetryAfter = wait
	return dec
}
