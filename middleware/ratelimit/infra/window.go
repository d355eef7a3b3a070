package infra

import (
	"sync"
	"time"

	"legal-gateway/middleware/ratelimit/domain"
)

// SlidingWindow é um limiter de janela deslizante (log de timestamps) por chave.
//
// Cada chave guarda os instantes das requisições admitidas, em ordem. A poda é
// preguiçosa (a cada Check); chaves sem timestamps vivos são removidas pelo Sweep.
type SlidingWindow struct {
	mu         sync.Mutex
	windows    map[domain.Key][]time.Time
	policy     domain.Policy
	sweepEvery time.Duration
	nowFn      func() time.Time
}

type WindowOption func(*SlidingWindow)

func WithSweepEvery(d time.Duration) WindowOption {
	return func(s *SlidingWindow) { s.sweepEvery = d }
}

// WithClock troca o relógio usado por IsAllowed e pelo janitor.
func WithClock(now func() time.Time) WindowOption {
	return func(s *SlidingWindow) {
		if now != nil {
			s.nowFn = now
		}
	}
}

func NewSlidingWindow(policy domain.Policy, opts ...WindowOption) *SlidingWindow {
	if policy.MaxRequests < 0 {
		policy.MaxRequests = 0
	}
	s := &SlidingWindow{
		windows:    make(map[domain.Key][]time.Time),
		policy:     policy,
		sweepEvery: 5 * time.Minute,
		nowFn:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SlidingWindow) Policy() domain.Policy       { return s.policy }
func (s *SlidingWindow) SweepEvery() time.Duration { return s.sweepEvery }

// Check implementa domain.Limiter.
func (s *SlidingWindow) Check(key domain.Key, now time.Time) domain.Decision {
	if key == "" {
		key = domain.UnknownKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.prune(key, now)

	if len(live) < s.policy.MaxRequests {
		// mantém a sequência não-decrescente mesmo com relógio voltando
		if n := len(live); n > 0 && now.Before(live[n-1]) {
			now = live[n-1]
		}
		live = append(live, now)
		s.windows[key] = live
		return domain.Decision{
			Allowed:   true,
			Remaining: s.policy.MaxRequests - len(live),
			ResetAt:   live[0].Add(s.policy.Window),
		}
	}

	reset := now.Add(s.policy.Window)
	if len(live) > 0 {
		reset = live[0].Add(s.policy.Window)
	}
	return domain.Decision{Allowed: false, Remaining: 0, ResetAt: reset}
}

// Allow registra e admite se houver espaço na janela em now.
func (s *SlidingWindow) Allow(key domain.Key, now time.Time) bool {
	return s.Check(key, now).Allowed
}

// IsAllowed é Allow no relógio do limiter.
func (s *SlidingWindow) IsAllowed(key domain.Key) bool {
	return s.Allow(key, s.nowFn())
}

// ResetTime retorna quando o timestamp vivo mais antigo sai da janela.
// Retorna o tempo zero se a chave não tem nada registrado.
func (s *SlidingWindow) ResetTime(key domain.Key, now time.Time) time.Time {
	if key == "" {
		key = domain.UnknownKey
	}
	cutoff := now.Add(-s.policy.Window)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ts := range s.windows[key] {
		if ts.After(cutoff) {
			return ts.Add(s.policy.Window)
		}
	}
	return time.Time{}
}

// Count retorna quantos timestamps vivos a chave tem em now.
func (s *SlidingWindow) Count(key domain.Key, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prune(key, now))
}

// Len retorna quantas chaves estão em memória.
func (s *SlidingWindow) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// prune descarta timestamps <= now-window. Chamar com mu travado.
func (s *SlidingWindow) prune(key domain.Key, now time.Time) []time.Time {
	ts := s.windows[key]
	if len(ts) == 0 {
		return ts
	}
	cutoff := now.Add(-s.policy.Window)
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	live := append(ts[:0:0], ts[i:]...)
	s.windows[key] = live
	return live
}

// Sweep remove chaves sem timestamps vivos em now.
func (s *SlidingWindow) Sweep(now time.Time) int {
	cutoff := now.Add(-s.policy.Window)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, ts := range s.windows {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(s.windows, k)
			removed++
		}
	}
	return removed
}

// StartJanitor inicia uma goroutine que varre chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *SlidingWindow) StartJanitor(ctx DoneContext) {
	if s.sweepEvery <= 0 {
		return
	}

	t := time.NewTicker(s.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep(s.nowFn())
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
// (Permite reuso em libs sem acoplar.)
type DoneContext interface {
	Done() <-chan struct{}
}
