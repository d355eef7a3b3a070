package application

import (
	"context"
	"errors"
	"time"

	"legal-gateway/middleware/ratelimit/domain"
)

// ErrNoSlot indica que nenhuma vaga foi obtida antes do timeout/cancelamento.
var ErrNoSlot = errors.New("concurrency: no slot available")

// ConcurrencyService adquire e libera vagas com timeout, sem saber nada de
// HTTP. Guarda o teto de requests em voo da API e o número de chamadas
// simultâneas ao provedor de IA (advisor.OpenAI).
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
// - Se `AcquireTimeout <= 0`, espera indefinidamente (até ctx cancelar).
// - Se `AcquireTimeout > 0`, espera até o timeout.
// Retorna (release, ok). Se ok=false, nenhuma vaga foi adquirida.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	if s.AcquireTimeout <= 0 {
		return s.Pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, s.AcquireTimeout)
	defer cancel()
	return s.Pool.Acquire(acqCtx)
}

// Do executa fn segurando uma vaga. Retorna ErrNoSlot sem chamar fn se não
// conseguir; o advisor traduz isso em ErrUpstream e cai na demonstração.
func (s ConcurrencyService) Do(ctx context.Context, fn func(context.Context) error) error {
	release, ok := s.Acquire(ctx)
	if !ok {
		return ErrNoSlot
	}
	defer release()
	return fn(ctx)
}
