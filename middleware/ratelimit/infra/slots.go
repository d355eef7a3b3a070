package infra

import (
	"context"

	"legal-gateway/middleware/ratelimit/domain"
)

// SlotPool é um semáforo baseado em channel.
type SlotPool struct {
	sem chan struct{}
}

var _ domain.SlotPool = (*SlotPool)(nil)

// NewSlotPool cria um pool com capacidade `size`.
func NewSlotPool(size int) *SlotPool {
	if size < 1 {
		size = 1
	}
	return &SlotPool{sem: make(chan struct{}, size)}
}

func (p *SlotPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

// InUse retorna quantas vagas estão ocupadas agora.
func (p *SlotPool) InUse() int { return len(p.sem) }

func (p *SlotPool) Cap() int { return cap(p.sem) }
