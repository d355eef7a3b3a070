package domain

import (
	"context"
	"time"
)

// StatsEvent representa um evento de decisão da admissão.
//
// Endpoint é o nome da política (ex.: "legal-consultation"), não a URL.
// Cuidado com cardinalidade ao persistir Key.
type StatsEvent struct {
	Endpoint string
	Key      Key
	Allowed  bool

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de admissão.
//
// O middleware trata erro como best-effort (não derruba a request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
