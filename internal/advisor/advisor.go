// Package advisor produz a análise jurídica de uma pergunta.
//
// Há duas estratégias: a chamada a um provedor compatível com a API de chat da
// OpenAI e a resposta fixa de demonstração. Select escolhe uma vez, no
// startup; a estratégia ao vivo é embrulhada em Fallback, que devolve a
// resposta de demonstração quando o provedor falha.
package advisor

import (
	"context"
	"errors"
)

const (
	ModeLive = "live"
	ModeDemo = "demo"
)

var (
	// ErrUpstream cobre falhas do provedor (rede, status, timeout, throttle).
	ErrUpstream = errors.New("advisor: upstream failed")
	// ErrEmptyAnswer indica resposta sem conteúdo utilizável.
	ErrEmptyAnswer = errors.New("advisor: empty answer")
)

type Question struct {
	Query    string
	Category string
	Urgency  string
}

type Answer struct {
	Text  string
	Model string
	// Fallback é true quando a resposta veio da demonstração após falha do provedor.
	Fallback bool
}

type Advisor interface {
	Advise(ctx context.Context, q Question) (Answer, error)
	Mode() string
	Model() string
}
