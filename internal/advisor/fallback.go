package advisor

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Fallback tenta Primary; em erro ou resposta vazia usa Backup.
type Fallback struct {
	Primary Advisor
	Backup  Advisor
	// OnFallback é chamado a cada substituição (métricas).
	OnFallback func(err error)
}

func (f Fallback) Mode() string  { return f.Primary.Mode() }
func (f Fallback) Model() string { return f.Primary.Model() }

func (f Fallback) Advise(ctx context.Context, q Question) (Answer, error) {
	ans, err := f.Primary.Advise(ctx, q)
	if err == nil && strings.TrimSpace(ans.Text) != "" {
		return ans, nil
	}
	if err == nil {
		err = ErrEmptyAnswer
	}

	log.WithError(err).WithFields(log.Fields{
		"model":    f.Primary.Model(),
		"category": q.Category,
	}).Error("advisor: provider failed, serving demo response")
	if f.OnFallback != nil {
		f.OnFallback(err)
	}

	// o ctx da request pode já ter expirado; a demonstração não depende dele
	ans, errBackup := f.Backup.Advise(context.WithoutCancel(ctx), q)
	if errBackup != nil {
		return Answer{}, errBackup
	}
	ans.Fallback = true
	return ans, nil
}

// Select resolve a estratégia uma única vez: sem chave de API, só demonstração.
func Select(cfg Config, onFallback func(error), opts ...OpenAIOption) Advisor {
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn("advisor: OPENAI_API_KEY not set, running in demo mode")
		return Demo{}
	}
	return Fallback{
		Primary:    NewOpenAI(cfg, opts...),
		Backup:     Demo{},
		OnFallback: onFallback,
	}
}
