package ratelimit

import (
	"net/http"
	"time"

	"legal-gateway/middleware/ratelimit/application"
	"legal-gateway/middleware/ratelimit/infra"
)

// ConcurrencyOptions configura o teto de requests em voo da API jurídica.
// Consultas seguram a vaga durante toda a chamada ao provedor, então o teto
// também limita quantas análises são geradas ao mesmo tempo.
type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// Pool, se definido, substitui o pool criado a partir de Max. Permite que
	// o health leia a ocupação do mesmo pool.
	Pool *infra.SlotPool
	// OnReject, se definido, escreve a resposta quando não há vaga.
	OnReject func(w http.ResponseWriter, r *http.Request)
}

// ConcurrencyMiddleware responde 503 (ou RejectStatus) quando nenhuma vaga
// abre dentro de AcquireTimeout. Max <= 0 sem Pool desliga o teto.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil && opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.Pool == nil {
		opts.Pool = infra.NewSlotPool(opts.Max)
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.OnReject == nil {
		opts.OnReject = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
		}
	}

	svc := application.ConcurrencyService{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				opts.OnReject(w, r)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
