package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"legal-gateway/middleware/ratelimit/application"
	"legal-gateway/middleware/ratelimit/domain"

	log "github.com/sirupsen/logrus"
)

type KeyFunc func(r *http.Request) string

// RejectFunc escreve a resposta de bloqueio. Headers de rate limit já foram setados.
type RejectFunc func(w http.ResponseWriter, r *http.Request, dec domain.Decision)

// Options configura a admissão de UM endpoint. Cada endpoint deve receber seu
// próprio Limiter: políticas não são compartilhadas implicitamente.
type Options struct {
	// Name identifica o endpoint nas estatísticas e nos logs.
	Name                string
	Limiter             domain.Limiter
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	OnReject            RejectFunc
	RejectStatus        int
	MinRetryAfter       time.Duration
	AddRateLimitHeaders bool
	Now                 func() time.Time
}

type policyInfo interface {
	Policy() domain.Policy
}

type ctxKey struct{}

// ClientKeyFromContext devolve a chave resolvida pelo middleware para esta request.
func ClientKeyFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)
	return v, ok
}

// ClientIP resolve o identificador do cliente: primeiro valor do X-Forwarded-For,
// depois X-Real-IP, depois o host do RemoteAddr e, por fim, "unknown".
func ClientIP(r *http.Request) string {
	// pega o primeiro IP do X-Forwarded-For (cliente original)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	// fallback: RemoteAddr
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return string(domain.UnknownKey)
}

func DefaultKeyFunc() KeyFunc {
	return ClientIP
}

func defaultReject(status int) RejectFunc {
	return func(w http.ResponseWriter, _ *http.Request, _ domain.Decision) {
		http.Error(w, http.StatusText(status), status)
	}
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc()
	}
	if opts.OnReject == nil {
		opts.OnReject = defaultReject(opts.RejectStatus)
	}

	clock := opts.Now
	if clock == nil {
		clock = time.Now
	}

	svc := application.Service{
		Limiter:       opts.Limiter,
		Now:           clock,
		MinRetryAfter: opts.MinRetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			if key == "" {
				key = string(domain.UnknownKey)
			}

			dec := svc.Decide(domain.Key(key))

			if opts.AddRateLimitHeaders {
				if pi, ok := opts.Limiter.(policyInfo); ok {
					w.Header().Set("X-RateLimit-Limit", formatInt(pi.Policy().MaxRequests))
				}
				if dec.Remaining >= 0 {
					w.Header().Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
				}
				if !dec.ResetAt.IsZero() {
					w.Header().Set("X-RateLimit-Reset", formatInt64(dec.ResetAt.Unix()))
				}
			}

			if opts.Stats != nil {
				if err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Endpoint: opts.Name,
					Key:      domain.Key(key),
					Allowed:  dec.Allowed,
					Method:   r.Method,
					Path:     r.URL.Path,
					At:       clock(),
				}); err != nil {
					log.WithError(err).WithField("endpoint", opts.Name).Debug("admission stats: record failed")
				}
			}

			if !dec.Allowed {
				log.WithFields(log.Fields{
					"endpoint": opts.Name,
					"client":   key,
					"reset_at": dec.ResetAt.UTC().Format(time.RFC3339),
				}).Info("admission rejected")
				w.Header().Set("Retry-After", formatRetryAfter(dec.RetryAfter))
				opts.OnReject(w, r, dec)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
