// Package api é o adaptador HTTP: rotas, DTOs, admissão por endpoint e
// respostas JSON. Todas as dependências chegam prontas por Deps.
package api

import (
	"context"
	"net/http"
	"time"

	"legal-gateway/internal/advisor"
	"legal-gateway/internal/consultation"
	"legal-gateway/internal/feedback"
	"legal-gateway/internal/monitor"
	"legal-gateway/middleware/ratelimit"
	"legal-gateway/middleware/ratelimit/domain"
	"legal-gateway/middleware/ratelimit/infra"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
)

const (
	endpointConsultation = "legal-consultation"
	endpointFeedback     = "feedback"
)

type Deps struct {
	Consultations *consultation.Store
	Feedback      *feedback.Store
	Advisor       advisor.Advisor
	Metrics       *monitor.Metrics
	Health        *monitor.Health

	// Um limiter por endpoint; nil desliga a admissão daquele endpoint.
	ConsultationLimiter domain.Limiter
	FeedbackLimiter     domain.Limiter
	// SharedStats recebe as decisões além do contador em memória e é lido em
	// /api/v1/statistics (RedisStatsStore com RATE_STATS_ENABLED).
	SharedStats SharedStats
}

// SharedStats é um contador de admissão compartilhado entre réplicas.
type SharedStats interface {
	domain.StatsStore
	Snapshot(ctx context.Context) (infra.StatsSnapshot, error)
}

type Options struct {
	AddRateLimitHeaders bool
	ConcurrencyMax      int
	ConcurrencyTimeout  time.Duration
	CORSOrigins         []string
	// TrackKeys liga os contadores por IP no snapshot em memória.
	TrackKeys bool
	Now       func() time.Time
}

type Server struct {
	deps      Deps
	opts      Options
	admission *infra.MemoryStatsStore
	slots     *infra.SlotPool
	validate  *validator.Validate
	now       func() time.Time
}

func NewServer(deps Deps, opts Options) *Server {
	if deps.Metrics == nil {
		deps.Metrics = monitor.NewMetrics()
	}
	if deps.Advisor == nil {
		deps.Advisor = advisor.Demo{}
	}
	if deps.Health == nil {
		deps.Health = monitor.NewHealth(time.Now(), deps.Advisor.Mode(), deps.Advisor.Model())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		deps:      deps,
		opts:      opts,
		admission: infra.NewMemoryStatsStore(infra.WithTrackKeys(opts.TrackKeys)),
		validate:  newValidator(),
		now:       now,
	}
	if opts.ConcurrencyMax > 0 {
		s.slots = infra.NewSlotPool(opts.ConcurrencyMax)
	}
	return s
}

// Handler monta a cadeia completa: log de acesso, recover, CORS, teto de
// concorrência e o mux com a admissão de cada endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/v1/legal-consultation",
		s.admit(endpointConsultation, s.deps.ConsultationLimiter)(http.HandlerFunc(s.handleConsultation)))
	mux.Handle("POST /api/v1/feedback",
		s.admit(endpointFeedback, s.deps.FeedbackLimiter)(http.HandlerFunc(s.handleFeedback)))
	mux.HandleFunc("GET /api/v1/statistics", s.handleStatistics)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/categories", s.handleCategories)
	mux.Handle("GET /metrics", s.deps.Metrics.Handler())

	h := http.Handler(mux)
	if s.slots != nil {
		h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
			Pool:           s.slots,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: s.opts.ConcurrencyTimeout,
			OnReject: func(w http.ResponseWriter, _ *http.Request) {
				s.writeError(w, http.StatusServiceUnavailable, "Server busy, try again shortly")
			},
		})(h)
	}
	h = s.cors().Handler(h)
	h = s.recoverer(h)
	h = s.accessLog(h)
	return h
}

func (s *Server) admit(name string, limiter domain.Limiter) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	stats := infra.MultiStats{s.admission, s.deps.Metrics}
	if s.deps.SharedStats != nil {
		stats = append(stats, s.deps.SharedStats)
	}
	return ratelimit.Middleware(ratelimit.Options{
		Name:                name,
		Limiter:             limiter,
		Stats:               stats,
		OnReject:            s.rejectRateLimited,
		AddRateLimitHeaders: s.opts.AddRateLimitHeaders,
		Now:                 s.now,
	})
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, _ *http.Request, dec domain.Decision) {
	var reset int64
	if !dec.ResetAt.IsZero() {
		reset = dec.ResetAt.Unix()
	}
	writeJSON(w, http.StatusTooManyRequests, rateLimitResponse{
		Status:    statusError,
		Message:   "Rate limit exceeded",
		ResetTime: reset,
		Timestamp: stamp(s.now()),
	})
}

func (s *Server) cors() *cors.Cors {
	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders: []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         600,
	})
}
