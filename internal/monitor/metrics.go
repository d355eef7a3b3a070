// Package monitor expõe métricas Prometheus e o relatório de saúde do processo.
package monitor

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"legal-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "legal_gateway"

// Metrics mantém um registry próprio; várias instâncias convivem nos testes.
type Metrics struct {
	reg *prometheus.Registry

	consultations    *prometheus.CounterVec
	feedback         *prometheus.CounterVec
	admissions       *prometheus.CounterVec
	advisorFallbacks prometheus.Counter
	advisorSeconds   *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

var _ domain.StatsStore = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		consultations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consultations_total",
			Help:      "Consultations answered and persisted",
		}, []string{"category", "urgency", "ai_model"}),
		feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Feedback entries accepted, by rating",
		}, []string{"rating"}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_decisions_total",
			Help:      "Rate limiter decisions per endpoint",
		}, []string{"endpoint", "outcome"}),
		advisorFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisor_fallbacks_total",
			Help:      "Times the demo response replaced a failed provider call",
		}),
		advisorSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advisor_duration_seconds",
			Help:      "Time spent producing the legal analysis",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"ai_model"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"endpoint", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint", "method"}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.consultations,
		m.feedback,
		m.admissions,
		m.advisorFallbacks,
		m.advisorSeconds,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Record implementa domain.StatsStore para o middleware de admissão.
func (m *Metrics) Record(_ context.Context, ev domain.StatsEvent) error {
	outcome := "allowed"
	if !ev.Allowed {
		outcome = "denied"
	}
	m.admissions.WithLabelValues(ev.Endpoint, outcome).Inc()
	return nil
}

func (m *Metrics) ObserveConsultation(category, urgency, model string, took time.Duration) {
	m.consultations.WithLabelValues(category, urgency, model).Inc()
	m.advisorSeconds.WithLabelValues(model).Observe(took.Seconds())
}

func (m *Metrics) ObserveFeedback(rating int) {
	m.feedback.WithLabelValues(strconv.Itoa(rating)).Inc()
}

// AdvisorFallback tem a assinatura de advisor.Fallback.OnFallback.
func (m *Metrics) AdvisorFallback(error) {
	m.advisorFallbacks.Inc()
}

func (m *Metrics) ObserveHTTP(endpoint, method string, status int, took time.Duration) {
	m.httpRequests.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(endpoint, method).Observe(took.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
