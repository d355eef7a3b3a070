package monitor

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"legal-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordCountsOutcomes(t *testing.T) {
	m := NewMetrics()
	ctx := context.Background()

	_ = m.Record(ctx, domain.StatsEvent{Endpoint: "consultation", Allowed: true})
	_ = m.Record(ctx, domain.StatsEvent{Endpoint: "consultation", Allowed: true})
	_ = m.Record(ctx, domain.StatsEvent{Endpoint: "consultation", Allowed: false})

	if got := testutil.ToFloat64(m.admissions.WithLabelValues("consultation", "allowed")); got != 2 {
		t.Fatalf("expected 2 allowed, got %v", got)
	}
	if got := testutil.ToFloat64(m.admissions.WithLabelValues("consultation", "denied")); got != 1 {
		t.Fatalf("expected 1 denied, got %v", got)
	}
}

func TestMetrics_HandlerExposesCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveConsultation("civil", "normal", "demo_mode", 10*time.Millisecond)
	m.ObserveFeedback(5)
	m.AdvisorFallback(nil)
	m.ObserveHTTP("/api/v1/health", "GET", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`legal_gateway_consultations_total{ai_model="demo_mode",category="civil",urgency="normal"} 1`,
		`legal_gateway_feedback_total{rating="5"} 1`,
		`legal_gateway_advisor_fallbacks_total 1`,
		`legal_gateway_http_requests_total{endpoint="/api/v1/health",method="GET",status="200"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected metrics output to contain %q", want)
		}
	}
}

func fixedReader(sys System, err error) SystemReader {
	return func(context.Context) (System, error) { return sys, err }
}

func TestHealth_Report(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sys := System{CPUPercent: 12.5, MemoryPercent: 40, MemoryAvailableMB: 2048, DiskPercent: 55, DiskFreeGB: 30}
	h := NewHealth(start, "demo", "demo_mode", WithSystemReader(fixedReader(sys, nil)))
	h.now = func() time.Time { return start.Add(90 * time.Minute) }

	r := h.Report(context.Background())
	if r.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %s", r.Status)
	}
	if r.System == nil || *r.System != sys {
		t.Fatalf("expected system section %+v, got %+v", sys, r.System)
	}
	if r.Uptime.Seconds != 5400 || r.Uptime.Hours != 1.5 {
		t.Fatalf("unexpected uptime: %+v", r.Uptime)
	}
	if r.AIMode != "demo" || r.AIModel != "demo_mode" {
		t.Fatalf("unexpected ai fields: %s/%s", r.AIMode, r.AIModel)
	}
	if r.Runtime.Goroutines < 1 {
		t.Fatalf("expected goroutines >= 1, got %d", r.Runtime.Goroutines)
	}
}

func TestHealth_SystemReadFailureIsError(t *testing.T) {
	h := NewHealth(time.Now(), "live", "gpt", WithSystemReader(fixedReader(System{}, errors.New("no /proc"))))

	r := h.Report(context.Background())
	if r.Status != StatusError || r.Error != "no /proc" || r.System != nil {
		t.Fatalf("expected error report, got %+v", r)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		cpu, mem float64
		want     string
	}{
		{0, 0, StatusHealthy},
		{79.9, 89.9, StatusHealthy},
		{80, 10, StatusWarning},
		{10, 90, StatusWarning},
		{95, 95, StatusWarning},
	}
	for _, c := range cases {
		if got := statusFor(System{CPUPercent: c.cpu, MemoryPercent: c.mem}); got != c.want {
			t.Fatalf("statusFor(cpu=%v, mem=%v): expected %s, got %s", c.cpu, c.mem, c.want, got)
		}
	}
}

func TestHostReader_ReadsMachine(t *testing.T) {
	sys, err := HostReader(t.TempDir())(context.Background())
	if err != nil {
		t.Skipf("host metrics unavailable: %v", err)
	}
	if sys.MemoryPercent <= 0 || sys.MemoryPercent > 100 {
		t.Fatalf("expected memory percent in (0,100], got %v", sys.MemoryPercent)
	}
	if sys.DiskPercent < 0 || sys.DiskPercent > 100 {
		t.Fatalf("expected disk percent in [0,100], got %v", sys.DiskPercent)
	}
}
