package monitor

import (
	"context"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	StatusHealthy = "healthy"
	StatusWarning = "warning"
	StatusError   = "error"
)

type Uptime struct {
	Seconds float64   `json:"seconds"`
	Hours   float64   `json:"hours"`
	Started time.Time `json:"started_at"`
}

// Runtime são os números do processo Go.
type Runtime struct {
	HeapAllocBytes uint64  `json:"heap_alloc_bytes"`
	HeapSysBytes   uint64  `json:"heap_sys_bytes"`
	HeapUsedPct    float64 `json:"heap_used_percent"`
	NumGC          uint32  `json:"num_gc"`
	Goroutines     int     `json:"goroutines"`
	GoVersion      string  `json:"go_version"`
}

type Report struct {
	Status  string  `json:"status"`
	Error   string  `json:"error,omitempty"`
	System  *System `json:"system,omitempty"`
	Uptime  Uptime  `json:"uptime"`
	Runtime Runtime `json:"runtime"`
	AIMode  string  `json:"ai_mode"`
	AIModel string  `json:"ai_model"`
}

// Health monta o relatório de /api/v1/health.
type Health struct {
	started    time.Time
	aiMode     string
	aiModel    string
	readSystem SystemReader
	now        func() time.Time
}

type HealthOption func(*Health)

// WithSystemReader troca a leitura de CPU/memória/disco.
func WithSystemReader(p SystemReader) HealthOption {
	return func(h *Health) {
		if p != nil {
			h.readSystem = p
		}
	}
}

func NewHealth(started time.Time, aiMode, aiModel string, opts ...HealthOption) *Health {
	h := &Health{
		started:    started,
		aiMode:     aiMode,
		aiModel:    aiModel,
		readSystem: HostReader("/"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Report é healthy com CPU < 80% e memória < 90%, warning caso contrário e
// error se os recursos da máquina não puderem ser lidos.
func (h *Health) Report(ctx context.Context) Report {
	up := h.now().Sub(h.started)
	if up < 0 {
		up = 0
	}
	r := Report{
		Uptime: Uptime{
			Seconds: up.Seconds(),
			Hours:   up.Hours(),
			Started: h.started.UTC(),
		},
		Runtime: readRuntime(),
		AIMode:  h.aiMode,
		AIModel: h.aiModel,
	}

	sys, err := h.readSystem(ctx)
	if err != nil {
		log.WithError(err).Warn("health: reading system resources failed")
		r.Status = StatusError
		r.Error = err.Error()
		return r
	}
	r.System = &sys
	r.Status = statusFor(sys)
	return r
}

func readRuntime() Runtime {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	var pct float64
	if ms.HeapSys > 0 {
		pct = float64(ms.HeapAlloc) / float64(ms.HeapSys) * 100
	}
	return Runtime{
		HeapAllocBytes: ms.HeapAlloc,
		HeapSysBytes:   ms.HeapSys,
		HeapUsedPct:    pct,
		NumGC:          ms.NumGC,
		Goroutines:     runtime.NumGoroutine(),
		GoVersion:      runtime.Version(),
	}
}
