package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"legal-gateway/internal/advisor"
	"legal-gateway/internal/api"
	"legal-gateway/internal/config"
	"legal-gateway/internal/consultation"
	"legal-gateway/internal/feedback"
	"legal-gateway/internal/monitor"
	"legal-gateway/middleware/ratelimit/domain"
	"legal-gateway/middleware/ratelimit/infra"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	setupLogging(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	consultations := consultation.Open(cfg.ConsultationsFile)
	feedbackStore := feedback.Open(cfg.FeedbackFile)
	metrics := monitor.NewMetrics()

	adv := advisor.Select(advisor.Config{
		APIKey:        cfg.AI.APIKey,
		BaseURL:       cfg.AI.BaseURL,
		Model:         cfg.AI.Model,
		Timeout:       cfg.AI.Timeout,
		RPS:           cfg.AI.RPS,
		Burst:         cfg.AI.Burst,
		MaxConcurrent: cfg.AI.MaxConcurrent,
		MaxTokens:     cfg.AI.MaxTokens,
		Temperature:   cfg.AI.Temperature,
	}, metrics.AdvisorFallback)

	consultationLimiter := infra.NewSlidingWindow(
		domain.Policy{MaxRequests: cfg.ConsultationRate.Max, Window: cfg.ConsultationRate.Window},
		infra.WithSweepEvery(cfg.WindowSweepEvery),
	)
	feedbackLimiter := infra.NewSlidingWindow(
		domain.Policy{MaxRequests: cfg.FeedbackRate.Max, Window: cfg.FeedbackRate.Window},
		infra.WithSweepEvery(cfg.WindowSweepEvery),
	)
	consultationLimiter.StartJanitor(ctx)
	feedbackLimiter.StartJanitor(ctx)

	var sharedStats api.SharedStats
	if cfg.RateStats.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RateStats.RedisAddr,
			Password: cfg.RateStats.RedisPassword,
			DB:       cfg.RateStats.RedisDB,
			// o deadline do ctx (RATE_STATS_TIMEOUT) vale também para leitura/escrita
			ContextTimeoutEnabled: true,
			DialTimeout:           cfg.RateStats.Timeout,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			log.Fatalf("redis stats ping error: %v", err)
		}

		sharedStats = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.RateStats.Prefix),
			infra.WithStatsTTL(cfg.RateStats.TTL),
			infra.WithStatsBucket(cfg.RateStats.Bucket),
			infra.WithStatsTrackKeys(cfg.RateStats.TrackKeys),
			infra.WithStatsTimeout(cfg.RateStats.Timeout),
		)
	}

	server := api.NewServer(api.Deps{
		Consultations:       consultations,
		Feedback:            feedbackStore,
		Advisor:             adv,
		Metrics:             metrics,
		Health: monitor.NewHealth(time.Now(), adv.Mode(), adv.Model(),
			monitor.WithSystemReader(monitor.HostReader(filepath.Dir(cfg.ConsultationsFile)))),
		ConsultationLimiter: consultationLimiter,
		FeedbackLimiter:     feedbackLimiter,
		SharedStats:         sharedStats,
	}, api.Options{
		AddRateLimitHeaders: cfg.AddRateLimitHeaders,
		ConcurrencyMax:      cfg.ConcurrencyMax,
		ConcurrencyTimeout:  cfg.ConcurrencyTimeout,
		CORSOrigins:         cfg.CORSOrigins,
		TrackKeys:           cfg.RateStats.TrackKeys,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// a chamada ao provedor pode levar até AI_TIMEOUT
		WriteTimeout: cfg.AI.Timeout + 15*time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("legal gateway listening on %s", cfg.ListenAddr)
	log.Infof("store: consultations=%q (%d loaded) feedback=%q (%d loaded)",
		consultations.Path(), consultations.Len(), cfg.FeedbackFile, feedbackStore.Len())
	log.Infof("rate: consultation=%d/%s feedback=%d/%s sweepEvery=%s headers=%v",
		cfg.ConsultationRate.Max, cfg.ConsultationRate.Window, cfg.FeedbackRate.Max, cfg.FeedbackRate.Window,
		cfg.WindowSweepEvery, cfg.AddRateLimitHeaders)
	log.Infof("rate-stats: enabled=%v redisAddr=%q bucket=%q ttl=%s trackKeys=%v",
		cfg.RateStats.Enabled, cfg.RateStats.RedisAddr, cfg.RateStats.Bucket, cfg.RateStats.TTL, cfg.RateStats.TrackKeys)
	log.Infof("advisor: mode=%s model=%s timeout=%s rps=%.2f burst=%d maxConcurrent=%d",
		adv.Mode(), adv.Model(), cfg.AI.Timeout, cfg.AI.RPS, cfg.AI.Burst, cfg.AI.MaxConcurrent)
	log.Infof("concurrency: max=%d acquireTimeout=%s", cfg.ConcurrencyMax, cfg.ConcurrencyTimeout)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

func setupLogging(cfg config.Config) {
	log.SetOutput(os.Stdout)
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("invalid LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
