// Package config monta a configuração do serviço.
//
// Ordem de precedência (a última vence): defaults, arquivo .env, YAML em
// CONFIG_PATH, variáveis de ambiente do processo.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RateConfig struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

type AIConfig struct {
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	Timeout       time.Duration `yaml:"timeout"`
	RPS           float64       `yaml:"rps"`
	Burst         int           `yaml:"burst"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	MaxTokens     int           `yaml:"max_tokens"`
	Temperature   float64       `yaml:"temperature"`
}

type RateStatsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix"`
	TTL           time.Duration `yaml:"ttl"`
	Bucket        string        `yaml:"bucket"`
	TrackKeys     bool          `yaml:"track_keys"`
	Timeout       time.Duration `yaml:"timeout"`
}

type Config struct {
	ListenAddr        string `yaml:"listen_addr"`
	ConsultationsFile string `yaml:"consultations_file"`
	FeedbackFile      string `yaml:"feedback_file"`

	ConsultationRate    RateConfig    `yaml:"consultation_rate"`
	FeedbackRate        RateConfig    `yaml:"feedback_rate"`
	WindowSweepEvery    time.Duration `yaml:"window_sweep_every"`
	AddRateLimitHeaders bool          `yaml:"add_ratelimit_headers"`

	ConcurrencyMax     int           `yaml:"concurrency_max"`
	ConcurrencyTimeout time.Duration `yaml:"concurrency_timeout"`

	AI        AIConfig        `yaml:"ai"`
	RateStats RateStatsConfig `yaml:"rate_stats"`

	CORSOrigins []string `yaml:"cors_origins"`
	LogLevel    string   `yaml:"log_level"`
	LogFormat   string   `yaml:"log_format"`
}

func Defaults() Config {
	return Config{
		ListenAddr:          ":8000",
		ConsultationsFile:   "consultations.json",
		FeedbackFile:        "feedback.json",
		ConsultationRate:    RateConfig{Max: 5, Window: time.Minute},
		FeedbackRate:        RateConfig{Max: 3, Window: 5 * time.Minute},
		WindowSweepEvery:    5 * time.Minute,
		AddRateLimitHeaders: true,
		ConcurrencyMax:      100,
		AI: AIConfig{
			BaseURL:       "https://api.openai.com/v1",
			Model:         "gpt-3.5-turbo",
			Timeout:       30 * time.Second,
			RPS:           2,
			Burst:         4,
			MaxConcurrent: 4,
			MaxTokens:     800,
			Temperature:   0.3,
		},
		RateStats: RateStatsConfig{
			Prefix:  "legal:admission",
			TTL:     24 * time.Hour,
			Bucket:  "minute",
			Timeout: 250 * time.Millisecond,
		},
		CORSOrigins: []string{"*"},
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load lê .env do diretório corrente e o ambiente do processo.
func Load() (Config, error) {
	return load(".env", os.LookupEnv)
}

func load(envFile string, environ lookupFunc) (Config, error) {
	cfg := Defaults()

	dotenv, err := godotenv.Read(envFile)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		dotenv = map[string]string{}
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", envFile, err)
	}
	fromDotenv := func(k string) (string, bool) {
		v, ok := dotenv[k]
		return v, ok
	}
	cfg.applyEnv(fromDotenv)

	path, _ := firstOf(environ, fromDotenv)("CONFIG_PATH")
	if path != "" {
		if err := cfg.applyYAML(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv(environ)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(env lookupFunc) {
	c.ListenAddr = env.getenvDefault("LISTEN_ADDR", c.ListenAddr)
	c.ConsultationsFile = env.getenvDefault("CONSULTATIONS_FILE", c.ConsultationsFile)
	c.FeedbackFile = env.getenvDefault("FEEDBACK_FILE", c.FeedbackFile)

	c.ConsultationRate.Max = env.getenvIntDefault("CONSULTATION_RATE_MAX", c.ConsultationRate.Max)
	c.ConsultationRate.Window = env.getenvDurationDefault("CONSULTATION_RATE_WINDOW", c.ConsultationRate.Window)
	c.FeedbackRate.Max = env.getenvIntDefault("FEEDBACK_RATE_MAX", c.FeedbackRate.Max)
	c.FeedbackRate.Window = env.getenvDurationDefault("FEEDBACK_RATE_WINDOW", c.FeedbackRate.Window)
	c.WindowSweepEvery = env.getenvDurationDefault("WINDOW_SWEEP_EVERY", c.WindowSweepEvery)
	c.AddRateLimitHeaders = env.getenvBoolDefault("ADD_RATELIMIT_HEADERS", c.AddRateLimitHeaders)
	c.ConcurrencyMax = env.getenvIntDefault("CONCURRENCY_MAX", c.ConcurrencyMax)
	c.ConcurrencyTimeout = env.getenvDurationDefault("CONCURRENCY_TIMEOUT", c.ConcurrencyTimeout)

	c.AI.APIKey = env.getenvDefault("OPENAI_API_KEY", c.AI.APIKey)
	c.AI.BaseURL = env.getenvDefault("OPENAI_BASE_URL", c.AI.BaseURL)
	c.AI.Model = env.getenvDefault("OPENAI_MODEL", c.AI.Model)
	c.AI.Timeout = env.getenvDurationDefault("AI_TIMEOUT", c.AI.Timeout)
	c.AI.RPS = env.getenvFloatDefault("AI_RPS", c.AI.RPS)
	c.AI.Burst = env.getenvIntDefault("AI_BURST", c.AI.Burst)
	c.AI.MaxConcurrent = env.getenvIntDefault("AI_MAX_CONCURRENT", c.AI.MaxConcurrent)
	c.AI.MaxTokens = env.getenvIntDefault("AI_MAX_TOKENS", c.AI.MaxTokens)
	c.AI.Temperature = env.getenvFloatDefault("AI_TEMPERATURE", c.AI.Temperature)

	c.RateStats.Enabled = env.getenvBoolDefault("RATE_STATS_ENABLED", c.RateStats.Enabled)
	c.RateStats.RedisAddr = env.getenvDefault("RATE_STATS_REDIS_ADDR", c.RateStats.RedisAddr)
	c.RateStats.RedisPassword = env.getenvDefault("RATE_STATS_REDIS_PASSWORD", c.RateStats.RedisPassword)
	c.RateStats.RedisDB = env.getenvIntDefault("RATE_STATS_REDIS_DB", c.RateStats.RedisDB)
	c.RateStats.Prefix = env.getenvDefault("RATE_STATS_PREFIX", c.RateStats.Prefix)
	c.RateStats.TTL = env.getenvDurationDefault("RATE_STATS_TTL", c.RateStats.TTL)
	c.RateStats.Bucket = env.getenvDefault("RATE_STATS_BUCKET", c.RateStats.Bucket)
	c.RateStats.TrackKeys = env.getenvBoolDefault("RATE_STATS_TRACK_KEYS", c.RateStats.TrackKeys)
	c.RateStats.Timeout = env.getenvDurationDefault("RATE_STATS_TIMEOUT", c.RateStats.Timeout)

	c.CORSOrigins = env.getenvListDefault("CORS_ORIGINS", c.CORSOrigins)
	c.LogLevel = env.getenvDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = env.getenvDefault("LOG_FORMAT", c.LogFormat)
}

func (c Config) Validate() error {
	var errs []error
	if c.ConsultationRate.Max < 0 {
		errs = append(errs, errors.New("CONSULTATION_RATE_MAX must be >= 0"))
	}
	if c.ConsultationRate.Window <= 0 {
		errs = append(errs, errors.New("CONSULTATION_RATE_WINDOW must be > 0"))
	}
	if c.FeedbackRate.Max < 0 {
		errs = append(errs, errors.New("FEEDBACK_RATE_MAX must be >= 0"))
	}
	if c.FeedbackRate.Window <= 0 {
		errs = append(errs, errors.New("FEEDBACK_RATE_WINDOW must be > 0"))
	}
	if c.ConcurrencyMax < 0 {
		errs = append(errs, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	if strings.TrimSpace(c.ConsultationsFile) == "" {
		errs = append(errs, errors.New("CONSULTATIONS_FILE is required"))
	}
	if c.AI.Timeout <= 0 {
		errs = append(errs, errors.New("AI_TIMEOUT must be > 0"))
	}
	if c.AI.RPS <= 0 {
		errs = append(errs, errors.New("AI_RPS must be > 0"))
	}
	if c.RateStats.Enabled && strings.TrimSpace(c.RateStats.RedisAddr) == "" {
		errs = append(errs, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true"))
	}
	if c.RateStats.Enabled && c.RateStats.Timeout <= 0 {
		errs = append(errs, errors.New("RATE_STATS_TIMEOUT must be > 0"))
	}
	switch strings.ToLower(c.RateStats.Bucket) {
	case "minute", "none":
	default:
		errs = append(errs, fmt.Errorf("RATE_STATS_BUCKET must be minute or none, got %q", c.RateStats.Bucket))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
