package advisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"legal-gateway/middleware/ratelimit/application"
	"legal-gateway/middleware/ratelimit/infra"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

// Config descreve o provedor. Zeros viram os defaults em NewOpenAI.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	RPS           float64
	Burst         int
	MaxConcurrent int
	MaxTokens     int
	Temperature   float64
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = "gpt-3.5-turbo"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RPS <= 0 {
		c.RPS = 2
	}
	if c.Burst <= 0 {
		c.Burst = 4
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 800
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.3
	}
	return c
}

// OpenAI chama /chat/completions. Chamadas são limitadas em taxa (token bucket)
// e em paralelismo (pool de vagas) antes de sair para a rede.
type OpenAI struct {
	cfg      Config
	client   *http.Client
	throttle *rate.Limiter
	slots    application.ConcurrencyService
}

type OpenAIOption func(*OpenAI)

func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAI) {
		if c != nil {
			o.client = c
		}
	}
}

func NewOpenAI(cfg Config, opts ...OpenAIOption) *OpenAI {
	cfg = cfg.withDefaults()
	o := &OpenAI{
		cfg:      cfg,
		client:   &http.Client{},
		throttle: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		slots:    application.ConcurrencyService{Pool: infra.NewSlotPool(cfg.MaxConcurrent)},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OpenAI) Mode() string  { return ModeLive }
func (o *OpenAI) Model() string { return o.cfg.Model }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

func (o *OpenAI) Advise(ctx context.Context, q Question) (Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	if err := o.throttle.Wait(ctx); err != nil {
		return Answer{}, fmt.Errorf("%w: throttle: %w", ErrUpstream, err)
	}

	var ans Answer
	err := o.slots.Do(ctx, func(ctx context.Context) error {
		var err error
		ans, err = o.complete(ctx, q)
		return err
	})
	if errors.Is(err, application.ErrNoSlot) {
		return Answer{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return ans, err
}

func (o *OpenAI) complete(ctx context.Context, q Question) (Answer, error) {
	body, err := sonic.Marshal(chatRequest{
		Model:       o.cfg.Model,
		Messages:    buildMessages(q),
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("advisor: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Answer{}, fmt.Errorf("advisor: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Answer{}, fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}

	log.WithFields(log.Fields{
		"status":  resp.StatusCode,
		"model":   o.cfg.Model,
		"elapsed": time.Since(start).String(),
	}).Debug("advisor: provider responded")

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Answer{}, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, msg)
	}

	content := strings.TrimSpace(gjson.GetBytes(raw, "choices.0.message.content").String())
	if content == "" {
		return Answer{}, ErrEmptyAnswer
	}

	return Answer{Text: content, Model: o.cfg.Model}, nil
}
