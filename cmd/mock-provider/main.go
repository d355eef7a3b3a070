package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"legal-gateway/middleware/ratelimit"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Provedor falso compatível com /v1/chat/completions, para rodar o gateway
// localmente sem chave real: OPENAI_BASE_URL=http://localhost:8081/v1.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	delay, _ := time.ParseDuration(os.Getenv("MOCK_DELAY"))
	failEvery, _ := strconv.ParseInt(os.Getenv("MOCK_FAIL_EVERY"), 10, 64)

	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		model := gjson.GetBytes(body, "model").String()
		prompt := gjson.GetBytes(body, "messages.#(role==\"user\").content").String()

		if failEvery > 0 && n%failEvery == 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"mock provider overloaded"}}`))
			return
		}

		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}

		content := "Legal Status: Partially Legal\nLaw: Mock provider, no real statute cited\nSolution: Consult a qualified advocate.\n\n" +
			fmt.Sprintf("(prompt had %d characters)", len(prompt))
		resp, _ := sonic.Marshal(map[string]any{
			"id":      fmt.Sprintf("chatcmpl-mock-%d", n),
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(resp)
	})

	h := http.Handler(mux)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{Max: 50})(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("mock provider listening on %s (delay=%s failEvery=%d)", addr, delay, failEvery)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
