package advisor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"legal-gateway/internal/consultation"

	"github.com/tidwall/gjson"
)

func newProvider(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_Advise_ParsesContentAndSendsPrompt(t *testing.T) {
	var gotAuth, gotBody string
	srv := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"gpt-x","choices":[{"message":{"role":"assistant","content":"  Legal Status: Legal  "}}]}`)
	})

	o := NewOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL + "/", Model: "gpt-x"})
	ans, err := o.Advise(context.Background(), Question{Query: "my landlord kept the deposit", Category: "property", Urgency: "urgent"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "Legal Status: Legal" {
		t.Fatalf("expected trimmed content, got %q", ans.Text)
	}
	if ans.Model != "gpt-x" || ans.Fallback {
		t.Fatalf("unexpected answer: %+v", ans)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if m := gjson.Get(gotBody, "model").String(); m != "gpt-x" {
		t.Fatalf("expected model gpt-x in body, got %q", m)
	}
	if role := gjson.Get(gotBody, "messages.0.role").String(); role != "system" {
		t.Fatalf("expected system message first, got %q", role)
	}
	user := gjson.Get(gotBody, "messages.1.content").String()
	if !strings.Contains(user, "my landlord kept the deposit") || !strings.Contains(user, "Property Law") {
		t.Fatalf("prompt missing query or category: %q", user)
	}
}

func TestOpenAI_Advise_StatusErrorIsUpstream(t *testing.T) {
	srv := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
	})

	_, err := NewOpenAI(Config{APIKey: "x", BaseURL: srv.URL}).Advise(context.Background(), Question{Query: "q"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("expected provider message in error, got %v", err)
	}
}

func TestOpenAI_Advise_EmptyContent(t *testing.T) {
	srv := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})

	_, err := NewOpenAI(Config{APIKey: "x", BaseURL: srv.URL}).Advise(context.Background(), Question{Query: "q"})
	if !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
}

func TestOpenAI_Advise_Timeout(t *testing.T) {
	srv := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	_, err := NewOpenAI(Config{APIKey: "x", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}).
		Advise(context.Background(), Question{Query: "q"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream on timeout, got %v", err)
	}
}

func TestDemo_EchoesQuery(t *testing.T) {
	ans, err := Demo{}.Advise(context.Background(), Question{Query: "can my employer withhold salary?", Category: "labor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Model != consultation.DemoModel {
		t.Fatalf("expected model %q, got %q", consultation.DemoModel, ans.Model)
	}
	if !strings.Contains(ans.Text, "can my employer withhold salary?") {
		t.Fatalf("expected query echoed, got %q", ans.Text)
	}
}

type stubAdvisor struct {
	ans Answer
	err error
}

func (s stubAdvisor) Advise(context.Context, Question) (Answer, error) { return s.ans, s.err }
func (stubAdvisor) Mode() string                                     { return ModeLive }
func (stubAdvisor) Model() string                                    { return "stub" }

func TestFallback_UsesBackupOnError(t *testing.T) {
	var calls atomic.Int32
	f := Fallback{
		Primary:    stubAdvisor{err: ErrUpstream},
		Backup:     Demo{},
		OnFallback: func(error) { calls.Add(1) },
	}

	ans, err := f.Advise(context.Background(), Question{Query: "hello there friend"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ans.Fallback || ans.Model != consultation.DemoModel {
		t.Fatalf("expected demo fallback answer, got %+v", ans)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected OnFallback once, got %d", calls.Load())
	}
}

func TestFallback_UsesBackupOnBlankAnswer(t *testing.T) {
	f := Fallback{Primary: stubAdvisor{ans: Answer{Text: "   ", Model: "stub"}}, Backup: Demo{}}

	ans, err := f.Advise(context.Background(), Question{Query: "q"})
	if err != nil || !ans.Fallback {
		t.Fatalf("expected fallback, got %+v err=%v", ans, err)
	}
}

func TestFallback_PassesThroughPrimary(t *testing.T) {
	f := Fallback{Primary: stubAdvisor{ans: Answer{Text: "ok", Model: "stub"}}, Backup: Demo{}}

	ans, err := f.Advise(context.Background(), Question{Query: "q"})
	if err != nil || ans.Fallback || ans.Text != "ok" {
		t.Fatalf("expected primary answer, got %+v err=%v", ans, err)
	}
}

func TestSelect(t *testing.T) {
	if a := Select(Config{}, nil); a.Mode() != ModeDemo {
		t.Fatalf("expected demo without key, got %s", a.Mode())
	}
	a := Select(Config{APIKey: "sk", Model: "m"}, nil)
	if a.Mode() != ModeLive || a.Model() != "m" {
		t.Fatalf("expected live advisor with model m, got %s/%s", a.Mode(), a.Model())
	}
}

func TestBuildPrompt_EmergencyHint(t *testing.T) {
	p := BuildPrompt(Question{Query: "q", Category: "criminal", Urgency: "emergency"})
	if !strings.Contains(p, "EMERGENCY") || !strings.Contains(p, "Legal Status:") {
		t.Fatalf("unexpected prompt: %q", p)
	}
}
