package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"voice-relay-go/internal/types"
)

// fakeTimer fires immediately and records each requested wait.
type fakeTimer struct {
	mu    sync.Mutex
	waits []time.Duration
	c     chan time.Time
}

func (f *fakeTimer) Start(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits = append(f.waits, d)
	f.c = make(chan time.Time, 1)
	f.c <- time.Now()
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.c
}

type recorder struct {
	mu       sync.Mutex
	attempts int
	bodies   []map[string]any
}

func (r *recorder) next(req *http.Request) int {
	var body map[string]any
	_ = json.NewDecoder(req.Body).Decode(&body)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	r.bodies = append(r.bodies, body)
	return r.attempts
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func geminiText(w http.ResponseWriter, text string) {
	payload := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeTimer) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	timer := &fakeTimer{}
	l, _ := test.NewNullLogger()
	c := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", Timeout: time.Second},
		logrus.NewEntry(l), WithTimer(timer))
	return c, timer
}

func TestSummarizeRetriesTransientThenSucceeds(t *testing.T) {
	rec := &recorder{}
	c, timer := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/demo-model:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test" {
			t.Errorf("missing api key header")
		}
		if rec.next(r) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		geminiText(w, "  תקציר \n")
	})

	out := c.Summarize(context.Background(), "שלום עולם")
	if out.Kind != types.SummarySuccess || out.Text != "תקציר" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Attempts != 3 || rec.count() != 3 {
		t.Fatalf("expected 3 attempts, got outcome=%d server=%d", out.Attempts, rec.count())
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(timer.waits) != len(want) {
		t.Fatalf("expected one wait between each pair of attempts, got %v", timer.waits)
	}
	for i := range want {
		if timer.waits[i] != want[i] {
			t.Fatalf("wait %d = %v, want %v", i, timer.waits[i], want[i])
		}
	}
}

func TestSummarizeRequestShape(t *testing.T) {
	rec := &recorder{}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.next(r)
		geminiText(w, "ok")
	})
	c.Summarize(context.Background(), "טקסט")

	body := rec.bodies[0]
	contents, _ := body["contents"].([]any)
	if len(contents) != 1 || !strings.Contains(mustJSON(t, contents[0]), "טקסט") {
		t.Fatalf("unexpected contents %v", body["contents"])
	}
	if !strings.Contains(mustJSON(t, body["systemInstruction"]), "עורך חדשות") {
		t.Fatalf("system instruction missing persona: %v", body["systemInstruction"])
	}
	gen, _ := body["generationConfig"].(map[string]any)
	if temp, _ := gen["temperature"].(float64); temp < 0.19 || temp > 0.21 {
		t.Fatalf("temperature = %v, want 0.2", gen["temperature"])
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestSummarizeNonRetryableStopsImmediately(t *testing.T) {
	rec := &recorder{}
	c, timer := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.next(r)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad"}}`))
	})

	out := c.Summarize(context.Background(), "שלום עולם")
	if out.Kind != types.SummaryNonRetryable {
		t.Fatalf("expected non-retryable outcome, got %+v", out)
	}
	if rec.count() != 1 || out.Attempts != 1 {
		t.Fatalf("expected exactly one attempt, got %d", rec.count())
	}
	if len(timer.waits) != 0 {
		t.Fatalf("expected no waits, got %v", timer.waits)
	}
	if !strings.Contains(out.Text, "שלום עולם") {
		t.Fatalf("outcome must embed transcript, got %q", out.Text)
	}
}

func TestSummarizeExhaustsRetries(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		rec := &recorder{}
		c, timer := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			rec.next(r)
			w.WriteHeader(status)
		})

		out := c.Summarize(context.Background(), "קטע מקורי")
		if out.Kind != types.SummaryRetryExhausted {
			t.Fatalf("status %d: expected retry exhausted, got %+v", status, out)
		}
		if rec.count() != MaxAttempts {
			t.Fatalf("status %d: expected %d attempts, got %d", status, MaxAttempts, rec.count())
		}
		if len(timer.waits) != MaxAttempts-1 {
			t.Fatalf("status %d: expected %d waits, got %v", status, MaxAttempts-1, timer.waits)
		}
		if !strings.HasSuffix(out.Text, "קטע מקורי") || !strings.HasPrefix(out.Text, "❌") {
			t.Fatalf("unexpected banner %q", out.Text)
		}
	}
}

func TestSummarizeTransportErrorIsRetried(t *testing.T) {
	timer := &fakeTimer{}
	l, _ := test.NewNullLogger()
	c := NewClient(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, logrus.NewEntry(l), WithTimer(timer))

	out := c.Summarize(context.Background(), "abc")
	if out.Kind != types.SummaryRetryExhausted || out.Attempts != MaxAttempts {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestSummarizeEmptyCandidateFallsBackToTranscript(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})
	out := c.Summarize(context.Background(), "המקור")
	if out.Kind != types.SummarySuccess || !out.Fallback || out.Text != "המקור" {
		t.Fatalf("expected lenient fallback, got %+v", out)
	}
}

func TestSummarizeUndecodableResponse(t *testing.T) {
	rec := &recorder{}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.next(r)
		_, _ = w.Write([]byte(`<html>proxy error</html>`))
	})
	out := c.Summarize(context.Background(), "המקור")
	if out.Kind != types.SummaryProcessingError {
		t.Fatalf("expected processing error, got %+v", out)
	}
	if rec.count() != 1 {
		t.Fatalf("expected a single attempt, got %d", rec.count())
	}
	if !strings.Contains(out.Text, "המקור") {
		t.Fatalf("outcome must embed transcript, got %q", out.Text)
	}
}

func TestSummarizePreconditions(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.next(r)
	}))
	defer server.Close()
	l, _ := test.NewNullLogger()

	noKey := NewClient(Config{BaseURL: server.URL}, logrus.NewEntry(l))
	if out := noKey.Summarize(context.Background(), "text"); out.Kind != types.SummaryConfigError || out.Text != ConfigErrorText {
		t.Fatalf("expected config error, got %+v", out)
	}
	withKey := NewClient(Config{APIKey: "k", BaseURL: server.URL}, logrus.NewEntry(l))
	if out := withKey.Summarize(context.Background(), "   "); out.Kind != types.SummaryConfigError {
		t.Fatalf("expected config error for empty text, got %+v", out)
	}
	if rec.count() != 0 {
		t.Fatalf("expected no network calls, got %d", rec.count())
	}
}

func TestSummarizeIsDeterministic(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		geminiText(w, "תקציר קבוע")
	})
	first := c.Summarize(context.Background(), "קלט")
	second := c.Summarize(context.Background(), "קלט")
	if first != second {
		t.Fatalf("expected identical outcomes, got %+v and %+v", first, second)
	}
}

func TestMock(t *testing.T) {
	out := Mock{}.Summarize(context.Background(), " שלום ")
	if out.Kind != types.SummarySuccess || out.Text != "תקציר: שלום" {
		t.Fatalf("unexpected mock outcome %+v", out)
	}
}
