package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"WARN", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"bogus", logrus.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONFormatterOutsideLocal(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Environment: "production", Level: "info", Output: &buf})
	log.WithError(errors.New("boom")).Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "hello" {
		t.Fatalf("unexpected msg %v", line["msg"])
	}
	if line["error"] != "boom" {
		t.Fatalf("unexpected error field %v", line["error"])
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Environment: "production", Level: "info", Output: &buf})
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestRequestID(t *testing.T) {
	r := httptest.NewRequest("GET", "/upload_audio", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	if got := RequestID(r); got != "abc-123" {
		t.Fatalf("expected echoed id, got %q", got)
	}

	r = httptest.NewRequest("GET", "/upload_audio", nil)
	first := RequestID(r)
	if len(first) != 36 {
		t.Fatalf("expected generated uuid, got %q", first)
	}
	if first == RequestID(r) {
		t.Fatal("expected a fresh id per call")
	}
}

func TestWithRequestFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Environment: "production", Output: &buf})
	r := httptest.NewRequest("GET", "/health", nil)
	log.WithRequest(r, "rid").Info("x")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line["req_id"] != "rid" || line["path"] != "/health" || line["method"] != "GET" {
		t.Fatalf("missing request fields: %v", line)
	}
}

func TestLocalTextNotColoredForBuffers(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Environment: "local", Output: &buf})
	log.Info("plain")
	if bytes.Contains(buf.Bytes(), []byte("\x1b[")) {
		t.Fatalf("unexpected ANSI escapes in %q", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("msg=plain")) {
		t.Fatalf("expected text formatter output, got %q", buf.String())
	}
}
