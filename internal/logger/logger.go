package logger

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"

type Logger struct {
	*logrus.Entry
}

// Options controls formatter and level. Empty fields fall back to the
// ENVIRONMENT and LOG_LEVEL variables.
type Options struct {
	Environment string
	Level       string
	Output      io.Writer
}

func New() *Logger {
	return NewWithOptions(Options{})
}

func NewWithOptions(opts Options) *Logger {
	base := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	base.SetOutput(out)

	env := opts.Environment
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	// Local env = pretty console; others = JSON
	if env == "" || env == "local" {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
			ForceColors:     isTerminal(out),
		})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}

	level := opts.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	base.SetLevel(ParseLevel(level))

	return &Logger{Entry: logrus.NewEntry(base)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Wrap adapts an existing entry, mostly for tests using logrus/hooks/test.
func Wrap(entry *logrus.Entry) *Logger {
	return &Logger{Entry: entry}
}

func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// RequestID returns the caller's X-Request-ID or a fresh uuid.
func RequestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(RequestIDHeader)); id != "" {
		return id
	}
	return uuid.New().String()
}

// WithRequest attaches request metadata and returns an entry
func (l *Logger) WithRequest(r *http.Request, reqID string) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"req_id":     reqID,
		"method":     r.Method,
		"path":       r.URL.Path,
		"remote_ip":  r.RemoteAddr,
		"user_agent": r.UserAgent(),
	})
}

// Component tags an entry with the emitting package.
func (l *Logger) Component(name string) *logrus.Entry {
	return l.Entry.WithField("component", name)
}

// WithError standardizes error logging
func (l *Logger) WithError(err error) *logrus.Entry {
	if err == nil {
		return l.Entry
	}
	return l.Entry.WithField("error", err.Error())
}
