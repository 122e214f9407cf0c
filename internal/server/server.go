package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"voice-relay-go/internal/audio"
	"voice-relay-go/internal/logger"
	"voice-relay-go/internal/resolver"
	"voice-relay-go/internal/types"
)

const (
	missingParameterMessage = "Missing 'file_url' or 'stockname' parameter"
	downloadFailedMessage   = "Failed to download audio file"
)

// Pipeline processes a single recording reference.
type Pipeline interface {
	Process(ctx context.Context, ref types.ResourceReference) (types.ProcessResult, error)
}

type Server struct {
	pipeline Pipeline
	log      *logger.Logger
	mux      *http.ServeMux
}

func New(pipeline Pipeline, log *logger.Logger) *Server {
	s := &Server{pipeline: pipeline, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /upload_audio", s.handleUploadAudio)
	return s
}

// Handler returns the routed mux wrapped with request id and panic recovery.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := logger.RequestID(r)
		w.Header().Set(logger.RequestIDHeader, reqID)
		r = r.WithContext(withRequestID(r.Context(), reqID))

		defer func() {
			if rec := recover(); rec != nil {
				s.log.WithRequest(r, reqID).WithField("panic", fmt.Sprint(rec)).Error("handler panicked")
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprint(rec)})
			}
		}()
		s.mux.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.requestLog(r).Debug("health check")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := types.ResourceReference{FileURL: q.Get("file_url"), StockName: q.Get("stockname")}
	reqLog := s.requestLog(r).WithFields(logrus.Fields{
		"handler":   "upload_audio",
		"file_url":  ref.FileURL,
		"stockname": ref.StockName,
	})
	reqLog.Info("upload_audio request received")

	// The IVR platform hangs up long before the pipeline finishes; the
	// recording must still be relayed.
	ctx := context.WithoutCancel(r.Context())

	start := time.Now()
	res, err := s.pipeline.Process(ctx, ref)
	reqLog = reqLog.WithField("duration_ms", time.Since(start).Milliseconds())

	status, body := respond(res, err)
	if err != nil {
		reqLog.WithFields(logrus.Fields{"status": status, "error": err.Error()}).Warn("upload_audio failed")
	} else {
		reqLog.WithField("recognized", res.RecognizedText != "").Info("upload_audio completed")
	}
	writeJSON(w, status, body)
}

// respond maps a pipeline result to the HTTP status and JSON body.
func respond(res types.ProcessResult, err error) (int, any) {
	switch {
	case err == nil:
		return http.StatusOK, res
	case errors.Is(err, resolver.ErrMissingParameter):
		return http.StatusBadRequest, map[string]string{"error": missingParameterMessage}
	case errors.Is(err, audio.ErrDownloadFailed):
		return http.StatusBadRequest, map[string]string{"error": downloadFailedMessage}
	default:
		return http.StatusInternalServerError, map[string]string{"error": err.Error()}
	}
}

func (s *Server) requestLog(r *http.Request) *logrus.Entry {
	return s.log.WithRequest(r, requestIDFrom(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type ctxKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
