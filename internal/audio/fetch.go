package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"voice-relay-go/internal/types"
)

const (
	DefaultFetchTimeout = 15 * time.Second
	maxAudioBytes       = 64 << 20
)

var ErrDownloadFailed = errors.New("failed to download audio file")

// DownloadError carries either the observed HTTP status or the transport error.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("download failed: %v", e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

func (e *DownloadError) Is(target error) bool { return target == ErrDownloadFailed }

type Fetcher struct {
	client *http.Client
	log    *logrus.Entry
}

// NewFetcher builds a fetcher with a bounded per-request timeout. A nil
// client gets a fresh http.Client.
func NewFetcher(client *http.Client, timeout time.Duration, log *logrus.Entry) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	c := *client
	c.Timeout = timeout
	return &Fetcher{client: &c, log: log}
}

// Fetch performs a single GET. Nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context, url string) (types.AudioClip, error) {
	log := f.log.WithField("file_url", url)
	log.Info("downloading audio")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.AudioClip{}, &DownloadError{URL: url, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		log.WithField("error", err.Error()).Error("download request failed")
		return types.AudioClip{}, &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		log.WithField("status", resp.StatusCode).Error("failed to download file")
		return types.AudioClip{}, &DownloadError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return types.AudioClip{}, &DownloadError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(data) > maxAudioBytes {
		return types.AudioClip{}, &DownloadError{URL: url, Err: fmt.Errorf("audio exceeds %d bytes", maxAudioBytes)}
	}
	log.WithField("bytes", len(data)).Debug("audio downloaded")
	return types.AudioClip{Data: data, Format: "wav"}, nil
}
