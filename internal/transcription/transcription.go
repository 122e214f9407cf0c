package transcription

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
	"voice-relay-go/internal/types"
)

const (
	DefaultLanguage = "he-IL"
	DefaultTimeout  = 30 * time.Second
	mockTranscript  = "תמלול לדוגמה: הלקוח מבקש לעדכן את כתובת המשלוח."
)

// Config captures the Speech-to-Text endpoint settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// Client calls Google Speech-to-Text v1 speech:recognize.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logrus.Entry
}

func NewClient(cfg Config, httpClient *http.Client, log *logrus.Entry) *Client {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	hc := *httpClient
	hc.Timeout = cfg.Timeout
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return &Client{cfg: cfg, httpClient: &hc, log: log}
}

type recognitionConfig struct {
	Encoding          string `json:"encoding,omitempty"`
	SampleRateHertz   int    `json:"sampleRateHertz,omitempty"`
	AudioChannelCount int    `json:"audioChannelCount,omitempty"`
	LanguageCode      string `json:"languageCode"`
}

type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Transcribe never returns an error: engine failures come back as an
// EngineError result so the caller decides how loud to be about them.
func (c *Client) Transcribe(ctx context.Context, clip types.AudioClip) types.TranscriptionResult {
	log := c.log.WithField("language", c.cfg.Language)
	if c.cfg.APIKey == "" {
		return engineError(log, "speech api key not configured")
	}

	var payload recognizeRequest
	payload.Config = recognitionConfig{
		LanguageCode:      c.cfg.Language,
		SampleRateHertz:   clip.SampleRate,
		AudioChannelCount: clip.Channels,
	}
	if clip.BitDepth == 16 {
		payload.Config.Encoding = "LINEAR16"
	}
	payload.Audio.Content = base64.StdEncoding.EncodeToString(clip.Data)
	body, err := json.Marshal(payload)
	if err != nil {
		return engineError(log, fmt.Sprintf("encode request: %v", err))
	}

	endpoint, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return engineError(log, fmt.Sprintf("invalid speech endpoint: %v", err))
	}
	q := endpoint.Query()
	q.Set("key", c.cfg.APIKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return engineError(log, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return engineError(log, fmt.Sprintf("speech request failed: %v", redactKey(err, c.cfg.APIKey)))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return engineError(log, fmt.Sprintf("read response: %v", err))
	}
	log = log.WithFields(logrus.Fields{"http_status": resp.StatusCode, "duration_ms": time.Since(start).Milliseconds()})
	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorBody
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return engineError(log, fmt.Sprintf("speech api: http %d: %s", resp.StatusCode, msg))
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return engineError(log, fmt.Sprintf("decode response: %v", err))
	}

	var parts []string
	for _, r := range parsed.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		log.Info("no speech detected")
		return types.TranscriptionResult{Status: types.NoSpeech}
	}
	// Recognizer output may mix composed and decomposed niqqud.
	text := norm.NFC.String(strings.Join(parts, " "))
	log.WithField("recognized_text", text).Info("recognized text")
	return types.TranscriptionResult{Status: types.Recognized, Text: text}
}

func engineError(log *logrus.Entry, detail string) types.TranscriptionResult {
	log.WithField("error", detail).Error("speech recognition error")
	return types.TranscriptionResult{Status: types.EngineError, Detail: detail}
}

// url.Error includes the full URL, which carries the API key.
func redactKey(err error, key string) string {
	if key == "" {
		return err.Error()
	}
	return strings.ReplaceAll(err.Error(), key, "REDACTED")
}

// Mock returns a fixed transcript, for USE_MOCK_TRANSCRIBE demos.
type Mock struct {
	Text string
}

func (m Mock) Transcribe(_ context.Context, _ types.AudioClip) types.TranscriptionResult {
	text := m.Text
	if text == "" {
		text = mockTranscript
	}
	return types.TranscriptionResult{Status: types.Recognized, Text: text}
}
