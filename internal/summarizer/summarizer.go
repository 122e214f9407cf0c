package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
	"voice-relay-go/internal/types"
)

// Retry policy for the generateContent call: attempts are spaced by
// BaseDelay, 2*BaseDelay, ... with no jitter and no wait before the first.
const (
	MaxAttempts = 3
	BaseDelay   = time.Second
	Multiplier  = 2.0
)

const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = float32(0.2)
	DefaultTimeout     = 20 * time.Second
)

const systemPrompt = "אתה עורך חדשות. סכם את הטקסט המועתק (תמלול אודיו) לדיווח חדשותי קצר, תמציתי ורשמי. " +
	"השתמש בשפה עברית ברורה. הדיווח צריך להיות עד שתי פסקאות קצרות בלבד. " +
	"*אל* תוסיף כותרות, הקדמות או משפטי סיום. הפלט שלך צריך להיות רק הטקסט המסוכם."

const (
	ConfigErrorText  = "❌ שגיאת AI: לא ניתן לבצע סיכום. נא לוודא כי GEMINI_API_KEY מוגדר."
	failureBanner    = "❌ כשל בסיכום AI. הטקסט המקורי: \n\n"
	processingBanner = "❌ שגיאה כללית בסיכום AI. הטקסט המקורי:\n"
)

// Config captures the runtime settings required to talk to Gemini.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logrus.Entry

	maxAttempts int
	baseDelay   time.Duration
	timer       backoff.Timer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimer overrides how retry waits are performed (useful for tests).
func WithTimer(t backoff.Timer) Option {
	return func(c *Client) {
		c.timer = t
	}
}

func NewClient(cfg Config, log *logrus.Entry, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{
		cfg:         cfg,
		httpClient:  &http.Client{},
		log:         log,
		maxAttempts: MaxAttempts,
		baseDelay:   BaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generationConfig struct {
	Temperature *float32 `json:"temperature,omitempty"`
}

type generateContentRequest struct {
	Contents          []*genai.Content  `json:"contents"`
	SystemInstruction *genai.Content    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("gemini: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// retryable reports transient overload statuses.
func (e *httpStatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return fmt.Sprintf("gemini: decode response: %v", e.err) }
func (e *decodeError) Unwrap() error { return e.err }

// Summarize always returns displayable text. Failures after the
// precondition check embed the original transcript.
func (c *Client) Summarize(ctx context.Context, text string) types.SummaryOutcome {
	if strings.TrimSpace(text) == "" || c.cfg.APIKey == "" {
		c.log.Warn("skipping gemini summarization: text or api key is missing")
		return types.SummaryOutcome{Kind: types.SummaryConfigError, Text: ConfigErrorText}
	}

	body, err := json.Marshal(c.buildRequest(text))
	if err != nil {
		c.log.WithField("error", err.Error()).Error("encode gemini request")
		return types.SummaryOutcome{Kind: types.SummaryProcessingError, Text: processingBanner + text}
	}

	var (
		attempts int
		summary  string
		failKind = types.SummaryRetryExhausted
	)
	op := func() error {
		attempts++
		out, err := c.generate(ctx, body)
		if err == nil {
			summary = out
			return nil
		}
		log := c.log.WithFields(logrus.Fields{"attempt": attempts, "error": err.Error()})
		var statusErr *httpStatusError
		var decErr *decodeError
		switch {
		case errors.As(err, &statusErr) && !statusErr.retryable():
			failKind = types.SummaryNonRetryable
			log.Error("gemini rejected request; not retrying")
			return backoff.Permanent(err)
		case errors.As(err, &decErr):
			failKind = types.SummaryProcessingError
			log.Error("error processing gemini response")
			return backoff.Permanent(err)
		}
		log.Warn("failed to call gemini api")
		return err
	}
	notify := func(_ error, wait time.Duration) {
		c.log.WithField("wait", wait.String()).Info("retrying gemini call")
	}

	if err := backoff.RetryNotifyWithTimer(op, c.policy(ctx), notify, c.timer); err != nil {
		switch failKind {
		case types.SummaryProcessingError:
			return types.SummaryOutcome{Kind: failKind, Text: processingBanner + text, Attempts: attempts}
		case types.SummaryRetryExhausted:
			c.log.WithField("attempts", attempts).Error("all retries failed for gemini api")
		}
		return types.SummaryOutcome{Kind: failKind, Text: failureBanner + text, Attempts: attempts}
	}

	if summary == "" {
		c.log.Warn("gemini returned no text; using original transcript")
		return types.SummaryOutcome{Kind: types.SummarySuccess, Text: text, Attempts: attempts, Fallback: true}
	}
	c.log.WithField("attempts", attempts).Info("gemini summarization successful")
	return types.SummaryOutcome{Kind: types.SummarySuccess, Text: summary, Attempts: attempts}
}

func (c *Client) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	b.Multiplier = Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = c.baseDelay << c.maxAttempts
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxAttempts-1)), ctx)
}

func (c *Client) buildRequest(text string) generateContentRequest {
	temp := c.cfg.Temperature
	return generateContentRequest{
		Contents: []*genai.Content{
			{Parts: []*genai.Part{{Text: text}}},
		},
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		GenerationConfig:  &generationConfig{Temperature: &temp},
	}
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
}

// generate performs one attempt. Transport errors are returned as-is and
// retried by the caller.
func (c *Client) generate(ctx context.Context, body []byte) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed genai.GenerateContentResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &decodeError{err: err}
	}
	return strings.TrimSpace(candidateText(&parsed)), nil
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// Mock returns a deterministic summary, for USE_MOCK_LLM demos.
type Mock struct{}

func (Mock) Summarize(_ context.Context, text string) types.SummaryOutcome {
	if strings.TrimSpace(text) == "" {
		return types.SummaryOutcome{Kind: types.SummaryConfigError, Text: ConfigErrorText}
	}
	return types.SummaryOutcome{Kind: types.SummarySuccess, Text: "תקציר: " + strings.TrimSpace(text), Attempts: 1}
}
