package types

import "time"

// ResourceReference is the caller-supplied pointer to a recording.
type ResourceReference struct {
	FileURL   string `json:"file_url,omitempty"`
	StockName string `json:"stockname,omitempty"`
	Resolved  string `json:"resolved_url,omitempty"`
}

type AudioClip struct {
	Data       []byte        `json:"-"`
	Format     string        `json:"format"`
	SampleRate int           `json:"sample_rate,omitempty"`
	Channels   int           `json:"channels,omitempty"`
	BitDepth   int           `json:"bit_depth,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// --------------------------------------------
// Transcription
// --------------------------------------------

type TranscriptionStatus string

const (
	Recognized  TranscriptionStatus = "recognized"
	NoSpeech    TranscriptionStatus = "no_speech"
	EngineError TranscriptionStatus = "engine_error"
)

// TranscriptionResult is immutable once produced by the transcriber.
// Text is only meaningful when Status is Recognized; Detail carries the
// engine failure for EngineError.
type TranscriptionResult struct {
	Status TranscriptionStatus `json:"status"`
	Text   string              `json:"text,omitempty"`
	Detail string              `json:"detail,omitempty"`
}

// HasSpeech reports whether the result carries usable text.
func (r TranscriptionResult) HasSpeech() bool {
	return r.Status == Recognized && r.Text != ""
}

// --------------------------------------------
// Summarization
// --------------------------------------------

type SummaryKind string

const (
	SummarySuccess         SummaryKind = "success"
	SummaryRetryExhausted  SummaryKind = "retry_exhausted"
	SummaryNonRetryable    SummaryKind = "non_retryable"
	SummaryConfigError     SummaryKind = "config_error"
	SummaryProcessingError SummaryKind = "processing_error"
)

// SummaryOutcome always carries displayable text: the summary on success,
// otherwise a failure banner that embeds the original transcript.
type SummaryOutcome struct {
	Kind     SummaryKind `json:"kind"`
	Text     string      `json:"text"`
	Attempts int         `json:"attempts"`
	// Fallback is set when the model answered without text and the
	// transcript was returned unchanged.
	Fallback bool `json:"fallback,omitempty"`
}

func (o SummaryOutcome) OK() bool { return o.Kind == SummarySuccess }

// NotificationPlan is the ordered list of messages to relay for one request.
type NotificationPlan struct {
	Messages []string `json:"messages"`
}

func (p NotificationPlan) Empty() bool { return len(p.Messages) == 0 }

// ProcessResult is returned to the HTTP caller.
type ProcessResult struct {
	RecognizedText string `json:"recognized_text"`
	SummarizedText string `json:"summarized_text,omitempty"`
}
