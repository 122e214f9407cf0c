package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"voice-relay-go/internal/notifier"
	"voice-relay-go/internal/resolver"
	"voice-relay-go/internal/types"
)

// ErrInternal marks failures that are neither caller mistakes nor download
// problems: preprocessing errors and recovered panics.
var ErrInternal = errors.New("internal processing error")

type Resolver interface {
	Resolve(ref types.ResourceReference) (types.ResourceReference, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (types.AudioClip, error)
}

type Preprocessor interface {
	Pad(clip types.AudioClip) (types.AudioClip, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, clip types.AudioClip) types.TranscriptionResult
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) types.SummaryOutcome
}

type Notifier interface {
	Dispatch(ctx context.Context, plan types.NotificationPlan)
}

// Deps are the pipeline stages in execution order.
type Deps struct {
	Resolver     Resolver
	Fetcher      Fetcher
	Preprocessor Preprocessor
	Transcriber  Transcriber
	Summarizer   Summarizer
	Notifier     Notifier
}

type Processor struct {
	deps Deps
	log  *logrus.Entry
}

func New(deps Deps, log *logrus.Entry) *Processor {
	return &Processor{deps: deps, log: log}
}

// Process runs one recording through resolve, fetch, pad, transcribe,
// summarize and notify. Every outcome except a missing parameter ends with
// the notifier being handed a plan before Process returns.
func (p *Processor) Process(ctx context.Context, ref types.ResourceReference) (types.ProcessResult, error) {
	start := time.Now()
	res, plan, err := p.run(ctx, ref)
	log := p.log.WithField("duration_ms", time.Since(start).Milliseconds())

	switch {
	case errors.Is(err, resolver.ErrMissingParameter):
		log.Warn("request rejected: missing parameter")
		return res, err
	case err != nil:
		log.WithField("error", err.Error()).Error("pipeline failed")
		plan = notifier.DiagnosticPlan(err)
	}

	p.dispatch(ctx, plan)
	log.WithField("messages", len(plan.Messages)).Info("pipeline finished")
	return res, err
}

// dispatch shields the caller from a misbehaving notifier.
func (p *Processor) dispatch(ctx context.Context, plan types.NotificationPlan) {
	if plan.Empty() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("panic", fmt.Sprint(r)).Error("notifier panicked")
		}
	}()
	p.deps.Notifier.Dispatch(ctx, plan)
}

func (p *Processor) run(ctx context.Context, ref types.ResourceReference) (res types.ProcessResult, plan types.NotificationPlan, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, plan = types.ProcessResult{}, types.NotificationPlan{}
			err = fmt.Errorf("%w: panic: %v", ErrInternal, r)
		}
	}()

	ref, err = p.deps.Resolver.Resolve(ref)
	if err != nil {
		return res, plan, err
	}
	log := p.log.WithField("file_url", ref.Resolved)

	clip, err := p.deps.Fetcher.Fetch(ctx, ref.Resolved)
	if err != nil {
		return res, plan, err
	}

	clip, err = p.deps.Preprocessor.Pad(clip)
	if err != nil {
		return res, plan, fmt.Errorf("%w: pad audio: %v", ErrInternal, err)
	}
	log.WithField("duration", clip.Duration.String()).Debug("audio padded")

	tr := p.deps.Transcriber.Transcribe(ctx, clip)
	log = log.WithField("transcription", string(tr.Status))
	if !tr.HasSpeech() {
		if tr.Status == types.EngineError {
			log.WithField("detail", tr.Detail).Warn("speech engine failed")
		} else {
			log.Info("no speech recognized")
		}
		return res, notifier.Plan(tr, types.SummaryOutcome{}, ref.Resolved), nil
	}

	outcome := p.deps.Summarizer.Summarize(ctx, tr.Text)
	log.WithFields(logrus.Fields{
		"summary":  string(outcome.Kind),
		"attempts": outcome.Attempts,
	}).Info("summarization finished")

	res = types.ProcessResult{RecognizedText: tr.Text, SummarizedText: outcome.Text}
	return res, notifier.Plan(tr, outcome, ref.Resolved), nil
}
