package main

import (
	"net/http"
	"time"

	"voice-relay-go/internal/audio"
	"voice-relay-go/internal/config"
	"voice-relay-go/internal/logger"
	"voice-relay-go/internal/notifier"
	"voice-relay-go/internal/processor"
	"voice-relay-go/internal/resolver"
	"voice-relay-go/internal/summarizer"
	"voice-relay-go/internal/transcription"
)

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func newLogger(cfg config.Config) *logger.Logger {
	return logger.NewWithOptions(logger.Options{
		Environment: cfg.Server.Environment,
		Level:       cfg.Server.LogLevel,
	})
}

// buildProcessor wires every pipeline stage from the loaded configuration.
func buildProcessor(cfg config.Config, log *logger.Logger) *processor.Processor {
	httpClient := &http.Client{}

	var transcriber processor.Transcriber = transcription.NewClient(transcription.Config{
		APIKey:   cfg.Transcription.APIKey,
		BaseURL:  cfg.Transcription.BaseURL,
		Language: cfg.Transcription.Language,
		Timeout:  seconds(cfg.Transcription.TimeoutSeconds),
	}, httpClient, log.Component("transcription"))
	if cfg.Transcription.Mock {
		log.Warn("using mock transcriber")
		transcriber = transcription.Mock{}
	}

	var sum processor.Summarizer = summarizer.NewClient(summarizer.Config{
		APIKey:      cfg.Gemini.APIKey,
		BaseURL:     cfg.Gemini.BaseURL,
		Model:       cfg.Gemini.Model,
		Temperature: cfg.Gemini.Temperature,
		Timeout:     seconds(cfg.Gemini.TimeoutSeconds),
	}, log.Component("summarizer"), summarizer.WithHTTPClient(httpClient))
	if cfg.Gemini.Mock {
		log.Warn("using mock summarizer")
		sum = summarizer.Mock{}
	}

	notifyLog := log.Component("notifier")
	dispatcher := notifier.NewDispatcher(notifier.TelegramConfig{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		BaseURL:  cfg.Telegram.BaseURL,
		Timeout:  seconds(cfg.Telegram.TimeoutSeconds),
	}, notifyLog)

	return processor.New(processor.Deps{
		Resolver: resolver.New(resolver.Template{
			BaseURL:    cfg.Resolver.BaseURL,
			Token:      cfg.Resolver.SystemToken,
			PathPrefix: cfg.Resolver.PathPrefix,
		}),
		Fetcher:      audio.NewFetcher(httpClient, seconds(cfg.Fetch.TimeoutSeconds), log.Component("fetcher")),
		Preprocessor: audio.NewPadder(time.Duration(cfg.Audio.PadMillis) * time.Millisecond),
		Transcriber:  transcriber,
		Summarizer:   sum,
		Notifier:     notifier.New(dispatcher, notifyLog),
	}, log.Component("processor"))
}
