package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"voice-relay-go/internal/types"
)

const DefaultTimeout = 10 * time.Second

// Dispatcher delivers a single plain-text message.
type Dispatcher interface {
	Send(ctx context.Context, text string) error
}

// TelegramConfig identifies the bot and the destination chat.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Timeout  time.Duration
}

// NewDispatcher builds a Telegram dispatcher when a bot token is configured.
// Otherwise a noop implementation is returned.
func NewDispatcher(cfg TelegramConfig, log *logrus.Entry) Dispatcher {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return noopDispatcher{log: log}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	return &telegramDispatcher{
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", base, strings.TrimSpace(cfg.BotToken)),
		chatID:   cfg.ChatID,
		client:   &http.Client{Timeout: timeout},
	}
}

type telegramDispatcher struct {
	endpoint string
	chatID   string
	client   *http.Client
}

// Send posts without parse_mode so the text arrives exactly as written.
func (t *telegramDispatcher) Send(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		// url.Error embeds the endpoint, which carries the bot token.
		return fmt.Errorf("telegram send failed: %s", strings.ReplaceAll(err.Error(), t.endpoint, "<telegram>"))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("telegram send: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopDispatcher struct {
	log *logrus.Entry
}

func (n noopDispatcher) Send(_ context.Context, text string) error {
	n.log.WithField("text", text).Debug("telegram not configured; message dropped")
	return nil
}

// Notifier dispatches plans in order.
type Notifier struct {
	dispatcher Dispatcher
	log        *logrus.Entry
}

func New(dispatcher Dispatcher, log *logrus.Entry) *Notifier {
	return &Notifier{dispatcher: dispatcher, log: log}
}

// Dispatch sends every message of the plan. Each message is an independent
// call; a failed send is logged and the next message is still attempted.
func (n *Notifier) Dispatch(ctx context.Context, plan types.NotificationPlan) {
	for i, msg := range plan.Messages {
		log := n.log.WithFields(logrus.Fields{"message": i + 1, "of": len(plan.Messages)})
		if err := n.dispatcher.Send(ctx, msg); err != nil {
			log.WithField("error", err.Error()).Warn("notification dispatch failed")
			continue
		}
		log.Info("notification sent")
	}
}
