package bots

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ziadkadry99/wecombot/internal/message"
)

// Sender pushes markdown to a chat through a webhook URL.
type Sender interface {
	SendMarkdown(ctx context.Context, webhookURL, chatID, content string) bool
}

// WebhookSender POSTs markdown pushes as JSON.
type WebhookSender struct {
	client *http.Client
	logger *slog.Logger
}

// NewWebhookSender creates a WebhookSender with the given request timeout.
func NewWebhookSender(timeout time.Duration, logger *slog.Logger) *WebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookSender{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// webhookResult is the provider's response to a push.
type webhookResult struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// SendMarkdown pushes content to chatID and reports whether the provider
// accepted it. Errors are logged, never returned.
func (s *WebhookSender) SendMarkdown(ctx context.Context, webhookURL, chatID, content string) bool {
	payload, err := message.NewMarkdownPush(chatID, content).JSON()
	if err != nil {
		s.logger.Error("encoding markdown push", "err", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		s.logger.Error("creating markdown push request", "err", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("send markdown message error", "chat_id", chatID, "err", err)
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 300 {
		s.logger.Error("markdown push rejected", "chat_id", chatID, "status", resp.StatusCode)
		return false
	}

	var result webhookResult
	if json.Unmarshal(body, &result) == nil && result.ErrCode != 0 {
		s.logger.Error("markdown push rejected", "chat_id", chatID, "errcode", result.ErrCode, "errmsg", result.ErrMsg)
		return false
	}
	return true
}
