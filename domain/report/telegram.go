package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newsloom/newsloom/internal/config"
)

// Telegram is a bare bot-API shell: one sendMessage POST, nothing
// else.
type Telegram struct {
	cfg  config.TelegramConfig
	http *http.Client
}

// NewTelegram creates the Telegram sender.
func NewTelegram(cfg config.TelegramConfig) *Telegram {
	return &Telegram{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// Send posts a plain-text message to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.cfg.IsConfigured() {
		return fmt.Errorf("telegram is not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id": t.cfg.ChatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram api status %d: %s", resp.StatusCode, body)
	}
	return nil
}
