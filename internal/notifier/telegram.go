package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// Telegram sends alerts to a Telegram chat via the bot API.
type Telegram struct {
	token  string
	chatID string
	client *http.Client
	logger *zap.Logger
}

// NewTelegram reads credentials from the environment. When they are absent
// it returns a Noop sink so callers never have to nil-check.
func NewTelegram(logger *zap.Logger) Notifier {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatID == "" {
		logger.Warn("telegram credentials missing, notifications disabled")
		return Noop{}
	}
	return &Telegram{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Notify posts a Markdown message. Errors are logged and swallowed.
func (t *Telegram) Notify(text string) {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, _ := json.Marshal(payload)

	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.logger.Warn("telegram alert failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.logger.Warn("telegram api error", zap.String("status", resp.Status))
	}
}
