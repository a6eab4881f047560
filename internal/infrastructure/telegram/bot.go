package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/DosAbicos/2tick-sub000/internal/config"
)

// Sender delivers messages to Telegram chats via the Bot API.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type sender struct {
	httpClient *http.Client
	apiURL     string
}

func NewSender(cfg *config.Config) (Sender, error) {
	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("telegram bot token not configured")
	}
	return &sender{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     "https://api.telegram.org/bot" + cfg.TelegramBotToken,
	}, nil
}

func (s *sender) SendMessage(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram sendMessage: status %d", resp.StatusCode)
	}
	return nil
}
