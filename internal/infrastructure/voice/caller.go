package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/DosAbicos/2tick-sub000/internal/config"
)

// Caller asks the flash-call gateway to ring a number from the configured
// caller ID. No voice content carries the code; the signer reads it off the
// incoming number's last digits.
type Caller interface {
	PlaceCall(ctx context.Context, to string) error
}

type caller struct {
	httpClient *http.Client
	gatewayURL string
	from       string
}

func NewCaller(cfg *config.Config) (Caller, error) {
	if cfg.VoiceGatewayURL == "" {
		return nil, fmt.Errorf("voice gateway not configured")
	}
	return &caller{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		gatewayURL: cfg.VoiceGatewayURL,
		from:       cfg.VoiceCallerNumber,
	}, nil
}

func (c *caller) PlaceCall(ctx context.Context, to string) error {
	body, err := json.Marshal(map[string]string{
		"from": c.from,
		"to":   to,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("voice gateway call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("voice gateway call: status %d", resp.StatusCode)
	}
	return nil
}
