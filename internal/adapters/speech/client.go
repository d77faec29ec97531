package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client sends narration text to the text-to-speech backend. Audio plays on
// the backend side; nothing flows back, so callers only care about errors.
type Client struct {
	baseURL string
	voice   string
	http    *http.Client
	logger  *slog.Logger
}

func New(baseURL, voice string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		voice:   voice,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With("component", "speech"),
	}
}

type speakRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// Speak submits text for synthesis.
func (c *Client) Speak(ctx context.Context, text string) error {
	payload, err := json.Marshal(speakRequest{Text: text, Voice: c.voice})
	if err != nil {
		return fmt.Errorf("marshal speak request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speak", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST /speak: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("speech backend: HTTP %d", resp.StatusCode)
	}
	return nil
}
