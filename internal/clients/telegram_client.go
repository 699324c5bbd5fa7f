package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

const (
	DefaultTelegramAPIURL = "https://api.telegram.org"

	telegramTimeout = 30 * time.Second
)

// TelegramClient sends bot messages through the Telegram Bot API.
type TelegramClient struct {
	apiURL     string
	httpClient *http.Client
}

func NewTelegramClient(apiURL string) *TelegramClient {
	if apiURL == "" {
		apiURL = DefaultTelegramAPIURL
	}

	return &TelegramClient{
		apiURL: strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{
			Timeout: telegramTimeout,
		},
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// SendMessage posts text to chatID. Server errors, rate limits and transport
// failures are reported as network errors.
func (c *TelegramClient) SendMessage(ctx context.Context, botToken, chatID, text string) error {
	if botToken == "" || chatID == "" {
		return errors.New("telegram bot token and chat id are required")
	}

	jsonData, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return errors.Wrap(err, "failed to create HTTP request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NetworkError(errors.Wrap(err, "failed to send HTTP request"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NetworkError(errors.Wrap(err, "failed to read response body"))
	}

	var parsed sendMessageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		parsed.Description = string(body)
	}

	if resp.StatusCode != http.StatusOK || !parsed.OK {
		apiErr := errors.Errorf("telegram API returned status %d: %s", resp.StatusCode, parsed.Description)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return domain.NetworkError(apiErr)
		}
		return apiErr
	}

	return nil
}
