package notify

import (
	"context"
	"time"

	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/pkg/retrier"
)

const (
	telegramRetries    = 4 // five attempts in total
	telegramRetryDelay = 10 * time.Second
	telegramBackoff    = 2
)

type telegramSender interface {
	SendMessage(ctx context.Context, botToken, chatID, text string) error
}

type Telegram struct {
	client telegramSender
	retry  *retrier.Retrier
}

// NewTelegram wraps client with the notification retry policy. retry may be
// nil for the default one.
func NewTelegram(client telegramSender, retry *retrier.Retrier) *Telegram {
	if retry == nil {
		retry = DefaultTelegramRetrier()
	}
	return &Telegram{client: client, retry: retry}
}

func DefaultTelegramRetrier() *retrier.Retrier {
	return retrier.New(
		retrier.WithInitialInterval(telegramRetryDelay),
		retrier.WithMaxInterval(8*telegramRetryDelay),
		retrier.WithMultiplier(telegramBackoff),
		retrier.WithMaxRetries(telegramRetries),
		retrier.WithJitter(0),
		retrier.WithRetryIf(domain.IsNetwork),
	)
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Enabled(account domain.Account) bool {
	n := account.Notify
	return n.ToTelegram && n.TelegramBotToken != "" && n.TelegramChatID != ""
}

func (t *Telegram) Send(ctx context.Context, account domain.Account, message string) error {
	return t.retry.Do(ctx, func(ctx context.Context) error {
		return t.client.SendMessage(ctx, account.Notify.TelegramBotToken, account.Notify.TelegramChatID, message)
	})
}
