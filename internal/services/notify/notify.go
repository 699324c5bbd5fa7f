// Package notify delivers account notifications and publishes check events.
// Delivery is best effort: failures are logged, never returned.
package notify

import (
	"context"

	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"go.uber.org/zap"
)

// Channel delivers a message to one account over one medium.
type Channel interface {
	Name() string
	// Enabled reports whether the account opted in and is reachable.
	Enabled(account domain.Account) bool
	Send(ctx context.Context, account domain.Account, message string) error
}

// Dispatcher sends every message through all enabled channels.
type Dispatcher struct {
	channels []Channel
	logger   *zap.Logger
}

func NewDispatcher(logger *zap.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	var active []Channel
	for _, ch := range channels {
		if ch != nil {
			active = append(active, ch)
		}
	}
	return &Dispatcher{channels: active, logger: logger}
}

func (d *Dispatcher) Notify(ctx context.Context, account domain.Account, message string) {
	for _, ch := range d.channels {
		if !ch.Enabled(account) {
			continue
		}
		if err := ch.Send(ctx, account, message); err != nil {
			d.logger.Warn("notification not delivered",
				zap.String("account", account.ID),
				zap.String("channel", ch.Name()),
				zap.Error(err))
		}
	}
}
