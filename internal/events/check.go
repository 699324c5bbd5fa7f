package events

import (
	"sync"
	"time"

	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

// CheckEvent reports one strategy evaluation that did something.
// Decimals are strings so web consumers keep full precision.
type CheckEvent struct {
	Timestamp time.Time `json:"ts"`
	AccountID string    `json:"account_id"`
	Symbol    string    `json:"symbol"`
	Strategy  string    `json:"strategy"`
	Dummy     bool      `json:"dummy"`
	Result    string    `json:"result"`
	OrderID   string    `json:"order_id,omitempty"`
	Price     string    `json:"price,omitempty"`
	Cost      string    `json:"cost,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// NewCheckEvent builds an event. order may be nil.
func NewCheckEvent(ts time.Time, accountID string, pair domain.Pair, strategy domain.Strategy, dummy bool,
	result domain.CheckResult, order *domain.Order, message string) CheckEvent {
	ev := CheckEvent{
		Timestamp: ts.UTC(),
		AccountID: accountID,
		Symbol:    pair.String(),
		Strategy:  string(strategy),
		Dummy:     dummy,
		Result:    string(result),
		Message:   message,
	}
	if order != nil {
		ev.OrderID = order.ID
		ev.Price = order.Price.String()
		ev.Cost = order.Cost.String()
	}
	return ev
}

// Broadcaster fans out events to all subscribers via buffered channels.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[chan CheckEvent]struct{}
	buffer int
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 64
	}
	return &Broadcaster{
		subs:   make(map[chan CheckEvent]struct{}),
		buffer: buffer,
	}
}

// Publish sends the event to all subscribers, dropping if a reader is slow.
func (b *Broadcaster) Publish(e CheckEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// drop slow consumer
		}
	}
}

// Subscribe returns a channel that receives events until Unsubscribe is called.
func (b *Broadcaster) Subscribe() chan CheckEvent {
	ch := make(chan CheckEvent, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *Broadcaster) Unsubscribe(ch chan CheckEvent) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
