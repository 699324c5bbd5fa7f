package clients

import (
	"strings"

	"github.com/hirokisan/bybit/v2"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

func NewBybitClient(apiKey, apiSecret string) *bybit.Client {
	client := bybit.NewClient().WithAuth(apiKey, apiSecret)

	return client
}

// NewPublicBybitClient has no keys and serves public market data only.
func NewPublicBybitClient() *bybit.Client {
	return bybit.NewClient()
}

// ClassifyBybitError maps venue errors onto domain error classes. The client
// reports API failures as plain errors carrying the venue message.
func ClassifyBybitError(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	switch {
	case isInsufficientBalanceMessage(msg):
		return domain.InsufficientFunds("bybit: %s", err.Error())
	case strings.Contains(msg, "too many visits"), strings.Contains(msg, "rate limit"):
		return domain.NetworkError(err)
	}

	return classifyTransport(err)
}
