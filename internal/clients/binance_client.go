// Package clients builds exchange API clients and classifies their errors.
package clients

import (
	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

// Binance API error codes the engine reacts to.
const (
	binanceUnknown          = -1000
	binanceDisconnected     = -1001
	binanceTooManyRequests  = -1003
	binanceTimeout          = -1007
	binanceInsufficientFund = -2010
)

func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	client := binance.NewClient(apiKey, apiSecret)
	return client
}

// NewPublicBinanceClient has no keys and serves public market data only.
func NewPublicBinanceClient() *binance.Client {
	return binance.NewClient("", "")
}

// ClassifyBinanceError maps venue errors onto domain error classes.
func ClassifyBinanceError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case binanceUnknown, binanceDisconnected, binanceTooManyRequests, binanceTimeout:
			return domain.NetworkError(err)
		case binanceInsufficientFund:
			if isInsufficientBalanceMessage(apiErr.Message) {
				return domain.InsufficientFunds("binance: %s", apiErr.Message)
			}
		}
		return err
	}

	return classifyTransport(err)
}
