package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParsePair(t *testing.T) {
	for _, in := range []string{"BTC/USDT", "btc_usdt", " BTC-USDT "} {
		p, err := ParsePair(in)
		require.NoError(t, err, in)
		require.Equal(t, "BTC/USDT", p.String())
		require.Equal(t, "BTCUSDT", p.Symbol())
	}

	_, err := ParsePair("BTCUSDT")
	require.Error(t, err)
}

func TestNewOrder(t *testing.T) {
	ts := time.Now()
	o, err := NewOrder("1", ts, "alice", Pair{From: "BTC", To: "USDT"}, StrategyDip,
		decimal.RequireFromString("30000"), decimal.NewFromInt(50), false)
	require.NoError(t, err)
	require.Equal(t, "BTC/USDT", o.Symbol)
	require.Equal(t, SideBuy, o.Side)
	require.True(t, o.Price.Mul(o.Amount).Sub(o.Cost).Abs().LessThan(decimal.New(1, -6)))
}

func TestOrderValidate_CostMismatch(t *testing.T) {
	o := Order{
		ID:        "1",
		Timestamp: time.Now(),
		AccountID: "alice",
		Symbol:    "BTC/USDT",
		Side:      SideBuy,
		Price:     decimal.NewFromInt(100),
		Amount:    decimal.NewFromInt(2),
		Cost:      decimal.NewFromInt(150),
		Strategy:  StrategyAveraging,
	}

	require.Error(t, o.Validate())

	o.Cost = decimal.NewFromInt(200)
	require.NoError(t, o.Validate())
}

func TestSeriesKey_SeparatesDummy(t *testing.T) {
	pair := Pair{From: "BTC", To: "USDT"}
	realKey := NewSeriesKey("alice", pair, StrategyDip, false)
	dummy := NewSeriesKey("alice", pair, StrategyDip, true)

	require.NotEqual(t, realKey, dummy)
	require.NotEqual(t, realKey.String(), dummy.String())
}

func TestNetworkError(t *testing.T) {
	base := fmt.Errorf("dial tcp: i/o timeout")
	err := NetworkError(base)

	require.True(t, IsNetwork(err))
	require.ErrorIs(t, err, base)
	require.False(t, IsNetwork(base))
	require.False(t, IsNetwork(InsufficientFunds("need %s", "10")))
	require.Nil(t, NetworkError(nil))
}
