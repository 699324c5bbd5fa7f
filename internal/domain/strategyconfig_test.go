package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDipSpecBuild(t *testing.T) {
	spec := DipSpec{
		Symbol:                     "btc/usdt",
		OrderCost:                  "50",
		MinDropValue:               "2",
		MinDropUnit:                "SD",
		MinAdditionalDropPct:       "3",
		AdditionalDropCostIncrease: "10",
		Dummy:                      true,
	}

	cfg, err := spec.Build()
	require.NoError(t, err)
	require.Equal(t, Pair{From: "BTC", To: "USDT"}, cfg.Pair)
	require.Equal(t, DropUnitStdDev, cfg.Unit)
	require.True(t, cfg.Active)
	require.True(t, cfg.Dummy)
	require.True(t, cfg.OrderCost.Equal(decimal.NewFromInt(50)))
}

func TestDipSpecBuild_RejectsIncomplete(t *testing.T) {
	base := DipSpec{
		Symbol:                     "ETH/USDT",
		OrderCost:                  "50",
		MinDropValue:               "5",
		MinDropUnit:                "pct",
		MinAdditionalDropPct:       "3",
		AdditionalDropCostIncrease: "0",
	}

	tests := []struct {
		name   string
		mutate func(s *DipSpec)
	}{
		{"missing cost", func(s *DipSpec) { s.OrderCost = "" }},
		{"zero cost", func(s *DipSpec) { s.OrderCost = "0" }},
		{"bad symbol", func(s *DipSpec) { s.Symbol = "ETHUSDT" }},
		{"missing drop", func(s *DipSpec) { s.MinDropValue = "" }},
		{"unknown unit", func(s *DipSpec) { s.MinDropUnit = "bps" }},
		{"missing additional drop", func(s *DipSpec) { s.MinAdditionalDropPct = "" }},
		{"negative increase", func(s *DipSpec) { s.AdditionalDropCostIncrease = "-1" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := base
			tt.mutate(&spec)
			_, err := spec.Build()
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestDipSpecBuild_AllowsNonPositiveAdditionalDrop(t *testing.T) {
	spec := DipSpec{
		Symbol:                     "ETH/USDT",
		OrderCost:                  "50",
		MinDropValue:               "5",
		MinDropUnit:                "pct",
		MinAdditionalDropPct:       "-1",
		AdditionalDropCostIncrease: "0",
	}

	cfg, err := spec.Build()
	require.NoError(t, err)
	require.True(t, cfg.MinAdditionalDropPct.Equal(decimal.NewFromInt(-1)))
}

func TestAveragingSpecBuild(t *testing.T) {
	inactive := false
	cfg, err := AveragingSpec{Symbol: "BTC_USDT", OrderCost: "20", FrequencyDays: 7, Active: &inactive}.Build()
	require.NoError(t, err)
	require.Equal(t, 7*24*time.Hour, cfg.Frequency())
	require.False(t, cfg.Active)

	_, err = AveragingSpec{Symbol: "BTC_USDT", OrderCost: "20"}.Build()
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMinDropPct(t *testing.T) {
	sd := DipConfig{MinDrop: decimal.NewFromInt(2), Unit: DropUnitStdDev, Pair: Pair{From: "X", To: "Q"}}

	pct, err := sd.MinDropPct(decimal.RequireFromString("0.03"), true)
	require.NoError(t, err)
	require.True(t, pct.Equal(decimal.NewFromInt(6)), "got %s", pct)

	_, err = sd.MinDropPct(decimal.Zero, false)
	require.ErrorIs(t, err, ErrMissingStatistic)

	plain := DipConfig{MinDrop: decimal.NewFromInt(5), Unit: DropUnitPercent}
	pct, err = plain.MinDropPct(decimal.Zero, false)
	require.NoError(t, err)
	require.True(t, pct.Equal(decimal.NewFromInt(5)))
}

func TestLastCheckCoolingDown(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	check := LastCheck{At: at, Result: CheckInsufficientFunds}

	require.True(t, check.CoolingDown(at.Add(29*time.Minute), DefaultCoolDown))
	require.False(t, check.CoolingDown(at.Add(30*time.Minute), DefaultCoolDown))

	placed := LastCheck{At: at, Result: CheckOrderPlaced}
	require.False(t, placed.CoolingDown(at.Add(time.Minute), DefaultCoolDown))
}
