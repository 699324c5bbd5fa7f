package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/internal/services/volatility"
	"go.uber.org/zap"
)

// summary renders the start-up notification of an account: quote balances,
// when each averaging config buys next, and the resolved dip thresholds.
func (o *Orchestrator) summary(ctx context.Context, account domain.Account, services AccountServices, stats volatility.Statistics) string {
	now := o.now()

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s! dipbuyer is watching your %s account.\n", account.DisplayName(), account.Platform)

	if currencies := account.QuoteCurrencies(); len(currencies) > 0 {
		balances := make([]string, 0, len(currencies))
		for _, c := range currencies {
			amount, err := services.Trader.Balance(ctx, c)
			if err != nil {
				o.logger.Warn("balance unavailable for summary",
					zap.String("account", account.ID), zap.String("currency", c), zap.Error(err))
				balances = append(balances, c+" unavailable")
				continue
			}
			balances = append(balances, c+" "+amount.StringFixed(2))
		}
		b.WriteString("Balances: " + strings.Join(balances, ", ") + "\n")
	}

	var averaging []string
	for _, cfg := range account.Averaging {
		if !cfg.Active {
			continue
		}
		line := fmt.Sprintf("- %s: %s %s every %d days, ", cfg.Pair, cfg.OrderCost, cfg.Pair.To, cfg.FrequencyDays)
		if days := o.averaging.DueIn(account.ID, cfg, now); days > 0 {
			line += fmt.Sprintf("next purchase in %d days", days)
		} else {
			line += "next purchase is due now"
		}
		averaging = append(averaging, line+simulationNote(cfg.Dummy))
	}
	if len(averaging) > 0 {
		b.WriteString("Periodic buys:\n" + strings.Join(averaging, "\n") + "\n")
	}

	var dips []string
	for _, cfg := range account.Dips {
		if !cfg.Active {
			continue
		}
		line := fmt.Sprintf("- %s: %s %s when the 24h drop exceeds ", cfg.Pair, cfg.OrderCost, cfg.Pair.To)
		if threshold, err := o.dip.Threshold(cfg, stats); err != nil {
			line += fmt.Sprintf("%s std-dev (volatility unavailable)", cfg.MinDrop)
		} else {
			line += threshold.StringFixed(2) + "%"
		}
		dips = append(dips, line+simulationNote(cfg.Dummy))
	}
	if len(dips) > 0 {
		b.WriteString("Dip buys:\n" + strings.Join(dips, "\n") + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func simulationNote(dummy bool) string {
	if dummy {
		return " (simulation)"
	}
	return ""
}
