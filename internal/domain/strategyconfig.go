package domain

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DefaultCoolDown suppresses new attempts after an insufficient-funds outcome.
const DefaultCoolDown = 30 * time.Minute

// CheckResult is the outcome recorded after evaluating a config.
type CheckResult string

const (
	CheckOrderPlaced       CheckResult = "Order placed"
	CheckInsufficientFunds CheckResult = "Insufficient funds"
	CheckNoAction          CheckResult = "No action"
)

// LastCheck is the bookkeeping kept per strategy config.
type LastCheck struct {
	At     time.Time
	Result CheckResult
}

// CoolingDown reports whether an insufficient-funds outcome still blocks new attempts.
func (c LastCheck) CoolingDown(now time.Time, window time.Duration) bool {
	if c.Result != CheckInsufficientFunds || c.At.IsZero() {
		return false
	}
	return now.Before(c.At.Add(window))
}

// DropUnit is the unit a dip threshold is expressed in.
type DropUnit string

const (
	DropUnitPercent DropUnit = "pct"
	DropUnitStdDev  DropUnit = "sd"
)

// ParseDropUnit accepts a few spellings of both units.
func ParseDropUnit(s string) (DropUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pct", "percent", "percentage", "%":
		return DropUnitPercent, nil
	case "sd", "std", "stddev", "std_dev":
		return DropUnitStdDev, nil
	default:
		return "", errors.Wrapf(ErrInvalidConfig, "unknown drop unit %q", s)
	}
}

// AveragingConfig buys a fixed cost every FrequencyDays days.
type AveragingConfig struct {
	Pair          Pair
	OrderCost     decimal.Decimal
	FrequencyDays int
	Dummy         bool
	Active        bool
	LastCheck     LastCheck
}

// Frequency returns the buy interval.
func (c AveragingConfig) Frequency() time.Duration {
	return time.Duration(c.FrequencyDays) * 24 * time.Hour
}

// DipConfig buys on a 24h drop and escalates on further drops from the last buy.
type DipConfig struct {
	Pair                       Pair
	OrderCost                  decimal.Decimal
	MinDrop                    decimal.Decimal
	Unit                       DropUnit
	MinAdditionalDropPct       decimal.Decimal
	AdditionalDropCostIncrease decimal.Decimal
	Dummy                      bool
	Active                     bool
	LastCheck                  LastCheck
}

var hundred = decimal.NewFromInt(100)

// MinDropPct resolves the threshold in percent. stdDev is the fraction
// returned by the volatility estimator; ok=false means it is unavailable.
func (c DipConfig) MinDropPct(stdDev decimal.Decimal, ok bool) (decimal.Decimal, error) {
	if c.Unit == DropUnitPercent {
		return c.MinDrop, nil
	}
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrMissingStatistic, "symbol %s", c.Pair.String())
	}
	return c.MinDrop.Mul(stdDev).Mul(hundred), nil
}

// AveragingSpec is the raw, string-typed form of an averaging config as it
// appears in YAML files and storage rows.
type AveragingSpec struct {
	Symbol        string `yaml:"symbol"`
	OrderCost     string `yaml:"order_cost"`
	FrequencyDays int    `yaml:"frequency_days"`
	Dummy         bool   `yaml:"dummy"`
	Active        *bool  `yaml:"active,omitempty"`
}

// Build validates the spec and returns the typed config.
func (s AveragingSpec) Build() (AveragingConfig, error) {
	pair, err := ParsePair(s.Symbol)
	if err != nil {
		return AveragingConfig{}, errors.Wrapf(ErrInvalidConfig, "incorrect 'symbol' param: %v", err)
	}
	cost, err := parsePositive("order_cost", s.OrderCost)
	if err != nil {
		return AveragingConfig{}, err
	}
	if s.FrequencyDays <= 0 {
		return AveragingConfig{}, errors.Wrapf(ErrInvalidConfig,
			"incorrect 'frequency_days' param for %s: must be a positive number of days, got %d", pair.String(), s.FrequencyDays)
	}

	return AveragingConfig{
		Pair:          pair,
		OrderCost:     cost,
		FrequencyDays: s.FrequencyDays,
		Dummy:         s.Dummy,
		Active:        s.Active == nil || *s.Active,
	}, nil
}

// DipSpec is the raw, string-typed form of a dip config.
type DipSpec struct {
	Symbol                     string `yaml:"symbol"`
	OrderCost                  string `yaml:"order_cost"`
	MinDropValue               string `yaml:"min_drop_value"`
	MinDropUnit                string `yaml:"min_drop_units"`
	MinAdditionalDropPct       string `yaml:"min_additional_drop_pct"`
	AdditionalDropCostIncrease string `yaml:"additional_drop_cost_increase"`
	Dummy                      bool   `yaml:"dummy"`
	Active                     *bool  `yaml:"active,omitempty"`
}

// Build validates the spec and returns the typed config. The sign of
// min_additional_drop_pct is left to the operator.
func (s DipSpec) Build() (DipConfig, error) {
	pair, err := ParsePair(s.Symbol)
	if err != nil {
		return DipConfig{}, errors.Wrapf(ErrInvalidConfig, "incorrect 'symbol' param: %v", err)
	}
	cost, err := parsePositive("order_cost", s.OrderCost)
	if err != nil {
		return DipConfig{}, err
	}
	minDrop, err := parsePositive("min_drop_value", s.MinDropValue)
	if err != nil {
		return DipConfig{}, err
	}
	unit, err := ParseDropUnit(s.MinDropUnit)
	if err != nil {
		return DipConfig{}, err
	}
	additionalDrop, err := parseRequired("min_additional_drop_pct", s.MinAdditionalDropPct)
	if err != nil {
		return DipConfig{}, err
	}
	increase, err := parseRequired("additional_drop_cost_increase", s.AdditionalDropCostIncrease)
	if err != nil {
		return DipConfig{}, err
	}
	if increase.IsNegative() {
		return DipConfig{}, errors.Wrapf(ErrInvalidConfig,
			"incorrect 'additional_drop_cost_increase' param: must not be negative, got %s", increase.String())
	}

	return DipConfig{
		Pair:                       pair,
		OrderCost:                  cost,
		MinDrop:                    minDrop,
		Unit:                       unit,
		MinAdditionalDropPct:       additionalDrop,
		AdditionalDropCostIncrease: increase,
		Dummy:                      s.Dummy,
		Active:                     s.Active == nil || *s.Active,
	}, nil
}

func parseRequired(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, errors.Wrapf(ErrInvalidConfig, "missing '%s' param", field)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalidConfig, "incorrect '%s' param %q: %v", field, raw, err)
	}
	return d, nil
}

func parsePositive(field, raw string) (decimal.Decimal, error) {
	d, err := parseRequired(field, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, errors.Wrapf(ErrInvalidConfig, "incorrect '%s' param: must be positive, got %s", field, d.String())
	}
	return d, nil
}
