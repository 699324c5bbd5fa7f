package domain

import (
	"fmt"
	"strings"
	"time"
)

// Platform is the exchange an account trades on.
type Platform string

const (
	PlatformBinance Platform = "binance"
	PlatformBybit   Platform = "bybit"
)

// ParsePlatform validates an exchange id.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformBinance, PlatformBybit:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported platform: %s", s)
	}
}

// Credentials are handed to the exchange client untouched.
type Credentials struct {
	APIKey    string
	APISecret string
}

// IsZero reports whether no credentials were configured.
func (c Credentials) IsZero() bool {
	return c.APIKey == "" && c.APISecret == ""
}

// NotifySettings selects the channels an account is notified on.
type NotifySettings struct {
	TelegramBotToken string
	TelegramChatID   string
	ToTelegram       bool
	ToEmail          bool
}

// Account is a user together with the strategy configs it runs.
// It is loaded once per cycle and treated as read-only afterwards.
type Account struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	Active      bool
	CreatedOn   time.Time
	LastContact time.Time
	Platform    Platform
	Credentials Credentials
	Notify      NotifySettings
	Averaging   []AveragingConfig
	Dips        []DipConfig
}

// DisplayName is used in notifications and logs.
func (a Account) DisplayName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return a.ID
	}
	return name
}

// QuoteCurrencies lists the distinct quote currencies across all configs, in config order.
func (a Account) QuoteCurrencies() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(p Pair) {
		if _, ok := seen[p.To]; ok {
			return
		}
		seen[p.To] = struct{}{}
		out = append(out, p.To)
	}
	for _, c := range a.Averaging {
		add(c.Pair)
	}
	for _, c := range a.Dips {
		add(c.Pair)
	}
	return out
}
