package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, domain.DefaultCoolDown, cfg.CoolDown)
	assert.Equal(t, 1, cfg.MaxParallelAccounts)
	assert.Equal(t, 1000, cfg.Volatility.LookbackDays)
	assert.Equal(t, 24*time.Hour, cfg.Volatility.RefreshInterval)
	assert.Equal(t, domain.PlatformBinance, cfg.Volatility.Platform)
	assert.Equal(t, RetryConfig{Delay: 15 * time.Second, Jitter: 5 * time.Second, MaxAttempts: 3}, cfg.Retry)
	assert.True(t, cfg.Notify.SummaryOnStart)
	assert.False(t, cfg.Notify.Kafka.Enabled())
	assert.Equal(t, filepath.Join("data", "orders"), filepath.Clean(cfg.LedgerDir()))
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YamlAndEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", `
poll_interval: 30s
dry_run: false
data_dir: /var/lib/dipbuyer
max_parallel_accounts: 4
volatility:
  lookback_days: 365
  platform: bybit
retry:
  delay: 2s
  jitter: 1s
  max_attempts: 0
notify:
  summary_on_start: false
  smtp:
    host: smtp.example.com
    from: bot@example.com
web:
  addr: ":9090"
  tls_domains: [bot.example.com]
log:
  level: DEBUG
`)

	cfg, err := load(path, map[string]string{
		"DIPBUYER_DRY_RUN":       "true",
		"DIPBUYER_KAFKA_BROKERS": "k1:9092, k2:9092",
		"DIPBUYER_SMTP_PASSWORD": "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 4, cfg.MaxParallelAccounts)
	assert.Equal(t, 365, cfg.Volatility.LookbackDays)
	assert.Equal(t, domain.PlatformBybit, cfg.Volatility.Platform)
	assert.Equal(t, 0, cfg.Retry.MaxAttempts)
	assert.False(t, cfg.Notify.SummaryOnStart)
	assert.Equal(t, 587, cfg.Notify.SMTP.Port)
	assert.Equal(t, "secret", cfg.Notify.SMTP.Password)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Notify.Kafka.Brokers)
	assert.Equal(t, "/var/lib/dipbuyer/certs", cfg.Web.CertCache)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/lib/dipbuyer/dipbuyer.db", cfg.DatabasePath())
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "lookback too long", yaml: "volatility:\n  lookback_days: 5000\n"},
		{name: "unknown platform", yaml: "volatility:\n  platform: kraken\n"},
		{name: "negative parallelism", yaml: "max_parallel_accounts: -1\n"},
		{name: "jitter above delay", yaml: "retry:\n  delay: 1s\n  jitter: 2s\n"},
		{name: "bad log level", yaml: "log:\n  level: loud\n"},
		{name: "bad env bool", yaml: "", env: map[string]string{"DIPBUYER_DRY_RUN": "maybe"}},
		{name: "bad env duration", yaml: "", env: map[string]string{"DIPBUYER_POLL_INTERVAL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			environ := tt.env
			if environ == nil {
				environ = map[string]string{}
			}
			_, err := load(writeFile(t, "config.yaml", tt.yaml), environ)
			require.Error(t, err)
		})
	}
}

func TestRetryOptions(t *testing.T) {
	opts := RetryConfig{Delay: 10 * time.Second, Jitter: 5 * time.Second, MaxAttempts: 3}.Options()
	assert.Len(t, opts, 6)
}

func TestLoadAccounts(t *testing.T) {
	t.Setenv("TEST_BINANCE_KEY", "key-from-env")

	path := writeFile(t, "accounts.yaml", `
accounts:
  - id: alice
    first_name: Alice
    platform: binance
    api_key: ${TEST_BINANCE_KEY}
    api_secret: s
    telegram_chat_id: "42"
    notify_to_telegram: true
    averaging:
      - symbol: BTC/USDT
        order_cost: "20"
        frequency_days: 7
    dips:
      - symbol: ETH/USDT
        order_cost: "50"
        min_drop_value: "2"
        min_drop_units: sd
        min_additional_drop_pct: "3"
        additional_drop_cost_increase: "10"
        dummy: true
  - id: bob
    active: false
    platform: bybit
`)

	imports, err := LoadAccounts(path)
	require.NoError(t, err)
	require.Len(t, imports, 2)

	alice := imports[0]
	assert.Equal(t, "key-from-env", alice.Account.Credentials.APIKey)
	assert.True(t, alice.Account.Active)
	assert.True(t, alice.Account.Notify.ToTelegram)
	require.Len(t, alice.Averaging, 1)
	require.Len(t, alice.Dips, 1)
	assert.True(t, alice.Dips[0].Dummy)

	assert.False(t, imports[1].Account.Active)
	assert.Equal(t, domain.PlatformBybit, imports[1].Account.Platform)
}

func TestLoadAccounts_RejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"missing id":   "accounts:\n  - platform: binance\n",
		"duplicate id": "accounts:\n  - id: a\n    platform: binance\n  - id: a\n    platform: binance\n",
		"bad platform": "accounts:\n  - id: a\n    platform: ftx\n",
		"bad config":   "accounts:\n  - id: a\n    platform: binance\n    averaging:\n      - symbol: BTC/USDT\n        order_cost: \"20\"\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadAccounts(writeFile(t, "accounts.yaml", body))
			require.Error(t, err)
		})
	}
}
