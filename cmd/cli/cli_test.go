package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/internal/storage/orders"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := New()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestAccountsImportAndList(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "data_dir: "+filepath.Join(dir, "data")+"\n")
	accountsPath := writeFile(t, dir, "accounts.yaml", `
accounts:
  - id: alice
    first_name: Alice
    platform: binance
    averaging:
      - symbol: BTC/USDT
        order_cost: "20"
        frequency_days: 7
    dips:
      - symbol: ETH/USDT
        order_cost: "50"
        min_drop_value: "5"
        min_drop_units: pct
        min_additional_drop_pct: "3"
        additional_drop_cost_increase: "0"
`)

	out := execute(t, "--config", cfgPath, "accounts", "import", "--file", accountsPath)
	require.Contains(t, out, "imported alice: 1 periodic, 1 dip configs")

	out = execute(t, "--config", cfgPath, "accounts", "list")
	require.Contains(t, out, "alice")
	require.Contains(t, out, "binance")
}

func TestOrdersList(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	cfgPath := writeFile(t, dir, "config.yaml", "data_dir: "+dataDir+"\n")

	ledger, err := orders.NewWALStore(filepath.Join(dataDir, "orders"))
	require.NoError(t, err)
	pair := domain.Pair{From: "BTC", To: "USDT"}
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, account := range []string{"alice", "bob"} {
		o, err := domain.NewOrder(account, ts.Add(time.Duration(i)*time.Hour), account, pair, domain.StrategyDip,
			decimal.NewFromInt(40000), decimal.NewFromInt(50), false)
		require.NoError(t, err)
		require.NoError(t, ledger.Append(o))
	}
	require.NoError(t, ledger.Close())

	out := execute(t, "--config", cfgPath, "orders", "list", "--account", "bob")
	require.Contains(t, out, "bob")
	require.NotContains(t, out, "alice")
	require.Contains(t, out, "2024-03-01 13:00:00")

	out = execute(t, "--config", cfgPath, "orders", "list", "--strategy", "averaging")
	require.Contains(t, out, "nothing to show")
}

func TestOrderFlags(t *testing.T) {
	f, err := orderFlags{symbol: "eth_usdt", strategy: "dca", dummy: "true"}.filter()
	require.NoError(t, err)
	require.Equal(t, "ETH/USDT", f.Symbol)
	require.Equal(t, domain.StrategyAveraging, f.Strategy)
	require.NotNil(t, f.Dummy)
	require.True(t, *f.Dummy)

	_, err = orderFlags{dummy: "sometimes"}.filter()
	require.Error(t, err)
}

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	got, err := parseSince("72h", now)
	require.NoError(t, err)
	require.Equal(t, now.Add(-72*time.Hour), got)

	got, err = parseSince("2024-03-01", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = parseSince("last week", now)
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	require.Equal(t, "dipbuyer dev\n", execute(t, "version"))
}
