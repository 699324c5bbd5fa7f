package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/internal/events"
	"github.com/vadiminshakov/dipbuyer/internal/storage/orders"
	"go.uber.org/zap"
)

var btcusdt = domain.Pair{From: "BTC", To: "USDT"}

func newLedger(t *testing.T) *orders.WALStore {
	t.Helper()
	ledger, err := orders.NewWALStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func appendOrder(t *testing.T, ledger *orders.WALStore, id, account string, ts time.Time, s domain.Strategy, dummy bool) {
	t.Helper()
	o, err := domain.NewOrder(id, ts, account, btcusdt, s, decimal.NewFromInt(40000), decimal.NewFromInt(20), dummy)
	require.NoError(t, err)
	require.NoError(t, ledger.Append(o))
}

func readEvent(t *testing.T, reader *bufio.Reader, name string) string {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(line) != "event: "+name {
			continue
		}
		data, err := reader.ReadString('\n')
		require.NoError(t, err)
		return strings.TrimPrefix(strings.TrimSpace(data), "data: ")
	}
}

func TestHealthz(t *testing.T) {
	srv := NewServer(":0", nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestOrders_Filter(t *testing.T) {
	ledger := newLedger(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	appendOrder(t, ledger, "1", "alice", base, domain.StrategyAveraging, false)
	appendOrder(t, ledger, "2", "alice", base.Add(time.Hour), domain.StrategyDip, true)
	appendOrder(t, ledger, "3", "bob", base.Add(2*time.Hour), domain.StrategyDip, false)

	srv := NewServer(":0", ledger, nil, zap.NewNop())

	tests := []struct {
		name  string
		query string
		ids   []string
	}{
		{"all", "", []string{"1", "2", "3"}},
		{"account", "?account=alice", []string{"1", "2"}},
		{"strategy and dummy", "?strategy=dip&dummy=false", []string{"3"}},
		{"symbol", "?symbol=btc_usdt&account=bob", []string{"3"}},
		{"since", "?since=2024-03-01T01:00:00Z", []string{"2", "3"}},
		{"nothing", "?account=carol", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var got []domain.Order
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

			ids := make([]string, 0, len(got))
			for _, o := range got {
				ids = append(ids, o.ID)
			}
			require.Equal(t, tt.ids, ids)
		})
	}
}

func TestOrders_BadFilter(t *testing.T) {
	srv := NewServer(":0", newLedger(t), nil, zap.NewNop())

	for _, q := range []string{"?dummy=maybe", "?since=yesterday", "?strategy=grid", "?symbol=BTCUSDT"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders"+q, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestOrderStream_ResumesFromLastEventID(t *testing.T) {
	ledger := newLedger(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	appendOrder(t, ledger, "1", "alice", base, domain.StrategyAveraging, false)

	srv := NewServer(":0", ledger, nil, zap.NewNop())
	srv.pollInterval = 10 * time.Millisecond
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/orders/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Last-Event-ID", strconv.FormatUint(ledger.CurrentIndex(), 10))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	appendOrder(t, ledger, "2", "alice", base.Add(time.Hour), domain.StrategyDip, false)

	var got domain.Order
	require.NoError(t, json.Unmarshal([]byte(readEvent(t, bufio.NewReader(resp.Body), "order")), &got))
	require.Equal(t, "2", got.ID)
}

func TestEventStream(t *testing.T) {
	broadcaster := events.NewBroadcaster(8)
	srv := NewServer(":0", nil, broadcaster, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events/stream?account=alice", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return broadcaster.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	now := time.Now()
	broadcaster.Publish(events.NewCheckEvent(now, "bob", btcusdt, domain.StrategyDip, false, domain.CheckNoAction, nil, ""))
	broadcaster.Publish(events.NewCheckEvent(now, "alice", btcusdt, domain.StrategyDip, false, domain.CheckInsufficientFunds, nil, "Insufficient funds"))

	var ev events.CheckEvent
	require.NoError(t, json.Unmarshal([]byte(readEvent(t, bufio.NewReader(resp.Body), "check")), &ev))
	require.Equal(t, "alice", ev.AccountID)
	require.Equal(t, string(domain.CheckInsufficientFunds), ev.Result)
}

func TestStreamsUnavailable(t *testing.T) {
	srv := NewServer(":0", nil, nil, zap.NewNop())

	for _, path := range []string{"/orders", "/orders/stream", "/events/stream"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}
