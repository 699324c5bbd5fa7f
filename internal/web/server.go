// Package web serves the status endpoints: the order ledger as JSON and as an
// SSE stream, and live check events.
package web

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/internal/events"
	"github.com/vadiminshakov/dipbuyer/internal/storage/orders"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

const (
	ledgerPollInterval = 3 * time.Second
	heartbeatInterval  = 20 * time.Second
	shutdownTimeout    = 5 * time.Second
)

type orderReader interface {
	Orders(f orders.Filter) []domain.Order
	OrdersAfter(index uint64) ([]orders.Record, error)
}

// Server exposes the ledger and the live event feed over HTTP.
type Server struct {
	Addr   string
	Ledger orderReader
	Events *events.Broadcaster

	logger       *zap.Logger
	pollInterval time.Duration
}

// NewServer creates a new web server instance. events may be nil.
func NewServer(addr string, ledger orderReader, broadcaster *events.Broadcaster, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Addr:         addr,
		Ledger:       ledger,
		Events:       broadcaster,
		logger:       logger,
		pollInterval: ledgerPollInterval,
	}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", compress(http.HandlerFunc(s.handleIndex)))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/orders", compress(http.HandlerFunc(s.handleOrders)))
	mux.HandleFunc("/orders/stream", s.handleOrderStream)
	mux.HandleFunc("/events/stream", s.handleEventStream)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("status server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with ACME certificates. Port 80 answers
// HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("acme server shutdown", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("https server shutdown", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("acme server failed", zap.Error(err))
		}
	}()

	s.logger.Info("status server listening with automatic TLS",
		zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if s.Ledger == nil {
		http.Error(w, "order ledger not available", http.StatusServiceUnavailable)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	list := s.Ledger.Orders(filter)
	if list == nil {
		list = []domain.Order{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		s.logger.Warn("encode orders", zap.Error(err))
	}
}

func parseFilter(r *http.Request) (orders.Filter, error) {
	q := r.URL.Query()
	f := orders.Filter{AccountID: q.Get("account")}

	if raw := q.Get("symbol"); raw != "" {
		pair, err := domain.ParsePair(raw)
		if err != nil {
			return f, errors.Wrap(err, "symbol")
		}
		f.Symbol = pair.String()
	}
	if raw := q.Get("strategy"); raw != "" {
		st, err := domain.ParseStrategy(raw)
		if err != nil {
			return f, errors.Wrap(err, "strategy")
		}
		f.Strategy = st
	}
	if raw := q.Get("dummy"); raw != "" {
		dummy, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errors.Wrap(err, "dummy")
		}
		f.Dummy = &dummy
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, errors.Wrap(err, "since")
		}
		f.Since = since
	}
	return f, nil
}

func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	return flusher, true
}

func (s *Server) handleOrderStream(w http.ResponseWriter, r *http.Request) {
	if s.Ledger == nil {
		http.Error(w, "order ledger not available", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := startStream(w)
	if !ok {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(s.pollInterval)
	defer pollTicker.Stop()

	lastIndex := s.parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("last_event_id"))
	sendOrders := func() error {
		records, err := s.Ledger.OrdersAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Order)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: order\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendOrders(); err != nil {
		s.logger.Error("order stream initial load", zap.Error(err))
		return
	}

	// lets the client leave its loading state when the ledger is empty
	if lastIndex == 0 {
		fmt.Fprintf(w, "event: no_data\n")
		fmt.Fprintf(w, "data: {}\n\n")
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendOrders(); err != nil {
				s.logger.Warn("order stream poll", zap.Error(err))
			}
		}
	}
}

func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		http.Error(w, "event feed not available", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := startStream(w)
	if !ok {
		return
	}

	ch := s.Events.Subscribe()
	defer s.Events.Unsubscribe(ch)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	// flush headers so the client sees the stream open before the first event
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	account := r.URL.Query().Get("account")
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if account != "" && ev.AccountID != account {
				continue
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.logger.Warn("encode check event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: check\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// parseLastEventID prefers the Last-Event-ID header; the query parameter
// allows manual reconnects from a known index.
func (s *Server) parseLastEventID(headerVal, queryVal string) uint64 {
	idStr := strings.TrimSpace(headerVal)
	if idStr == "" {
		idStr = strings.TrimSpace(queryVal)
	}
	if idStr == "" {
		return 0
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		s.logger.Debug("invalid last event id", zap.String("value", idStr), zap.Error(err))
		return 0
	}
	return id
}

func compress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Vary", "Accept-Encoding")

		gz := gzip.NewWriter(w)
		defer gz.Close()

		next.ServeHTTP(&gzipResponseWriter{ResponseWriter: w, writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	writer *gzip.Writer
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	return w.writer.Write(b)
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>dipbuyer</title>
  <style>
    body { font-family:'Space Mono',monospace; margin:2rem; color:#111; }
    table { border-collapse:collapse; width:100%; font-size:.8rem; }
    th, td { border-bottom:1px solid #ddd; padding:.4rem; text-align:left; }
    .dummy { color:#9c9c9c; }
    #status { font-size:.7rem; text-transform:uppercase; letter-spacing:.1em; }
  </style>
</head>
<body>
  <h1>dipbuyer</h1>
  <div id="status">Connecting…</div>
  <h2>Orders</h2>
  <table>
    <thead><tr><th>Time</th><th>Account</th><th>Symbol</th><th>Strategy</th><th>Price</th><th>Cost</th></tr></thead>
    <tbody id="orders"></tbody>
  </table>
  <h2>Checks</h2>
  <ul id="checks"></ul>
<script>
const statusEl = document.getElementById('status');
const ordersEl = document.getElementById('orders');
const checksEl = document.getElementById('checks');

function addOrder(o){
  const row = document.createElement('tr');
  if(o.dummy){ row.className = 'dummy'; }
  [new Date(o.ts).toLocaleString(), o.account_id, o.symbol, o.strategy, o.price, o.cost].forEach((v) => {
    const cell = document.createElement('td');
    cell.textContent = v;
    row.appendChild(cell);
  });
  ordersEl.insertBefore(row, ordersEl.firstChild);
}

function connect(){
  const orders = new EventSource('/orders/stream');
  orders.addEventListener('order', (e) => addOrder(JSON.parse(e.data)));
  orders.addEventListener('no_data', () => { statusEl.textContent = 'No orders yet'; });
  orders.addEventListener('open', () => { statusEl.textContent = 'Live'; });
  orders.addEventListener('error', () => {
    statusEl.textContent = 'Reconnecting…';
    orders.close();
    setTimeout(connect, 2000);
  });
}

const checks = new EventSource('/events/stream');
checks.addEventListener('check', (e) => {
  const ev = JSON.parse(e.data);
  const item = document.createElement('li');
  item.textContent = ev.ts + ' ' + ev.account_id + ' ' + ev.symbol + ' ' + ev.strategy + ': ' + ev.result;
  checksEl.insertBefore(item, checksEl.firstChild);
});

connect();
</script>
</body>
</html>`
