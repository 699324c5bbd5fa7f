// Package orders is the append-only order ledger backed by a write-ahead log.
package orders

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/gowal"
)

const (
	DefaultDir     = "./data/orders"
	orderKeyPrefix = "order_"
	segmentLimit   = 1000
	// segments are never rotated away: the ledger keeps every order
	maxSegments = 1 << 30

	dirPermissions = 0o755
)

// ErrNotMonotonic is returned when an order is older than the latest one in its series.
var ErrNotMonotonic = errors.New("order timestamp precedes the latest order in its series")

// Record is an order together with its WAL index.
type Record struct {
	Index uint64
	Order domain.Order
}

// Filter narrows Orders listings. Zero fields match everything.
type Filter struct {
	AccountID string
	Symbol    string
	Strategy  domain.Strategy
	Dummy     *bool
	Since     time.Time
}

func (f Filter) match(o domain.Order) bool {
	switch {
	case f.AccountID != "" && f.AccountID != o.AccountID:
		return false
	case f.Symbol != "" && f.Symbol != o.Symbol:
		return false
	case f.Strategy != "" && f.Strategy != o.Strategy:
		return false
	case f.Dummy != nil && *f.Dummy != o.Dummy:
		return false
	case !f.Since.IsZero() && o.Timestamp.Before(f.Since):
		return false
	}
	return true
}

// WALStore persists orders in a WAL and keeps the latest order of every
// series in memory.
type WALStore struct {
	wal    *gowal.Wal
	mu     sync.RWMutex
	latest map[domain.SeriesKey]domain.Order
	all    []Record
}

// NewWALStore opens (or creates) the ledger in dir and replays it.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure ledger directory %s", dir)
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "orders_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init order WAL")
	}

	s := &WALStore{wal: wal, latest: make(map[domain.SeriesKey]domain.Order)}
	if err := s.recover(); err != nil {
		_ = wal.Close()
		return nil, err
	}

	return s, nil
}

func (s *WALStore) recover() error {
	current := s.wal.CurrentIndex()
	for idx := uint64(1); idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			return errors.Wrapf(err, "read order at index %d", idx)
		}
		if !strings.HasPrefix(key, orderKeyPrefix) {
			continue
		}

		var order domain.Order
		if err := json.Unmarshal(payload, &order); err != nil {
			return errors.Wrapf(err, "decode order at index %d", idx)
		}
		s.index(idx, order)
	}

	return nil
}

func (s *WALStore) index(idx uint64, order domain.Order) {
	s.all = append(s.all, Record{Index: idx, Order: order})
	series := order.Series()
	if prev, ok := s.latest[series]; !ok || !order.Timestamp.Before(prev.Timestamp) {
		s.latest[series] = order
	}
}

// Append durably records the order. Nothing is visible to readers unless the
// WAL write succeeded.
func (s *WALStore) Append(order domain.Order) error {
	if s == nil || s.wal == nil {
		return errors.New("order ledger is not initialized")
	}
	if err := order.Validate(); err != nil {
		return errors.Wrap(err, "invalid order")
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return errors.Wrap(err, "marshal order")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.latest[order.Series()]; ok && order.Timestamp.Before(prev.Timestamp) {
		return errors.Wrapf(ErrNotMonotonic, "series %s: %s < %s",
			order.Series().String(), order.Timestamp.Format(time.RFC3339), prev.Timestamp.Format(time.RFC3339))
	}

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, orderKeyPrefix+order.ID, payload); err != nil {
		return errors.Wrapf(err, "write order %s", order.ID)
	}
	s.index(nextIndex, order)

	return nil
}

// Latest returns the most recent order of the series.
func (s *WALStore) Latest(key domain.SeriesKey) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.latest[key]
	return order, ok
}

// ElapsedSinceLatest returns how long ago the series last ordered.
func (s *WALStore) ElapsedSinceLatest(key domain.SeriesKey, now time.Time) (time.Duration, bool) {
	order, ok := s.Latest(key)
	if !ok {
		return 0, false
	}
	return now.Sub(order.Timestamp), true
}

// Orders lists recorded orders matching the filter, oldest first.
func (s *WALStore) Orders(f Filter) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Order
	for _, r := range s.all {
		if f.match(r.Order) {
			out = append(out, r.Order)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// OrdersAfter returns all orders written after the provided WAL index.
func (s *WALStore) OrdersAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("order ledger is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pos := sort.Search(len(s.all), func(i int) bool { return s.all[i].Index > index })
	if pos == len(s.all) {
		return nil, nil
	}

	out := make([]Record, len(s.all)-pos)
	copy(out, s.all[pos:])
	return out, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("order ledger is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
