package marketdata

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rustyeddy/simcube/scenario"
)

// ErrUnknownKey is returned when a key has no cell in a QuoteBank.
var ErrUnknownKey = errors.New("no quote registered for key")

// Quote is a read-only handle on a scalar market value.
type Quote interface {
	Value() float64
}

// ConstQuote is a Quote that never changes.
type ConstQuote float64

func (q ConstQuote) Value() float64 { return float64(q) }

// Observer is a derived structure that caches values computed from quotes.
type Observer interface {
	// Invalidate marks the cache stale; it is recomputed on next read.
	Invalidate()
	// Refresh recomputes the cache now.
	Refresh()
}

// NotifyMode selects how a QuoteBank tells observers about writes.
type NotifyMode int

const (
	// NotifyEachWrite invalidates a cell's observers on every write.
	NotifyEachWrite NotifyMode = iota
	// NotifyBatch collects invalidations during a batch and delivers one per
	// observer when the batch ends.
	NotifyBatch
	// NotifyNone sends nothing while writing and refreshes every observer
	// eagerly when the batch ends.
	NotifyNone
)

// QuoteBank owns the mutable quote cells of a simulation market. It is the
// only place cell values change; structures get read-only Quote handles.
// The set of cells is fixed once simulation starts.
type QuoteBank struct {
	mode NotifyMode

	keys   []scenario.Key
	index  map[scenario.Key]int
	values []float64

	observers [][]int // cell -> observer ids
	all       []Observer
	ids       map[Observer]int

	inBatch bool
	pending []bool
}

// NewQuoteBank returns an empty bank.
func NewQuoteBank(mode NotifyMode) *QuoteBank {
	return &QuoteBank{
		mode:  mode,
		index: make(map[scenario.Key]int),
		ids:   make(map[Observer]int),
	}
}

type bankQuote struct {
	b *QuoteBank
	i int
}

func (q bankQuote) Value() float64 { return q.b.values[q.i] }

// Register adds a cell for k seeded with v and returns its handle.
func (b *QuoteBank) Register(k scenario.Key, v float64) (Quote, error) {
	if _, ok := b.index[k]; ok {
		return nil, fmt.Errorf("quote for key %s already registered", k)
	}
	i := len(b.values)
	b.index[k] = i
	b.keys = append(b.keys, k)
	b.values = append(b.values, v)
	b.observers = append(b.observers, nil)
	return bankQuote{b: b, i: i}, nil
}

// Observe subscribes o to every bank cell among qs. Quotes that do not
// belong to this bank are ignored.
func (b *QuoteBank) Observe(o Observer, qs ...Quote) {
	id, ok := b.ids[o]
	if !ok {
		id = len(b.all)
		b.ids[o] = id
		b.all = append(b.all, o)
		b.pending = append(b.pending, false)
	}
	for _, q := range qs {
		bq, ok := q.(bankQuote)
		if !ok || bq.b != b {
			continue
		}
		if !containsInt(b.observers[bq.i], id) {
			b.observers[bq.i] = append(b.observers[bq.i], id)
		}
	}
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// Len returns the number of cells.
func (b *QuoteBank) Len() int { return len(b.values) }

// Keys returns the registered keys sorted by the key order.
func (b *QuoteBank) Keys() []scenario.Key {
	out := make([]scenario.Key, len(b.keys))
	copy(out, b.keys)
	scenario.SortKeys(out)
	return out
}

// Has reports whether k has a cell.
func (b *QuoteBank) Has(k scenario.Key) bool {
	_, ok := b.index[k]
	return ok
}

// Value returns the current value of k.
func (b *QuoteBank) Value(k scenario.Key) (float64, error) {
	i, ok := b.index[k]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKey, k)
	}
	return b.values[i], nil
}

// Lookup returns the cell position of k.
func (b *QuoteBank) Lookup(k scenario.Key) (int, bool) {
	i, ok := b.index[k]
	return i, ok
}

// Set writes v into k's cell.
func (b *QuoteBank) Set(k scenario.Key, v float64) error {
	i, ok := b.index[k]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, k)
	}
	b.SetAt(i, v)
	return nil
}

// SetAt writes v into cell i.
func (b *QuoteBank) SetAt(i int, v float64) {
	b.values[i] = v
	switch {
	case b.mode == NotifyEachWrite || (b.mode == NotifyBatch && !b.inBatch):
		for _, id := range b.observers[i] {
			b.all[id].Invalidate()
		}
	case b.mode == NotifyBatch:
		for _, id := range b.observers[i] {
			b.pending[id] = true
		}
	}
}

// BeginBatch starts a group of writes.
func (b *QuoteBank) BeginBatch() { b.inBatch = true }

// EndBatch delivers what the notify mode deferred during the batch.
func (b *QuoteBank) EndBatch() {
	b.inBatch = false
	switch b.mode {
	case NotifyBatch:
		for id, p := range b.pending {
			if p {
				b.all[id].Invalidate()
				b.pending[id] = false
			}
		}
	case NotifyNone:
		for _, o := range b.all {
			o.Refresh()
		}
	}
}

// Snapshot copies the current values in key order.
func (b *QuoteBank) Snapshot() map[scenario.Key]float64 {
	out := make(map[scenario.Key]float64, len(b.values))
	for i, k := range b.keys {
		out[k] = b.values[i]
	}
	return out
}

// lazy is the cache bookkeeping shared by observing structures.
type lazy struct {
	mu      sync.Mutex
	fresh   bool
	compute func()
}

func (l *lazy) Invalidate() {
	l.mu.Lock()
	l.fresh = false
	l.mu.Unlock()
}

func (l *lazy) Refresh() {
	l.mu.Lock()
	l.compute()
	l.fresh = true
	l.mu.Unlock()
}

func (l *lazy) ensure() {
	l.mu.Lock()
	if !l.fresh {
		l.compute()
		l.fresh = true
	}
	l.mu.Unlock()
}
