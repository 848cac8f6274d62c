// Package ledger keeps the most recent trades in a fixed-capacity ring,
// newest first by insertion order.
package ledger

import (
	"github.com/pkg/errors"

	"github.com/rewired-gh/tradestream/internal/models"
)

var ErrDuplicateID = errors.New("trade id already in ledger")

// Ledger is not safe for concurrent use; it has a single writer and hands
// out copies.
type Ledger struct {
	buf   []models.Trade
	next  int // slot the next insert writes to; the oldest entry when full
	size  int
	index map[string]int // id -> slot
}

// New returns an empty ledger holding at most capacity trades.
func New(capacity int) *Ledger {
	if capacity < 1 {
		capacity = 1
	}
	return &Ledger{
		buf:   make([]models.Trade, capacity),
		index: make(map[string]int, capacity),
	}
}

// Insert puts t at the head. When the ledger was full, the oldest trade is
// removed in the same call and returned with ok set.
func (l *Ledger) Insert(t models.Trade) (evicted models.Trade, ok bool, err error) {
	if _, exists := l.index[t.ID]; exists {
		return models.Trade{}, false, errors.Wrapf(ErrDuplicateID, "insert %s", t.ID)
	}

	if l.size == len(l.buf) {
		evicted, ok = l.buf[l.next], true
		delete(l.index, evicted.ID)
	} else {
		l.size++
	}

	l.buf[l.next] = t
	l.index[t.ID] = l.next
	l.next = (l.next + 1) % len(l.buf)
	return evicted, ok, nil
}

// Snapshot returns a copy of the contents, newest first.
func (l *Ledger) Snapshot() []models.Trade {
	out := make([]models.Trade, l.size)
	for i := range out {
		out[i] = l.buf[l.slot(i)]
	}
	return out
}

// slot maps a newest-first position to its ring index.
func (l *Ledger) slot(pos int) int {
	n := len(l.buf)
	return ((l.next-1-pos)%n + n) % n
}

// Get returns the trade with the given id if it is still held.
func (l *Ledger) Get(id string) (models.Trade, bool) {
	i, ok := l.index[id]
	if !ok {
		return models.Trade{}, false
	}
	return l.buf[i], true
}

func (l *Ledger) Contains(id string) bool {
	_, ok := l.index[id]
	return ok
}

func (l *Ledger) Len() int { return l.size }

func (l *Ledger) Cap() int { return len(l.buf) }

// Clear empties the ledger.
func (l *Ledger) Clear() {
	clear(l.buf)
	clear(l.index)
	l.next = 0
	l.size = 0
}
