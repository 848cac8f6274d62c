// Package tracker derives per-symbol price direction for accepted trades.
package tracker

import (
	"sort"

	"github.com/rewired-gh/tradestream/internal/models"
)

// Tracker remembers the last accepted price of every symbol it has seen.
// It is not safe for concurrent use; the stream controller owns it.
type Tracker struct {
	lastPrices map[string]float64
}

func New() *Tracker {
	return &Tracker{lastPrices: make(map[string]float64)}
}

// Classify compares price against the last accepted price for symbol and then
// records price as the new last price. A symbol seen for the first time is
// classified as same.
func (t *Tracker) Classify(symbol string, price float64) models.Direction {
	prev, exists := t.lastPrices[symbol]
	t.lastPrices[symbol] = price
	if !exists {
		return models.DirectionSame
	}
	return getDirection(prev, price)
}

func getDirection(oldPrice, newPrice float64) models.Direction {
	switch {
	case newPrice > oldPrice:
		return models.DirectionUp
	case newPrice < oldPrice:
		return models.DirectionDown
	default:
		return models.DirectionSame
	}
}

// LastPrice returns the last accepted price for symbol.
func (t *Tracker) LastPrice(symbol string) (float64, bool) {
	p, ok := t.lastPrices[symbol]
	return p, ok
}

// Symbols returns the tracked symbols in lexical order.
func (t *Tracker) Symbols() []string {
	symbols := make([]string, 0, len(t.lastPrices))
	for s := range t.lastPrices {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

func (t *Tracker) Len() int {
	return len(t.lastPrices)
}

// Reset forgets all price history.
func (t *Tracker) Reset() {
	clear(t.lastPrices)
}
