// Package producer implements a mock trade feed for local runs and tests.
package producer

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rewired-gh/tradestream/internal/models"
)

var (
	Symbols   = []string{"BTC/USD", "ETH/USD", "SOL/USD", "XRP/USD"}
	Exchanges = []string{"Binance", "Coinbase", "Kraken", "Gemini"}
)

const (
	minPrice = 100.0
	maxPrice = 4000.0
	minSize  = 0.1
	maxSize  = 10.0
)

// Generator produces random trades. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: time.Now,
	}
}

func (g *Generator) Next() models.Trade {
	g.mu.Lock()
	defer g.mu.Unlock()

	side := models.SideBuy
	if g.rng.Float64() > 0.5 {
		side = models.SideSell
	}
	return models.Trade{
		ID:        uuid.NewString(),
		Timestamp: g.now().UnixMilli(),
		Symbol:    Symbols[g.rng.IntN(len(Symbols))],
		Price:     g.uniform(minPrice, maxPrice, 2),
		Size:      g.uniform(minSize, maxSize, 4),
		Side:      side,
		Exchange:  Exchanges[g.rng.IntN(len(Exchanges))],
	}
}

func (g *Generator) uniform(lo, hi float64, places int32) float64 {
	v := decimal.NewFromFloat(g.rng.Float64()*(hi-lo) + lo).Round(places)
	// rounding may land exactly on hi
	if v.GreaterThanOrEqual(decimal.NewFromFloat(hi)) {
		v = decimal.NewFromFloat(hi).Sub(decimal.New(1, -places))
	}
	return v.InexactFloat64()
}
