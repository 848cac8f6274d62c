// Package models defines the core domain entities: trades, sides, price directions and connection states.
package models

import (
	"errors"
	"math"
)

// Side is the aggressor side of a trade as reported by the producer.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is one of the known sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Direction is the derived price movement of a trade relative to the previous
// accepted trade of the same symbol.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionSame Direction = "same"
)

// Trade is one market execution event received from the feed.
// PriceChangeDirection is never transmitted by the producer; it is filled in
// once, before the trade enters the ledger.
type Trade struct {
	ID                   string    `json:"id"`
	Timestamp            int64     `json:"timestamp"`
	Symbol               string    `json:"symbol"`
	Price                float64   `json:"price"`
	Size                 float64   `json:"size"`
	Side                 Side      `json:"side"`
	Exchange             string    `json:"exchange"`
	PriceChangeDirection Direction `json:"priceChangeDirection,omitempty"`
}

// Validate checks the fields a trade needs before it can be classified.
func (t *Trade) Validate() error {
	if t.ID == "" {
		return errors.New("trade ID must not be empty")
	}
	if t.Symbol == "" {
		return errors.New("trade symbol must not be empty")
	}
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		return errors.New("trade price must be a finite number")
	}
	if t.Price < 0 {
		return errors.New("trade price must not be negative")
	}
	return nil
}
