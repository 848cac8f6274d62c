package stream

import (
	"time"

	"github.com/rewired-gh/tradestream/internal/models"
)

type EventType string

const (
	// EventState is a connection lifecycle transition. Err is set when the
	// transition to disconnected was caused by a failure.
	EventState EventType = "state"
	// EventError reports an error that did not change the connection state
	// (invalid connect target, malformed frame).
	EventError EventType = "error"
	// EventTrades is emitted when the ledger changed: Trade is set for an
	// accepted trade and nil for a reset.
	EventTrades EventType = "trades"
	// EventHighlight is emitted when a highlight expired by timer.
	EventHighlight EventType = "highlight"
)

type Event struct {
	Type  EventType
	State models.ConnState
	Err   error
	Trade *models.Trade
	ID    string
	At    time.Time
}

// Listener receives events on the controller's loop goroutine and must not block.
type Listener func(Event)

// Recorder receives every accepted trade after it entered the ledger.
type Recorder interface {
	Record(trade models.Trade) error
}
