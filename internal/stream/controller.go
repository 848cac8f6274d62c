// Package stream owns the trade feed connection and the in-memory view built
// from it: the bounded ledger, per-symbol price directions and highlights.
//
// All state is mutated on a single loop goroutine (Run). Socket reads, dials
// and highlight timers run elsewhere and only post closures into that loop, so
// frames are applied strictly in delivery order and commands never interleave
// with a half-processed frame.
package stream

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/rewired-gh/tradestream/internal/feed"
	"github.com/rewired-gh/tradestream/internal/highlight"
	"github.com/rewired-gh/tradestream/internal/ledger"
	"github.com/rewired-gh/tradestream/internal/logger"
	"github.com/rewired-gh/tradestream/internal/models"
	"github.com/rewired-gh/tradestream/internal/tracker"
)

type Config struct {
	Capacity         int
	HighlightDelay   time.Duration
	HandshakeTimeout time.Duration
	ReadLimit        int64
}

func DefaultConfig() Config {
	return Config{
		Capacity:         500,
		HighlightDelay:   highlight.DefaultDelay,
		HandshakeTimeout: 10 * time.Second,
		ReadLimit:        64 * 1024,
	}
}

// Options carries optional collaborators. The zero value is usable.
type Options struct {
	Listener Listener
	Recorder Recorder
	Clock    highlight.Clock
	Dialer   *websocket.Dialer
}

// Snapshot is a read-only copy of the controller's observable state.
type Snapshot struct {
	State       models.ConnState `json:"state"`
	Connected   bool             `json:"connected"`
	URL         string           `json:"url,omitempty"`
	Err         error            `json:"-"`
	Error       string           `json:"error,omitempty"`
	Trades      []models.Trade   `json:"trades"`
	Highlighted []string         `json:"highlighted"`
	Symbols     []string         `json:"symbols"`
}

type Controller struct {
	cfg      Config
	dialer   *websocket.Dialer
	listener Listener
	recorder Recorder

	inbox   chan func()
	done    chan struct{}
	started atomic.Bool

	// Owned by the loop.
	state      models.ConnState
	url        string
	lastErr    error
	conn       *connection
	seq        uint64
	tracker    *tracker.Tracker
	ledger     *ledger.Ledger
	highlights *highlight.Scheduler
}

func New(cfg Config, opts Options) *Controller {
	def := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.HighlightDelay <= 0 {
		cfg.HighlightDelay = def.HighlightDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		}
	}

	c := &Controller{
		cfg:      cfg,
		dialer:   dialer,
		listener: opts.Listener,
		recorder: opts.Recorder,
		inbox:    make(chan func()),
		done:     make(chan struct{}),
		tracker:  tracker.New(),
		ledger:   ledger.New(cfg.Capacity),
	}
	c.highlights = highlight.New(cfg.HighlightDelay, opts.Clock, c.dispatch)
	c.highlights.OnExpire = func(id string) {
		c.emit(Event{Type: EventHighlight, ID: id})
	}
	return c
}

// Run processes events until ctx is cancelled. On return the connection is
// closed and all highlight timers are stopped.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			if c.conn != nil {
				c.conn.close()
				c.conn = nil
			}
			c.highlights.Clear()
			logger.Debug("Stream controller stopped")
			return nil
		case fn := <-c.inbox:
			fn()
		}
	}
}

// Connect tears down any current connection and starts dialing rawURL.
// It returns once the attempt has started; the outcome is reported through
// Snapshot and the listener. Errors returned here are also recorded as the
// current error.
func (c *Controller) Connect(rawURL string) error {
	var result error
	if err := c.do(func() { result = c.connect(rawURL) }); err != nil {
		return err
	}
	return result
}

// Disconnect closes the connection and empties all ingestion state. Calling
// it while disconnected changes nothing.
func (c *Controller) Disconnect() error {
	return c.do(c.disconnect)
}

// ClearTrades empties the ledger, highlights and price history without
// touching the connection.
func (c *Controller) ClearTrades() error {
	return c.do(func() {
		if c.resetIngestion() {
			c.emit(Event{Type: EventTrades})
		}
	})
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := c.do(func() { snap = c.snapshot() })
	return snap, err
}

// do runs fn on the loop and waits for it to finish.
func (c *Controller) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case c.inbox <- func() { defer close(ran); fn() }:
	case <-c.done:
		return ErrStopped
	}
	<-ran
	return nil
}

// dispatch is used by highlight timers.
func (c *Controller) dispatch(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.done:
	}
}

func (c *Controller) connect(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		err := errors.Wrap(ErrInvalidArgument, "websocket URL cannot be empty")
		c.reportError(err)
		return err
	}

	if c.conn != nil {
		logger.Info("Replacing connection to %s", c.url)
		c.disconnect()
	}

	target, err := parseTarget(rawURL)
	if err != nil {
		logger.Error("Failed to open connection to %s: %v", rawURL, err)
		c.reportError(err)
		return err
	}

	c.seq++
	conn := newConnection(c.seq, target)
	c.conn = conn
	c.url = target
	c.setState(models.StateConnecting, nil)

	go c.dial(conn)
	return nil
}

func (c *Controller) disconnect() {
	if c.conn != nil {
		c.conn.close()
		c.conn = nil
		logger.Info("Disconnected from %s", c.url)
	}
	c.url = ""
	c.setState(models.StateDisconnected, nil)
	if c.resetIngestion() {
		c.emit(Event{Type: EventTrades})
	}
}

// resetIngestion empties tracker, ledger and highlights and cancels every
// pending highlight timer. It reports whether anything was removed.
func (c *Controller) resetIngestion() bool {
	changed := c.ledger.Len() > 0 || c.highlights.Len() > 0 || c.tracker.Len() > 0
	c.highlights.Clear()
	c.ledger.Clear()
	c.tracker.Reset()
	return changed
}

func (c *Controller) handleOpen(conn *connection, ws *websocket.Conn, err error) {
	if c.conn != conn {
		if ws != nil {
			_ = ws.Close()
		}
		return
	}
	if err != nil {
		c.conn = nil
		connErr := errors.Wrapf(ErrConnection, "websocket connection to %s failed: %v", conn.url, err)
		logger.Error("WebSocket dial failed: %v", err)
		c.lastErr = connErr
		c.setState(models.StateDisconnected, connErr)
		return
	}

	conn.ws = ws
	ws.SetReadLimit(c.cfg.ReadLimit)
	c.lastErr = nil
	c.setState(models.StateConnected, nil)
	logger.Info("WebSocket connected: %s", conn.url)

	go c.read(conn, ws)
}

func (c *Controller) handleClose(conn *connection, err error) {
	if c.conn != conn {
		return
	}
	c.conn = nil
	conn.cancel()
	_ = conn.ws.Close()

	code, clean := closeStatus(err)
	logger.Info("WebSocket disconnected: code=%d clean=%v", code, clean)
	if intendedClose(code, clean) {
		c.setState(models.StateDisconnected, nil)
		return
	}

	closeErr := errors.Wrapf(ErrConnection, "websocket connection unexpectedly closed (code %d)", code)
	c.lastErr = closeErr
	c.setState(models.StateDisconnected, closeErr)
}

func (c *Controller) handleFrame(conn *connection, frame []byte) {
	if c.conn != conn {
		return
	}

	trade, err := feed.Decode(frame)
	if errors.Is(err, feed.ErrDroppedFrame) {
		logger.Warn("Received malformed trade data: %v", err)
		return
	}
	if err != nil {
		logger.Error("Failed to parse WebSocket message (%d bytes): %v", len(frame), err)
		c.reportError(errors.Wrap(err, "error parsing message"))
		return
	}

	if c.ledger.Contains(trade.ID) {
		logger.Warn("Dropping duplicate trade %s", trade.ID)
		return
	}

	c.accept(trade)
}

// accept classifies, inserts and highlights one trade in a single loop turn.
func (c *Controller) accept(trade models.Trade) {
	trade.PriceChangeDirection = c.tracker.Classify(trade.Symbol, trade.Price)

	evicted, ok, err := c.ledger.Insert(trade)
	if err != nil {
		logger.Warn("Failed to insert trade %s: %v", trade.ID, err)
		return
	}
	if ok {
		c.highlights.Cancel(evicted.ID)
	}
	c.highlights.Mark(trade.ID)

	if c.recorder != nil {
		if err := c.recorder.Record(trade); err != nil {
			logger.Warn("Failed to archive trade %s: %v", trade.ID, err)
		}
	}

	logger.Debug("Accepted trade %s %s %.4f (%s)", trade.ID, trade.Symbol, trade.Price, trade.PriceChangeDirection)
	c.emit(Event{Type: EventTrades, Trade: &trade})
}

func (c *Controller) setState(state models.ConnState, err error) {
	if c.state == state && err == nil {
		return
	}
	c.state = state
	c.emit(Event{Type: EventState, State: state, Err: err})
}

func (c *Controller) reportError(err error) {
	c.lastErr = err
	c.emit(Event{Type: EventError, State: c.state, Err: err})
}

func (c *Controller) emit(ev Event) {
	if c.listener == nil {
		return
	}
	ev.At = time.Now()
	c.listener(ev)
}

func (c *Controller) snapshot() Snapshot {
	trades := c.ledger.Snapshot()
	highlighted := make([]string, 0, c.highlights.Len())
	for _, t := range trades {
		if c.highlights.Has(t.ID) {
			highlighted = append(highlighted, t.ID)
		}
	}

	snap := Snapshot{
		State:       c.state,
		Connected:   c.state == models.StateConnected,
		URL:         c.url,
		Err:         c.lastErr,
		Trades:      trades,
		Highlighted: highlighted,
		Symbols:     c.tracker.Symbols(),
	}
	if c.lastErr != nil {
		snap.Error = c.lastErr.Error()
	}
	return snap
}
