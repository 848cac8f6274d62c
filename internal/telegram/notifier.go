package telegram

import (
	"context"

	"github.com/rewired-gh/tradestream/internal/logger"
	"github.com/rewired-gh/tradestream/internal/models"
	"github.com/rewired-gh/tradestream/internal/stream"
)

const defaultQueueSize = 32

// Alerter is the subset of Client used by Notifier.
type Alerter interface {
	SendError(err error) error
	SendRecovery(failureCount int) error
}

// Notifier turns controller lifecycle events into Telegram alerts.
// Only the first failure of a consecutive run is alerted; the next successful
// open sends a recovery notice with the run length.
type Notifier struct {
	alerter Alerter
	queue   chan stream.Event

	consecutiveFailures int
}

func NewNotifier(alerter Alerter, queueSize int) *Notifier {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Notifier{
		alerter: alerter,
		queue:   make(chan stream.Event, queueSize),
	}
}

// OnEvent is a stream.Listener. It never blocks the controller loop.
func (n *Notifier) OnEvent(ev stream.Event) {
	if ev.Type != stream.EventState {
		return
	}
	if ev.Err == nil && ev.State != models.StateConnected {
		return
	}
	select {
	case n.queue <- ev:
	default:
		logger.Warn("Telegram alert queue full, dropping %s event", ev.State)
	}
}

// Run delivers queued alerts until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-n.queue:
			n.handle(ev)
		}
	}
}

func (n *Notifier) handle(ev stream.Event) {
	if ev.Err != nil {
		n.consecutiveFailures++
		if n.consecutiveFailures == 1 {
			if err := n.alerter.SendError(ev.Err); err != nil {
				logger.Warn("Failed to send error notification to Telegram: %v", err)
			}
		}
		return
	}

	if n.consecutiveFailures > 0 {
		if err := n.alerter.SendRecovery(n.consecutiveFailures); err != nil {
			logger.Warn("Failed to send recovery notification to Telegram: %v", err)
		}
	}
	n.consecutiveFailures = 0
}
