// Package telegram sends operational alerts about the trade feed via the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/tradestream/internal/logger"
	"github.com/rewired-gh/tradestream/internal/stream"
)

// StatusFunc returns the current view for the /status command.
type StatusFunc func() (stream.Snapshot, error)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context, status StatusFunc) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message, status)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message, status StatusFunc) {
	var reply tgbotapi.MessageConfig
	switch msg.Command() {
	case "ping":
		reply = tgbotapi.NewMessage(msg.Chat.ID, "Pong")
	case "status":
		if status == nil {
			return
		}
		reply = tgbotapi.NewMessage(msg.Chat.ID, commandStatus(status))
		reply.ParseMode = "MarkdownV2"
	default:
		return
	}
	if _, err := c.bot.Send(reply); err != nil {
		logger.Warn("Failed to answer /%s: %v", msg.Command(), err)
	}
}

func commandStatus(status StatusFunc) string {
	snap, err := status()
	if err != nil {
		return escapeMarkdownV2("Status unavailable: " + err.Error())
	}
	return formatStatus(snap)
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a feed connection error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(connErr error) error {
	text := fmt.Sprintf("⚠️ *Trade feed error*\n`%s`", escapeMarkdownV2(connErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Trade feed recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// formatStatus renders a controller snapshot as a Telegram MarkdownV2 message.
func formatStatus(snap stream.Snapshot) string {
	var b strings.Builder
	b.WriteString("📡 *Trade feed status*\n\n")

	fmt.Fprintf(&b, "State: *%s*\n", escapeMarkdownV2(snap.State.String()))
	if snap.URL != "" {
		fmt.Fprintf(&b, "URL: `%s`\n", escapeMarkdownV2(snap.URL))
	}
	fmt.Fprintf(&b, "Trades: %d \\(%d highlighted\\)\n", len(snap.Trades), len(snap.Highlighted))
	if len(snap.Symbols) > 0 {
		fmt.Fprintf(&b, "Symbols: %s\n", escapeMarkdownV2(strings.Join(snap.Symbols, ", ")))
	}
	if len(snap.Trades) > 0 {
		last := snap.Trades[0]
		price := escapeMarkdownV2(strconv.FormatFloat(last.Price, 'f', -1, 64))
		fmt.Fprintf(&b, "Last: %s %s %s\n",
			escapeMarkdownV2(last.Symbol), price, directionEmoji(string(last.PriceChangeDirection)))
	}
	if snap.Error != "" {
		fmt.Fprintf(&b, "\n⚠️ `%s`\n", escapeMarkdownV2(snap.Error))
	}
	return b.String()
}

func directionEmoji(direction string) string {
	switch direction {
	case "up":
		return "📈"
	case "down":
		return "📉"
	default:
		return "➖"
	}
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
