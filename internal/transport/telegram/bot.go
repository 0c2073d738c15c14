package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"torwatch/internal/app/node"
	"torwatch/internal/pkg/logx"
)

// Keyboard button labels, kept exactly as the menu presents them.
const (
	ButtonAdd    = "[+] Node"
	ButtonRemove = "[-] Node"
	ButtonList   = "List Nodes"
	ButtonStatus = "Status Nodes"
)

// Handler receives normalized intents parsed from incoming messages.
// Satisfied by *bot.Dispatcher.
type Handler interface {
	HandleStart(ctx context.Context, id node.UserID) error
	HandleHelp(ctx context.Context, id node.UserID) error
	HandleAddRequested(ctx context.Context, id node.UserID) error
	HandleRemoveRequested(ctx context.Context, id node.UserID) error
	HandleListRequested(ctx context.Context, id node.UserID) error
	HandleStatusRequested(ctx context.Context, id node.UserID) error
	HandleFreeText(ctx context.Context, id node.UserID, text string) error
}

// BotOptions configures the long-poll loop.
type BotOptions struct {
	// PollTimeoutSec is the long-poll timeout passed to getUpdates.
	PollTimeoutSec int

	// OffsetFile persists the last processed update ID across restarts.
	// Empty disables persistence.
	OffsetFile string
}

// Bot runs the Telegram update loop and routes messages to the Handler.
type Bot struct {
	client  *Client
	handler Handler
	opts    BotOptions
	logger  zerolog.Logger
}

// NewBot wires the update loop. The handler is typically a *bot.Dispatcher
// whose Sender is the same *Client.
func NewBot(client *Client, handler Handler, opts BotOptions) *Bot {
	if opts.PollTimeoutSec <= 0 {
		opts.PollTimeoutSec = 30
	}
	return &Bot{
		client:  client,
		handler: handler,
		opts:    opts,
		logger:  logx.Logger().With().Str("component", "TelegramBot").Logger(),
	}
}

// Run long-polls for updates until ctx is cancelled. Poll failures back off
// exponentially up to 15 seconds; handler failures are logged per message
// and never stop the loop.
func (b *Bot) Run(ctx context.Context) {
	offset, err := loadOffset(b.opts.OffsetFile)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Could not load update offset; starting from scratch.")
		offset = 0
	}

	b.logger.Info().
		Int("poll_timeout_sec", b.opts.PollTimeoutSec).
		Int64("offset", offset).
		Msg("Telegram bot started.")

	backoff := 2 * time.Second

	for {
		if ctx.Err() != nil {
			b.logger.Info().Msg("Telegram bot stopped.")
			return
		}

		updates, nextOffset, err := b.client.getUpdates(ctx, offset, b.opts.PollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info().Msg("Telegram bot stopped.")
				return
			}
			b.logger.Warn().Err(err).Msg("getUpdates failed; backing off.")
			if !sleepOrDone(ctx, backoff) {
				return
			}
			if backoff < 15*time.Second {
				backoff *= 2
				if backoff > 15*time.Second {
					backoff = 15 * time.Second
				}
			}
			continue
		}
		backoff = 2 * time.Second

		for _, upd := range updates {
			b.handleUpdate(ctx, upd)
		}

		if nextOffset > offset {
			offset = nextOffset
			if err := saveOffset(b.opts.OffsetFile, offset); err != nil {
				b.logger.Warn().Err(err).Msg("Could not persist update offset.")
			}
		}
	}
}

// handleUpdate maps one incoming message onto a dispatcher intent.
func (b *Bot) handleUpdate(ctx context.Context, upd update) {
	if upd.Message == nil {
		return
	}

	userID := node.UserID(upd.Message.Chat.ID)
	text := strings.TrimSpace(upd.Message.Text)
	if userID == 0 || text == "" {
		return
	}

	var err error
	switch text {
	case "/start":
		err = b.handler.HandleStart(ctx, userID)
	case "/help":
		err = b.handler.HandleHelp(ctx, userID)
	case ButtonAdd:
		err = b.handler.HandleAddRequested(ctx, userID)
	case ButtonRemove:
		err = b.handler.HandleRemoveRequested(ctx, userID)
	case ButtonList:
		err = b.handler.HandleListRequested(ctx, userID)
	case ButtonStatus:
		err = b.handler.HandleStatusRequested(ctx, userID)
	default:
		err = b.handler.HandleFreeText(ctx, userID, text)
	}

	if err != nil {
		b.logger.Warn().
			Err(err).
			Int64("user_id", int64(userID)).
			Msg("Failed to handle update.")
	}
}

// sleepOrDone sleeps for d, returning false if ctx was cancelled first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func loadOffset(path string) (int64, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read offset file: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return 0, nil
	}

	offset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse offset: %w", err)
	}
	if offset < 0 {
		return 0, nil
	}
	return offset, nil
}

func saveOffset(path string, offset int64) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create offset dir: %w", err)
		}
	}

	return os.WriteFile(path, []byte(strconv.FormatInt(offset, 10)+"\n"), 0o644)
}
