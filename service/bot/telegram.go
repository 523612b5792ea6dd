package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// maxMessageLength is Telegram's limit on the text of one message, in UTF-16 code units.
	maxMessageLength = 4096
	pollTimeoutSecs  = 60
)

// telegramAPI is the subset of *tgbotapi.BotAPI used by TelegramBot.
type telegramAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramBot feeds Telegram messages into a Dispatcher and sends the replies
// back to the originating chat.
type TelegramBot struct {
	api        telegramAPI
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewTelegramBot authorizes token against the Bot API.
func NewTelegramBot(token string, d *Dispatcher, logger *slog.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	logger.Info("authorized telegram bot", "username", api.Self.UserName)
	return newTelegramBot(api, d, logger), nil
}

func newTelegramBot(api telegramAPI, d *Dispatcher, logger *slog.Logger) *TelegramBot {
	return &TelegramBot{
		api:        api,
		dispatcher: d,
		logger:     logger,
	}
}

// Run long-polls for updates until ctx is cancelled. Each message is handled
// in its own goroutine; Run waits for in-flight handlers before returning.
func (b *TelegramBot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSecs
	updates := b.api.GetUpdatesChan(u)

	// In-flight commands finish after shutdown starts; each external call is
	// still bounded by its own deadline.
	handlerCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	defer wg.Wait()

	b.logger.Info("telegram bot polling for updates")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stopping telegram bot")
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg := update.Message
			if msg == nil || msg.Chat == nil || msg.Text == "" {
				continue
			}
			wg.Go(func() {
				b.handle(handlerCtx, msg.Chat.ID, msg.Text)
			})
		}
	}
}

func (b *TelegramBot) handle(ctx context.Context, chatID int64, text string) {
	reply := func(ctx context.Context, text string) error {
		for _, chunk := range SplitMessage(text, maxMessageLength) {
			if _, err := b.api.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
				return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
			}
		}
		return nil
	}
	b.dispatcher.Dispatch(ctx, text, reply)
}

// SplitMessage breaks text into chunks of at most limit UTF-16 code units,
// the unit Telegram measures message length in. Chunks are cut on line
// boundaries; a single line longer than limit is cut mid-line. A limit below
// one returns text unsplit.
func SplitMessage(text string, limit int) []string {
	if limit < 1 || utf16Len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		chunk := strings.TrimSuffix(cur.String(), "\n")
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		cur.Reset()
		curLen = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf16Len(line)
		if curLen+n > limit {
			flush()
		}
		if n <= limit {
			cur.WriteString(line)
			curLen += n
			continue
		}
		for _, r := range line {
			w := utf16.RuneLen(r)
			if curLen+w > limit {
				flush()
			}
			cur.WriteRune(r)
			curLen += w
		}
	}
	flush()

	return chunks
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
