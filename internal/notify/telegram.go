package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier delivers messages over the Telegram Bot API.
// The identity key is the chat id as a decimal string.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

// NewTelegramNotifier creates a Telegram notifier on top of an existing bot client.
func NewTelegramNotifier(log *slog.Logger, bot *tgbotapi.BotAPI) *TelegramNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &TelegramNotifier{
		bot:    bot,
		logger: log.With(slog.String("notifier", "telegram")),
	}
}

// Send delivers one text message to the chat identified by identityKey.
func (n *TelegramNotifier) Send(ctx context.Context, identityKey, text string) error {
	if n.bot == nil {
		return fmt.Errorf("telegram bot not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(identityKey), 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", identityKey, err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("telegram: text is required")
	}
	if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	n.logger.Debug("message sent", slog.String("chat_id", identityKey))
	return nil
}
