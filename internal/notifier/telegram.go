package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Houeta/bookwatch/internal/models"
	"gopkg.in/telebot.v4"
)

// TelegramSink posts the cycle's change summary to one chat. It is a
// send-only bot; no command routing, no polling.
type TelegramSink struct {
	log    *slog.Logger
	bot    *telebot.Bot
	chatID int64
}

func NewTelegramSink(log *slog.Logger, token string, chatID int64) (*TelegramSink, error) {
	bot, err := telebot.NewBot(telebot.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", bot.Me.Username)

	return &TelegramSink{log: log, bot: bot, chatID: chatID}, nil
}

// Deliver sends the batch as one text message. An empty batch is skipped.
func (s *TelegramSink) Deliver(ctx context.Context, changes []models.ChangeRecord) error {
	const opn = "notifier.TelegramSink.Deliver"

	if len(changes) == 0 {
		return nil
	}

	if _, err := s.bot.Send(telebot.ChatID(s.chatID), renderText(changes)); err != nil {
		return fmt.Errorf("%s: failed to send message: %w", opn, err)
	}

	s.log.InfoContext(ctx, "Telegram notification sent", "chat_id", s.chatID, "changes", len(changes))

	return nil
}
