package telegram

import (
	"context"
	"log"

	"telegram-translation-bot/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter implements adapter.TelegramBotAdapter for local/dev
// runs without a bot token. It logs messages instead of sending them.
type NoopBotAdapter struct{}

func NewNoopBotAdapter() *NoopBotAdapter {
	return &NoopBotAdapter{}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	log.Printf("[noop-telegram] to %d: %s", chatID, text)
	return nil
}

func (b *NoopBotAdapter) SendReply(ctx context.Context, chatID int64, replyTo int, text string) error {
	log.Printf("[noop-telegram] to %d (reply to %d): %s", chatID, replyTo, text)
	return nil
}

func (b *NoopBotAdapter) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	log.Printf("[noop-telegram] to %d: %s [buttons: %v]", chatID, text, rows)
	return nil
}
