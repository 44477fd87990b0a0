// File: internal/infra/adapters/telegram/real_bot.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/config"
	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.TelegramBotAdapter = (*RealBot)(nil)

// RealBot talks to the Telegram Bot API. Outbound text is split at
// domain.SplitThreshold so a long translation never trips the 4096
// character message limit, and it doubles as the poller's update source.
type RealBot struct {
	api *tgbotapi.BotAPI
	log *zerolog.Logger
}

func NewRealBot(cfg *config.BotConfig, logger *zerolog.Logger) (*RealBot, error) {
	if cfg == nil || cfg.Token == "" {
		return nil, errors.New("bot token is not configured")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	l := logger.With().Str("component", "telegram").Logger()
	l.Info().Str("username", api.Self.UserName).Msg("telegram bot authorized")
	return &RealBot{api: api, log: &l}, nil
}

func (b *RealBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	return b.send(ctx, chatID, 0, text)
}

func (b *RealBot) SendReply(ctx context.Context, chatID int64, replyTo int, text string) error {
	return b.send(ctx, chatID, replyTo, text)
}

// send delivers text chunk by chunk, threading the first chunk under
// replyTo when set. AllowSendingWithoutReply keeps delivery working
// after the original message was deleted.
func (b *RealBot) send(ctx context.Context, chatID int64, replyTo int, text string) error {
	for i, chunk := range domain.SplitMessage(text, domain.SplitThreshold) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == 0 && replyTo != 0 {
			msg.ReplyToMessageID = replyTo
			msg.AllowSendingWithoutReply = true
		}
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

// SendButtons sends a message with inline buttons.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else a safe fallback uses btn.Text as callback data
func (b *RealBot) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			var kb tgbotapi.InlineKeyboardButton
			switch {
			case btn.URL != "":
				kb = tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL)
			case btn.Data != "":
				kb = tgbotapi.NewInlineKeyboardButtonData(label, btn.Data)
			default:
				kb = tgbotapi.NewInlineKeyboardButtonData(label, label)
			}
			r = append(r, kb)
		}
		kbRows = append(kbRows, r)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// GetUpdates passes long polling through to the API. Button-tap updates
// get their callback query answered here, so the client spinner stops
// before the tap even reaches the queue.
func (b *RealBot) GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	updates, err := b.api.GetUpdates(cfg)
	if err != nil {
		return nil, err
	}
	for _, u := range updates {
		if u.CallbackQuery != nil {
			if _, err := b.api.Request(tgbotapi.NewCallback(u.CallbackQuery.ID, "")); err != nil {
				b.log.Debug().Err(err).Msg("callback ack failed")
			}
		}
	}
	return updates, nil
}

// EnsurePolling removes any registered webhook so getUpdates works
// again. Pending updates are kept for the poller to drain.
func (b *RealBot) EnsurePolling(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	b.log.Info().Msg("polling mode, webhook removed")
	return nil
}

// EnsureWebhook registers the public URL with Telegram. The secret token
// comes back on every delivery in X-Telegram-Bot-Api-Secret-Token and
// the webhook handler rejects anything without it.
func (b *RealBot) EnsureWebhook(ctx context.Context, cfg config.WebhookConfig) error {
	if cfg.PublicURL == "" {
		return errors.New("webhook mode needs ingest.webhook.public_url")
	}
	path := cfg.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	link := strings.TrimRight(cfg.PublicURL, "/") + path

	// The library predates secret_token, so the request is built by hand.
	params := tgbotapi.Params{}
	params.AddNonEmpty("url", link)
	params.AddNonEmpty("secret_token", cfg.SecretToken)
	if _, err := b.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	b.log.Info().Str("url", link).Msg("webhook registered")
	return nil
}

// RegisterCommands publishes the command menu users see in the chat UI.
func (b *RealBot) RegisterCommands(ctx context.Context) error {
	commands := []tgbotapi.BotCommand{
		{Command: "setlang", Description: "Set target languages"},
		{Command: "setsource", Description: "Pin or auto-detect the source language"},
		{Command: "setprovider", Description: "Pick a translation engine"},
		{Command: "autotranslate", Description: "Turn automatic translation on or off"},
		{Command: "status", Description: "Current settings and engine health"},
		{Command: "help", Description: "How to use the bot"},
	}
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return fmt.Errorf("set my commands: %w", err)
	}
	return nil
}
