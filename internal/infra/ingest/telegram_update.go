package ingest

import (
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/model"
)

// fromTelegramUpdate normalizes a raw Telegram update into the shape the
// queue carries. Channel posts count as messages; inline-button taps
// become the command they stand for; updates with nothing translatable
// (stickers, joins, edits) report ok=false.
func fromTelegramUpdate(u tgbotapi.Update, mode model.IngestMode, now time.Time) (model.InboundUpdate, bool) {
	if u.CallbackQuery != nil {
		return fromCallback(u, mode, now)
	}

	msg := u.Message
	if msg == nil {
		msg = u.ChannelPost
	}
	if msg == nil || msg.Chat == nil {
		return model.InboundUpdate{}, false
	}

	out := model.InboundUpdate{
		UpdateID:   u.UpdateID,
		ChatID:     msg.Chat.ID,
		MessageID:  msg.MessageID,
		ReceivedAt: now,
		Mode:       mode,
		TraceID:    uuid.NewString(),
	}
	if msg.From != nil {
		out.SenderID = msg.From.ID
	}
	if msg.IsCommand() {
		out.IsCommand = true
		out.Command = msg.Command()
		out.Args = msg.CommandArguments()
		out.Text = msg.Text
		return out, true
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	text = domain.NormalizeText(text)
	if text == "" {
		return model.InboundUpdate{}, false
	}
	out.Text = text
	return out, true
}

// fromCallback maps an inline-button tap to the command it stands for.
// Button data carries "cmd:<name>[ <args>]", so a tap behaves exactly
// like typing the command. Anything else is not ours and is dropped.
func fromCallback(u tgbotapi.Update, mode model.IngestMode, now time.Time) (model.InboundUpdate, bool) {
	q := u.CallbackQuery
	if q.From == nil || !strings.HasPrefix(q.Data, "cmd:") {
		return model.InboundUpdate{}, false
	}
	name := strings.TrimPrefix(q.Data, "cmd:")
	args := ""
	if i := strings.IndexByte(name, ' '); i >= 0 {
		name, args = name[:i], strings.TrimSpace(name[i+1:])
	}
	if name == "" {
		return model.InboundUpdate{}, false
	}

	out := model.InboundUpdate{
		UpdateID:   u.UpdateID,
		ChatID:     q.From.ID,
		SenderID:   q.From.ID,
		ReceivedAt: now,
		Mode:       mode,
		TraceID:    uuid.NewString(),
		IsCommand:  true,
		Command:    strings.ToLower(name),
		Args:       args,
		Text:       "/" + name,
	}
	if q.Message != nil && q.Message.Chat != nil {
		out.ChatID = q.Message.Chat.ID
		out.MessageID = q.Message.MessageID
	}
	return out, true
}
