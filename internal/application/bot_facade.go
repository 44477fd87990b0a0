// File: internal/application/bot_facade.go
package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/config"
	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/model"
	"telegram-translation-bot/internal/domain/ports/adapter"
	"telegram-translation-bot/internal/infra/adapters/translation"
	"telegram-translation-bot/internal/infra/ingest"
	"telegram-translation-bot/internal/infra/logging"
	"telegram-translation-bot/internal/infra/metrics"
	"telegram-translation-bot/internal/infra/redis"
	"telegram-translation-bot/internal/usecase"
)

// HealthReporter exposes per-provider health scores for /status.
type HealthReporter interface {
	HealthSnapshot() []translation.ProviderStatus
}

// Compile-time check: the facade is what the intake routes commands to.
var _ ingest.CommandHandler = (*BotFacade)(nil)

// BotFacade routes chat commands to the preference and stats usecases
// and renders localized replies. Commands run synchronously at ingest,
// ahead of any queued translation work for the chat.
type BotFacade struct {
	prefs     usecase.PreferencesUseCase
	stats     usecase.StatsUseCase
	bot       adapter.TelegramBotAdapter
	health    HealthReporter
	limiter   *redis.RateLimiter
	loc       usecase.Localizer
	locale    string
	providers []string
	admins    map[int64]struct{}
	limits    config.RateLimitConfig
	log       *zerolog.Logger
}

func NewBotFacade(
	prefs usecase.PreferencesUseCase,
	stats usecase.StatsUseCase,
	bot adapter.TelegramBotAdapter,
	health HealthReporter,
	limiter *redis.RateLimiter,
	loc usecase.Localizer,
	locale string,
	providers []string,
	adminIDs []int64,
	limits config.RateLimitConfig,
	logger *zerolog.Logger,
) *BotFacade {
	l := logger.With().Str("component", "facade").Logger()
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &BotFacade{
		prefs:     prefs,
		stats:     stats,
		bot:       bot,
		health:    health,
		limiter:   limiter,
		loc:       loc,
		locale:    locale,
		providers: providers,
		admins:    admins,
		limits:    limits,
		log:       &l,
	}
}

func (b *BotFacade) HandleCommand(ctx context.Context, upd model.InboundUpdate) {
	ctx = logging.WithChatID(ctx, upd.ChatID)
	if upd.TraceID != "" {
		ctx = logging.WithTraceID(ctx, upd.TraceID)
	}
	log := logging.With(ctx, b.log)

	command := strings.ToLower(upd.Command)
	metrics.IncTelegramCommand(command)
	log.Debug().Str("command", command).Msg("handling command")

	if !b.allow(ctx, upd.ChatID, command) {
		b.send(ctx, upd.ChatID, b.t("rate_limited"))
		return
	}

	var reply string
	switch command {
	case "start":
		b.sendWelcome(ctx, upd.ChatID)
	case "help":
		reply = b.t("help")
	case "setlang":
		reply = b.handleSetLang(ctx, upd)
	case "setsource":
		reply = b.handleSetSource(ctx, upd)
	case "setprovider":
		reply = b.handleSetProvider(ctx, upd)
	case "autotranslate":
		reply = b.handleAutoTranslate(ctx, upd)
	case "status":
		reply = b.handleStatus(ctx, upd)
	case "stats":
		reply = b.handleStats(ctx, upd)
	default:
		reply = b.t("unknown_command")
	}
	if reply != "" {
		b.send(ctx, upd.ChatID, reply)
	}
}

func (b *BotFacade) handleSetLang(ctx context.Context, upd model.InboundUpdate) string {
	tokens := splitArgs(upd.Args)
	if len(tokens) == 0 {
		return b.t("setlang_usage", "langs", supportedList())
	}
	for _, raw := range tokens {
		if domain.NormalizeLang(raw) == "" {
			return b.t("setlang_unknown", "lang", raw, "langs", supportedList())
		}
	}

	s, err := b.prefs.SetTargets(ctx, upd.ChatID, tokens)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTooManyTargets):
			return b.t("setlang_too_many", "max", strconv.Itoa(model.MaxTargetLangs))
		case errors.Is(err, domain.ErrStoreContention):
			return b.t("settings_conflict")
		default:
			logging.With(ctx, b.log).Error().Err(err).Msg("setlang failed")
			return b.t("error_generic")
		}
	}
	return b.t("setlang_ok", "langs", strings.Join(s.TargetLangs, ", "))
}

func (b *BotFacade) handleSetSource(ctx context.Context, upd model.InboundUpdate) string {
	arg := strings.TrimSpace(upd.Args)
	if arg == "" {
		return b.t("setsource_usage")
	}

	s, err := b.prefs.SetSource(ctx, upd.ChatID, arg)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedLanguage):
			return b.t("setlang_unknown", "lang", arg, "langs", supportedList())
		case errors.Is(err, domain.ErrStoreContention):
			return b.t("settings_conflict")
		default:
			logging.With(ctx, b.log).Error().Err(err).Msg("setsource failed")
			return b.t("error_generic")
		}
	}
	if s.SourceLang == "" {
		return b.t("setsource_auto")
	}
	return b.t("setsource_ok", "lang", domain.LangName(s.SourceLang))
}

func (b *BotFacade) handleSetProvider(ctx context.Context, upd model.InboundUpdate) string {
	arg := strings.TrimSpace(upd.Args)
	if arg == "" {
		return b.t("setprovider_usage", "providers", strings.Join(b.providers, ", "))
	}

	s, err := b.prefs.SetProvider(ctx, upd.ChatID, arg)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			return b.t("setprovider_unknown", "provider", arg, "providers", strings.Join(b.providers, ", "))
		case errors.Is(err, domain.ErrStoreContention):
			return b.t("settings_conflict")
		default:
			logging.With(ctx, b.log).Error().Err(err).Msg("setprovider failed")
			return b.t("error_generic")
		}
	}
	if s.Provider == "" {
		return b.t("setprovider_auto")
	}
	return b.t("setprovider_ok", "provider", s.Provider)
}

func (b *BotFacade) handleAutoTranslate(ctx context.Context, upd model.InboundUpdate) string {
	var enabled bool
	switch strings.ToLower(strings.TrimSpace(upd.Args)) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return b.t("autotranslate_usage")
	}

	if _, err := b.prefs.SetAutoTranslate(ctx, upd.ChatID, enabled); err != nil {
		if errors.Is(err, domain.ErrStoreContention) {
			return b.t("settings_conflict")
		}
		logging.With(ctx, b.log).Error().Err(err).Msg("autotranslate toggle failed")
		return b.t("error_generic")
	}
	if enabled {
		return b.t("autotranslate_on")
	}
	return b.t("autotranslate_off")
}

func (b *BotFacade) handleStatus(ctx context.Context, upd model.InboundUpdate) string {
	s, err := b.prefs.Get(ctx, upd.ChatID)
	if err != nil {
		logging.With(ctx, b.log).Error().Err(err).Msg("status read failed")
		return b.t("error_generic")
	}

	source := "auto"
	if s.SourceLang != "" {
		source = domain.LangName(s.SourceLang)
	}
	provider := "auto"
	if s.Provider != "" {
		provider = s.Provider
	}
	auto := "off"
	if s.AutoTranslate {
		auto = "on"
	}
	reply := b.t("status",
		"langs", strings.Join(s.TargetLangs, ", "),
		"source", source,
		"provider", provider,
		"auto", auto,
	)

	if b.health != nil {
		if statuses := b.health.HealthSnapshot(); len(statuses) > 0 {
			parts := make([]string, 0, len(statuses))
			for _, st := range statuses {
				parts = append(parts, fmt.Sprintf("%s %.2f", st.Name, st.Score))
			}
			reply += "\n" + b.t("status_health", "health", strings.Join(parts, ", "))
		}
	}
	return reply
}

func (b *BotFacade) handleStats(ctx context.Context, upd model.InboundUpdate) string {
	if _, ok := b.admins[upd.SenderID]; !ok {
		return b.t("stats_denied")
	}

	days := 0
	if arg := strings.TrimSpace(upd.Args); arg != "" {
		if n, err := strconv.Atoi(arg); err == nil {
			days = n
		}
	}
	rows, err := b.stats.ChatRange(ctx, upd.ChatID, days)
	if err != nil {
		logging.With(ctx, b.log).Error().Err(err).Msg("stats read failed")
		return b.t("error_generic")
	}
	if len(rows) == 0 {
		return b.t("stats_empty")
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, b.t("stats_line",
			"day", row.Day.Format("2006-01-02"),
			"posts", strconv.FormatInt(row.Posts, 10),
			"translations", strconv.FormatInt(row.Translations, 10),
			"failures", strconv.FormatInt(row.Failures, 10),
		))
	}
	return strings.Join(lines, "\n")
}

// allow applies the per-chat command budget. Limiter outages fail open
// so a Redis blip never mutes commands.
func (b *BotFacade) allow(ctx context.Context, chatID int64, command string) bool {
	if b.limiter == nil || b.limits.Requests <= 0 {
		return true
	}
	allowed, err := b.limiter.Allow(ctx, redis.ChatCommandKey(chatID, command), b.limits.Requests, b.limits.Window)
	if err != nil {
		logging.With(ctx, b.log).Warn().Err(err).Msg("command limiter unavailable, allowing")
		return true
	}
	if !allowed {
		metrics.IncRateLimitTriggered()
	}
	return allowed
}

// sendWelcome greets with quick-action buttons. A tap comes back through
// ingest as the command the button names.
func (b *BotFacade) sendWelcome(ctx context.Context, chatID int64) {
	rows := [][]adapter.InlineButton{
		{{Text: "Status", Data: "cmd:status"}, {Text: "Help", Data: "cmd:help"}},
	}
	if err := b.bot.SendButtons(ctx, chatID, b.t("welcome"), rows); err != nil {
		// Some chats reject inline keyboards; fall back to plain text.
		b.send(ctx, chatID, b.t("welcome"))
	}
}

func (b *BotFacade) send(ctx context.Context, chatID int64, text string) {
	if err := b.bot.SendMessage(ctx, chatID, text); err != nil {
		metrics.IncTelegramSendFailure()
		logging.With(ctx, b.log).Error().Err(err).Msg("failed to deliver command reply")
	}
}

func (b *BotFacade) t(key string, args ...string) string {
	return b.loc.T(b.locale, key, args...)
}

// splitArgs tokenizes command arguments on spaces and commas, so both
// "/setlang en,ru" and "/setlang en ru" work.
func splitArgs(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
}

func supportedList() string {
	return strings.Join(domain.SupportedLangs(), ", ")
}
