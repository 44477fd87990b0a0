// File: internal/usecase/preferences_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/model"
	"telegram-translation-bot/internal/domain/ports/repository"
	"telegram-translation-bot/internal/infra/logging"
)

// Compile-time check
var _ PreferencesUseCase = (*preferencesUC)(nil)

// PreferencesUseCase mutates per-chat translation settings. Every write
// goes through the session version check, so two admins racing each
// other in the same chat cannot silently drop one another's change.
type PreferencesUseCase interface {
	// Get returns the chat's session, materializing defaults for chats
	// that never configured anything.
	Get(ctx context.Context, chatID int64) (*model.ChatSession, error)
	SetTargets(ctx context.Context, chatID int64, langs []string) (*model.ChatSession, error)
	// SetSource pins the source language; "auto" or "" restores detection.
	SetSource(ctx context.Context, chatID int64, lang string) (*model.ChatSession, error)
	// SetProvider pins the translation backend; "auto" or "" restores
	// health-ranked selection.
	SetProvider(ctx context.Context, chatID int64, name string) (*model.ChatSession, error)
	SetAutoTranslate(ctx context.Context, chatID int64, enabled bool) (*model.ChatSession, error)
}

// saveRetries bounds how often a write is replayed after losing the
// version race before the conflict is surfaced to the user.
const saveRetries = 3

type preferencesUC struct {
	sessions       repository.ChatSessionRepository
	providers      []string
	defaultTargets []string
	log            *zerolog.Logger
	now            func() time.Time
}

func NewPreferencesUseCase(
	sessions repository.ChatSessionRepository,
	providers []string,
	defaultTargets []string,
	logger *zerolog.Logger,
) *preferencesUC {
	l := logger.With().Str("component", "preferences").Logger()
	return &preferencesUC{
		sessions:       sessions,
		providers:      providers,
		defaultTargets: defaultTargets,
		log:            &l,
		now:            time.Now,
	}
}

func (p *preferencesUC) Get(ctx context.Context, chatID int64) (*model.ChatSession, error) {
	defer logging.TraceDuration(p.log, "PreferencesUC.Get")()
	return p.load(ctx, chatID)
}

func (p *preferencesUC) SetTargets(ctx context.Context, chatID int64, langs []string) (*model.ChatSession, error) {
	defer logging.TraceDuration(p.log, "PreferencesUC.SetTargets")()

	normalized, err := normalizeTargets(langs)
	if err != nil {
		return nil, err
	}
	return p.update(ctx, chatID, func(s *model.ChatSession) {
		s.TargetLangs = normalized
	})
}

func (p *preferencesUC) SetSource(ctx context.Context, chatID int64, lang string) (*model.ChatSession, error) {
	defer logging.TraceDuration(p.log, "PreferencesUC.SetSource")()

	code := ""
	if trimmed := strings.TrimSpace(lang); trimmed != "" && !strings.EqualFold(trimmed, "auto") {
		code = domain.NormalizeLang(trimmed)
		if code == "" {
			return nil, fmt.Errorf("%q: %w", lang, domain.ErrUnsupportedLanguage)
		}
	}
	return p.update(ctx, chatID, func(s *model.ChatSession) {
		s.SourceLang = code
	})
}

func (p *preferencesUC) SetProvider(ctx context.Context, chatID int64, name string) (*model.ChatSession, error) {
	defer logging.TraceDuration(p.log, "PreferencesUC.SetProvider")()

	pinned := ""
	if trimmed := strings.TrimSpace(name); trimmed != "" && !strings.EqualFold(trimmed, "auto") {
		pinned = strings.ToLower(trimmed)
		if !p.knownProvider(pinned) {
			return nil, fmt.Errorf("provider %q: %w", name, domain.ErrInvalidArgument)
		}
	}
	return p.update(ctx, chatID, func(s *model.ChatSession) {
		s.Provider = pinned
	})
}

func (p *preferencesUC) SetAutoTranslate(ctx context.Context, chatID int64, enabled bool) (*model.ChatSession, error) {
	defer logging.TraceDuration(p.log, "PreferencesUC.SetAutoTranslate")()

	return p.update(ctx, chatID, func(s *model.ChatSession) {
		s.AutoTranslate = enabled
	})
}

// update replays load-mutate-save until the version check passes. The
// mutation runs on a fresh read each round, so the final state is the
// mutation applied to the latest row, not to a stale one.
func (p *preferencesUC) update(ctx context.Context, chatID int64, mutate func(*model.ChatSession)) (*model.ChatSession, error) {
	var lastErr error
	for i := 0; i < saveRetries; i++ {
		session, err := p.load(ctx, chatID)
		if err != nil {
			return nil, err
		}
		mutate(session)
		session.Touch(p.now())
		if err := p.sessions.Save(ctx, nil, session); err != nil {
			if errors.Is(err, domain.ErrStoreContention) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return session, nil
	}
	p.log.Warn().Int64("chat_id", chatID).Int("retries", saveRetries).Msg("session write kept losing the version race")
	return nil, lastErr
}

func (p *preferencesUC) load(ctx context.Context, chatID int64) (*model.ChatSession, error) {
	session, err := p.sessions.FindByChatID(ctx, nil, chatID)
	if err == nil {
		return session, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return model.NewChatSession(chatID, p.defaultTargets, p.now()), nil
	}
	return nil, err
}

func (p *preferencesUC) knownProvider(name string) bool {
	for _, candidate := range p.providers {
		if candidate == name {
			return true
		}
	}
	return false
}

func normalizeTargets(langs []string) ([]string, error) {
	if len(langs) == 0 {
		return nil, fmt.Errorf("no target languages: %w", domain.ErrInvalidArgument)
	}
	out := make([]string, 0, len(langs))
	seen := make(map[string]struct{}, len(langs))
	for _, raw := range langs {
		code := domain.NormalizeLang(raw)
		if code == "" {
			return nil, fmt.Errorf("%q: %w", raw, domain.ErrUnsupportedLanguage)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	if len(out) > model.MaxTargetLangs {
		return nil, fmt.Errorf("%d target languages: %w", len(out), domain.ErrTooManyTargets)
	}
	return out, nil
}
