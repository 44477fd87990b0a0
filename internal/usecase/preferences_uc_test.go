//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/model"
	"telegram-translation-bot/internal/usecase"
)

func newPrefs(sessions *MockSessionRepo) usecase.PreferencesUseCase {
	return usecase.NewPreferencesUseCase(sessions, []string{"libre", "deepl"}, []string{"en"}, newTestLogger())
}

func TestPreferences_SetTargets(t *testing.T) {
	ctx := context.Background()

	t.Run("codes and names normalize and dedupe", func(t *testing.T) {
		sessions := NewMockSessionRepo()
		prefs := newPrefs(sessions)

		s, err := prefs.SetTargets(ctx, 1, []string{"EN", "Russian", "en"})
		if err != nil {
			t.Fatalf("SetTargets: %v", err)
		}
		if len(s.TargetLangs) != 2 || s.TargetLangs[0] != "en" || s.TargetLangs[1] != "ru" {
			t.Fatalf("TargetLangs = %v", s.TargetLangs)
		}
		stored := sessions.Stored(1)
		if stored == nil || stored.Version != 1 {
			t.Fatalf("change was not persisted: %+v", stored)
		}
	})

	t.Run("unknown language -> ErrUnsupportedLanguage", func(t *testing.T) {
		sessions := NewMockSessionRepo()
		prefs := newPrefs(sessions)

		if _, err := prefs.SetTargets(ctx, 2, []string{"en", "xx"}); !errors.Is(err, domain.ErrUnsupportedLanguage) {
			t.Fatalf("err = %v", err)
		}
		if sessions.Stored(2) != nil {
			t.Fatal("rejected input must not be persisted")
		}
	})

	t.Run("more than five targets -> ErrTooManyTargets", func(t *testing.T) {
		prefs := newPrefs(NewMockSessionRepo())

		_, err := prefs.SetTargets(ctx, 3, []string{"en", "ru", "de", "fr", "es", "it"})
		if !errors.Is(err, domain.ErrTooManyTargets) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("empty list -> ErrInvalidArgument", func(t *testing.T) {
		prefs := newPrefs(NewMockSessionRepo())

		if _, err := prefs.SetTargets(ctx, 4, nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestPreferences_SetSource(t *testing.T) {
	ctx := context.Background()

	t.Run("pin by display name", func(t *testing.T) {
		sessions := NewMockSessionRepo()
		prefs := newPrefs(sessions)

		s, err := prefs.SetSource(ctx, 1, "Spanish")
		if err != nil {
			t.Fatalf("SetSource: %v", err)
		}
		if s.SourceLang != "es" {
			t.Fatalf("SourceLang = %q", s.SourceLang)
		}
	})

	t.Run("auto restores detection", func(t *testing.T) {
		sessions := NewMockSessionRepo()
		sessions.Put(&model.ChatSession{
			ChatID: 2, SourceLang: "es", TargetLangs: []string{"en"},
			AutoTranslate: true, Version: 1, LastActivityAt: now(),
		})
		prefs := newPrefs(sessions)

		s, err := prefs.SetSource(ctx, 2, "auto")
		if err != nil {
			t.Fatalf("SetSource: %v", err)
		}
		if s.SourceLang != "" {
			t.Fatalf("SourceLang = %q, want empty", s.SourceLang)
		}
		if stored := sessions.Stored(2); stored.Version != 2 {
			t.Fatalf("stored version = %d, want 2", stored.Version)
		}
	})

	t.Run("unknown language -> ErrUnsupportedLanguage", func(t *testing.T) {
		prefs := newPrefs(NewMockSessionRepo())

		if _, err := prefs.SetSource(ctx, 3, "klingon"); !errors.Is(err, domain.ErrUnsupportedLanguage) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestPreferences_SetProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("known provider pins case-insensitively", func(t *testing.T) {
		sessions := NewMockSessionRepo()
		prefs := newPrefs(sessions)

		s, err := prefs.SetProvider(ctx, 1, "DeepL")
		if err != nil {
			t.Fatalf("SetProvider: %v", err)
		}
		if s.Provider != "deepl" {
			t.Fatalf("Provider = %q", s.Provider)
		}
	})

	t.Run("auto clears the pin", func(t *testing.T) {
		sessions := NewMockSessionRepo()
		sessions.Put(&model.ChatSession{
			ChatID: 2, Provider: "libre", TargetLangs: []string{"en"},
			AutoTranslate: true, Version: 1, LastActivityAt: now(),
		})
		prefs := newPrefs(sessions)

		s, err := prefs.SetProvider(ctx, 2, "auto")
		if err != nil {
			t.Fatalf("SetProvider: %v", err)
		}
		if s.Provider != "" {
			t.Fatalf("Provider = %q, want empty", s.Provider)
		}
	})

	t.Run("unconfigured provider -> ErrInvalidArgument", func(t *testing.T) {
		prefs := newPrefs(NewMockSessionRepo())

		if _, err := prefs.SetProvider(ctx, 3, "bing"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestPreferences_SetAutoTranslate(t *testing.T) {
	ctx := context.Background()
	sessions := NewMockSessionRepo()
	prefs := newPrefs(sessions)

	s, err := prefs.SetAutoTranslate(ctx, 1, false)
	if err != nil {
		t.Fatalf("SetAutoTranslate: %v", err)
	}
	if s.AutoTranslate {
		t.Fatal("AutoTranslate should be off")
	}

	s, err = prefs.SetAutoTranslate(ctx, 1, true)
	if err != nil {
		t.Fatalf("SetAutoTranslate: %v", err)
	}
	if !s.AutoTranslate {
		t.Fatal("AutoTranslate should be back on")
	}
	if stored := sessions.Stored(1); stored.Version != 2 {
		t.Fatalf("stored version = %d, want 2", stored.Version)
	}
}

func TestPreferences_ContentionRetries(t *testing.T) {
	ctx := context.Background()

	t.Run("a lost race is replayed on a fresh read", func(t *testing.T) {
		sessions := NewMockSessionRepo()
		var attempts int32
		sessions.SaveFunc = func(ctx context.Context, qx any, session *model.ChatSession) error {
			if atomic.AddInt32(&attempts, 1) == 1 {
				return domain.ErrStoreContention
			}
			return nil
		}
		prefs := newPrefs(sessions)

		s, err := prefs.SetAutoTranslate(ctx, 1, false)
		if err != nil {
			t.Fatalf("SetAutoTranslate: %v", err)
		}
		if s == nil || s.AutoTranslate {
			t.Fatalf("unexpected session: %+v", s)
		}
		if got := atomic.LoadInt32(&attempts); got != 2 {
			t.Fatalf("save attempts = %d, want 2", got)
		}
	})

	t.Run("persistent contention surfaces after bounded retries", func(t *testing.T) {
		sessions := NewMockSessionRepo()
		var attempts int32
		sessions.SaveFunc = func(ctx context.Context, qx any, session *model.ChatSession) error {
			atomic.AddInt32(&attempts, 1)
			return domain.ErrStoreContention
		}
		prefs := newPrefs(sessions)

		if _, err := prefs.SetAutoTranslate(ctx, 1, false); !errors.Is(err, domain.ErrStoreContention) {
			t.Fatalf("err = %v", err)
		}
		if got := atomic.LoadInt32(&attempts); got != 3 {
			t.Fatalf("save attempts = %d, want 3", got)
		}
	})
}

func TestPreferences_GetMaterializesDefaults(t *testing.T) {
	ctx := context.Background()
	sessions := NewMockSessionRepo()
	prefs := newPrefs(sessions)

	s, err := prefs.Get(ctx, 99)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !s.AutoTranslate || len(s.TargetLangs) != 1 || s.TargetLangs[0] != "en" || s.Version != 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	// Reading preferences must not write a row.
	if sessions.Stored(99) != nil {
		t.Fatal("Get should not persist anything")
	}

	stored := &model.ChatSession{
		ChatID: 100, SourceLang: "de", TargetLangs: []string{"ru"},
		AutoTranslate: true, Version: 4, LastActivityAt: time.Now(),
	}
	sessions.Put(stored)
	s, err = prefs.Get(ctx, 100)
	if err != nil {
		t.Fatalf("Get existing: %v", err)
	}
	if s.SourceLang != "de" || s.Version != 4 {
		t.Fatalf("unexpected session: %+v", s)
	}
}
