//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/model"
)

func TestChatSessionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	// We pass nil for the Redis cache, as we are only testing the database layer.
	repo := NewChatSessionRepo(testPool, nil)

	t.Run("should create and find a session", func(t *testing.T) {
		cleanup(t)

		session := model.NewChatSession(42, []string{"en"}, time.Now())
		if err := repo.Save(ctx, nil, session); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}
		if session.Version != 1 {
			t.Fatalf("expected version 1 after first save, got %d", session.Version)
		}

		found, err := repo.FindByChatID(ctx, nil, 42)
		if err != nil {
			t.Fatalf("FindByChatID failed: %v", err)
		}
		if found.ChatID != 42 || len(found.TargetLangs) != 1 || found.TargetLangs[0] != "en" {
			t.Fatalf("session round trip mismatch: %+v", found)
		}
		if !found.AutoTranslate {
			t.Error("expected auto_translate to default to true")
		}
	})

	t.Run("should reject a stale-version update", func(t *testing.T) {
		cleanup(t)

		session := model.NewChatSession(7, []string{"en"}, time.Now())
		if err := repo.Save(ctx, nil, session); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}

		// Two readers pick up version 1.
		a, err := repo.FindByChatID(ctx, nil, 7)
		if err != nil {
			t.Fatalf("read a: %v", err)
		}
		b, err := repo.FindByChatID(ctx, nil, 7)
		if err != nil {
			t.Fatalf("read b: %v", err)
		}

		a.TargetLangs = []string{"es"}
		if err := repo.Save(ctx, nil, a); err != nil {
			t.Fatalf("first writer should win: %v", err)
		}

		b.TargetLangs = []string{"fr"}
		err = repo.Save(ctx, nil, b)
		if !errors.Is(err, domain.ErrStoreContention) {
			t.Fatalf("expected ErrStoreContention for the stale writer, got %v", err)
		}

		// Stale writer re-reads and retries.
		fresh, err := repo.FindByChatID(ctx, nil, 7)
		if err != nil {
			t.Fatalf("re-read: %v", err)
		}
		fresh.TargetLangs = []string{"fr"}
		if err := repo.Save(ctx, nil, fresh); err != nil {
			t.Fatalf("retry after re-read should succeed: %v", err)
		}

		final, _ := repo.FindByChatID(ctx, nil, 7)
		if final.TargetLangs[0] != "fr" || final.Version != 3 {
			t.Fatalf("expected fr at version 3, got %+v", final)
		}
	})

	t.Run("should return ErrNotFound for an unknown chat", func(t *testing.T) {
		cleanup(t)

		_, err := repo.FindByChatID(ctx, nil, 9999)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("touch revives an archived session without a version bump", func(t *testing.T) {
		cleanup(t)

		session := model.NewChatSession(5, []string{"en"}, time.Now().Add(-48*time.Hour))
		if err := repo.Save(ctx, nil, session); err != nil {
			t.Fatalf("save: %v", err)
		}
		if _, err := repo.ArchiveIdle(ctx, nil, time.Now().Add(-24*time.Hour)); err != nil {
			t.Fatalf("ArchiveIdle failed: %v", err)
		}

		now := time.Now()
		if err := repo.Touch(ctx, nil, 5, now); err != nil {
			t.Fatalf("Touch failed: %v", err)
		}

		found, err := repo.FindByChatID(ctx, nil, 5)
		if err != nil {
			t.Fatalf("FindByChatID failed: %v", err)
		}
		if found.ArchivedAt != nil {
			t.Error("expected touch to clear archived_at")
		}
		if found.LastActivityAt.Before(now.Add(-time.Second)) {
			t.Errorf("expected activity near %v, got %v", now, found.LastActivityAt)
		}
		if found.Version != 1 {
			t.Errorf("touch must not bump the version, got %d", found.Version)
		}
	})

	t.Run("should archive only idle sessions", func(t *testing.T) {
		cleanup(t)

		old := model.NewChatSession(1, []string{"en"}, time.Now().Add(-48*time.Hour))
		fresh := model.NewChatSession(2, []string{"en"}, time.Now())
		if err := repo.Save(ctx, nil, old); err != nil {
			t.Fatalf("save old: %v", err)
		}
		if err := repo.Save(ctx, nil, fresh); err != nil {
			t.Fatalf("save fresh: %v", err)
		}

		n, err := repo.ArchiveIdle(ctx, nil, time.Now().Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("ArchiveIdle failed: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 archived session, got %d", n)
		}

		archived, _ := repo.FindByChatID(ctx, nil, 1)
		if archived.ArchivedAt == nil {
			t.Error("expected idle session to carry archived_at")
		}
		active, _ := repo.FindByChatID(ctx, nil, 2)
		if active.ArchivedAt != nil {
			t.Error("fresh session must not be archived")
		}
	})
}
