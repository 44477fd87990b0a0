//go:build !integration

// File: internal/infra/sched/janitor_test.go
package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/config"
	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/model"
	"telegram-translation-bot/internal/infra/redis"
)

type stubLedger struct {
	cutoff time.Time
	n      int64
	err    error
	calls  int
}

func (s *stubLedger) RecordProcessed(ctx context.Context, qx any, chatID int64, messageID int, now time.Time) (bool, error) {
	return true, nil
}

func (s *stubLedger) PruneBefore(ctx context.Context, qx any, cutoff time.Time) (int64, error) {
	s.calls++
	s.cutoff = cutoff
	return s.n, s.err
}

type stubSessions struct {
	cutoff time.Time
	n      int64
	calls  int
}

func (s *stubSessions) Save(ctx context.Context, qx any, session *model.ChatSession) error {
	return nil
}

func (s *stubSessions) FindByChatID(ctx context.Context, qx any, chatID int64) (*model.ChatSession, error) {
	return nil, domain.ErrNotFound
}

func (s *stubSessions) Touch(ctx context.Context, qx any, chatID int64, at time.Time) error {
	return nil
}

func (s *stubSessions) ArchiveIdle(ctx context.Context, qx any, cutoff time.Time) (int64, error) {
	s.calls++
	s.cutoff = cutoff
	return s.n, nil
}

type stubLocker struct {
	busy    bool
	unlocks int
}

func (s *stubLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.busy {
		return "", domain.ErrAlreadyExists
	}
	return "tok", nil
}

func (s *stubLocker) Unlock(ctx context.Context, key, token string) error {
	s.unlocks++
	return nil
}

func testJanitor(ledger *stubLedger, sessions *stubSessions, locker *stubLocker) *Janitor {
	logger := zerolog.Nop()
	// A typed nil stored in the interface would dodge the janitor's nil
	// check, so only wrap a real stub.
	var l redis.Locker
	if locker != nil {
		l = locker
	}
	j := NewJanitor(config.JanitorConfig{
		Interval:        time.Hour,
		LedgerRetention: 48 * time.Hour,
		SessionIdle:     24 * time.Hour,
	}, ledger, sessions, l, &logger)
	j.now = func() time.Time { return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) }
	return j
}

func TestJanitorSweep(t *testing.T) {
	t.Run("prunes and archives with configured cutoffs", func(t *testing.T) {
		ledger := &stubLedger{n: 7}
		sessions := &stubSessions{n: 2}
		locker := &stubLocker{}
		j := testJanitor(ledger, sessions, locker)

		j.sweep(context.Background())

		now := j.now()
		if got, want := ledger.cutoff, now.Add(-48*time.Hour); !got.Equal(want) {
			t.Fatalf("ledger cutoff = %v, want %v", got, want)
		}
		if got, want := sessions.cutoff, now.Add(-24*time.Hour); !got.Equal(want) {
			t.Fatalf("session cutoff = %v, want %v", got, want)
		}
		if locker.unlocks != 1 {
			t.Fatalf("expected lock released once, got %d", locker.unlocks)
		}
	})

	t.Run("lock held elsewhere skips the sweep", func(t *testing.T) {
		ledger := &stubLedger{}
		sessions := &stubSessions{}
		j := testJanitor(ledger, sessions, &stubLocker{busy: true})

		j.sweep(context.Background())

		if ledger.calls != 0 || sessions.calls != 0 {
			t.Fatalf("expected no repository calls, got ledger=%d sessions=%d", ledger.calls, sessions.calls)
		}
	})

	t.Run("prune failure does not stop the session sweep", func(t *testing.T) {
		ledger := &stubLedger{err: errors.New("db down")}
		sessions := &stubSessions{}
		j := testJanitor(ledger, sessions, &stubLocker{})

		j.sweep(context.Background())

		if sessions.calls != 1 {
			t.Fatalf("expected session archive to run, got %d calls", sessions.calls)
		}
	})

	t.Run("nil locker sweeps unguarded", func(t *testing.T) {
		ledger := &stubLedger{}
		sessions := &stubSessions{}
		j := testJanitor(ledger, sessions, nil)

		j.sweep(context.Background())

		if ledger.calls != 1 || sessions.calls != 1 {
			t.Fatalf("expected both sweeps, got ledger=%d sessions=%d", ledger.calls, sessions.calls)
		}
	})
}

func TestJanitorDefaults(t *testing.T) {
	logger := zerolog.Nop()
	j := NewJanitor(config.JanitorConfig{}, &stubLedger{}, &stubSessions{}, nil, &logger)

	if j.interval != time.Hour {
		t.Fatalf("interval default = %v", j.interval)
	}
	if j.ledgerRetention != 14*24*time.Hour {
		t.Fatalf("ledger retention default = %v", j.ledgerRetention)
	}
	if j.sessionIdle != 30*24*time.Hour {
		t.Fatalf("session idle default = %v", j.sessionIdle)
	}
}
