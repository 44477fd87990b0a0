//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/model"
	"telegram-translation-bot/internal/domain/ports/adapter"
	"telegram-translation-bot/internal/domain/ports/repository"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func now() time.Time { return time.Now().Truncate(time.Millisecond) }

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// =============================
// Adapters
// =============================

// ---- Mock TelegramBotAdapter ----

type sentMessage struct {
	ChatID  int64
	ReplyTo int // 0 for plain sends
	Text    string
}

type MockBot struct {
	mu   sync.Mutex
	Sent []sentMessage

	SendMessageFunc func(ctx context.Context, chatID int64, text string) error
	SendReplyFunc   func(ctx context.Context, chatID int64, replyTo int, text string) error
	SendButtonsFunc func(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error
}

var _ adapter.TelegramBotAdapter = (*MockBot)(nil)

func (m *MockBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, chatID, text)
	}
	m.record(chatID, 0, text)
	return nil
}

func (m *MockBot) SendReply(ctx context.Context, chatID int64, replyTo int, text string) error {
	if m.SendReplyFunc != nil {
		if err := m.SendReplyFunc(ctx, chatID, replyTo, text); err != nil {
			return err
		}
	}
	m.record(chatID, replyTo, text)
	return nil
}

func (m *MockBot) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	if m.SendButtonsFunc != nil {
		return m.SendButtonsFunc(ctx, chatID, text, rows)
	}
	m.record(chatID, 0, text)
	return nil
}

func (m *MockBot) record(chatID int64, replyTo int, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentMessage{ChatID: chatID, ReplyTo: replyTo, Text: text})
}

// Messages returns a snapshot safe to inspect while workers still run.
func (m *MockBot) Messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// ---- Mock TranslationProvider ----

type MockTranslator struct {
	mu    sync.Mutex
	Calls []adapter.TranslateRequest

	NameVal       string
	TranslateFunc func(ctx context.Context, req adapter.TranslateRequest) (adapter.TranslateResult, error)
}

var _ adapter.TranslationProvider = (*MockTranslator)(nil)

func (m *MockTranslator) Name() string {
	if m.NameVal == "" {
		return "mock"
	}
	return m.NameVal
}

func (m *MockTranslator) Translate(ctx context.Context, req adapter.TranslateRequest) (adapter.TranslateResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	m.mu.Unlock()
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, req)
	}
	return adapter.TranslateResult{
		Text:       fmt.Sprintf("[%s] %s", req.TargetLang, req.Text),
		Provider:   m.Name(),
		SourceLang: req.SourceLang,
	}, nil
}

func (m *MockTranslator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockTranslator) CallsSnapshot() []adapter.TranslateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]adapter.TranslateRequest, len(m.Calls))
	copy(out, m.Calls)
	return out
}

// =============================
// Repositories
// =============================

// ---- Mock ChatSessionRepository ----

// MockSessionRepo keeps sessions in memory and mirrors the store's
// optimistic concurrency: Save fails with ErrStoreContention when the
// presented version does not match the stored one.
type MockSessionRepo struct {
	mu       sync.Mutex
	sessions map[int64]*model.ChatSession
	Touched  []int64

	SaveFunc         func(ctx context.Context, qx any, session *model.ChatSession) error
	FindByChatIDFunc func(ctx context.Context, qx any, chatID int64) (*model.ChatSession, error)
	TouchFunc        func(ctx context.Context, qx any, chatID int64, at time.Time) error
	ArchiveIdleFunc  func(ctx context.Context, qx any, cutoff time.Time) (int64, error)
}

var _ repository.ChatSessionRepository = (*MockSessionRepo)(nil)

func NewMockSessionRepo() *MockSessionRepo {
	return &MockSessionRepo{sessions: make(map[int64]*model.ChatSession)}
}

func (m *MockSessionRepo) Save(ctx context.Context, qx any, session *model.ChatSession) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, qx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[session.ChatID]
	if ok && stored.Version != session.Version {
		return domain.ErrStoreContention
	}
	cp := session.Clone()
	cp.Version++
	m.sessions[session.ChatID] = cp
	session.Version = cp.Version
	return nil
}

func (m *MockSessionRepo) FindByChatID(ctx context.Context, qx any, chatID int64) (*model.ChatSession, error) {
	if m.FindByChatIDFunc != nil {
		return m.FindByChatIDFunc(ctx, qx, chatID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok {
		return s.Clone(), nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockSessionRepo) Touch(ctx context.Context, qx any, chatID int64, at time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, qx, chatID, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Touched = append(m.Touched, chatID)
	if s, ok := m.sessions[chatID]; ok {
		s.Touch(at)
	}
	return nil
}

func (m *MockSessionRepo) ArchiveIdle(ctx context.Context, qx any, cutoff time.Time) (int64, error) {
	if m.ArchiveIdleFunc != nil {
		return m.ArchiveIdleFunc(ctx, qx, cutoff)
	}
	return 0, nil
}

// Put seeds a session as if it had been saved before, version included.
func (m *MockSessionRepo) Put(session *model.ChatSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ChatID] = session.Clone()
}

func (m *MockSessionRepo) Stored(chatID int64) *model.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok {
		return s.Clone()
	}
	return nil
}

func (m *MockSessionRepo) TouchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Touched)
}

// ---- Mock ProcessedLedger ----

type MockLedger struct {
	mu     sync.Mutex
	seen   map[string]bool
	Claims []string

	RecordProcessedFunc func(ctx context.Context, qx any, chatID int64, messageID int, now time.Time) (bool, error)
	PruneBeforeFunc     func(ctx context.Context, qx any, cutoff time.Time) (int64, error)
}

var _ repository.ProcessedLedger = (*MockLedger)(nil)

func NewMockLedger() *MockLedger {
	return &MockLedger{seen: make(map[string]bool)}
}

func (m *MockLedger) RecordProcessed(ctx context.Context, qx any, chatID int64, messageID int, now time.Time) (bool, error) {
	if m.RecordProcessedFunc != nil {
		return m.RecordProcessedFunc(ctx, qx, chatID, messageID, now)
	}
	key := fmt.Sprintf("%d:%d", chatID, messageID)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Claims = append(m.Claims, key)
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *MockLedger) PruneBefore(ctx context.Context, qx any, cutoff time.Time) (int64, error) {
	if m.PruneBeforeFunc != nil {
		return m.PruneBeforeFunc(ctx, qx, cutoff)
	}
	return 0, nil
}

func (m *MockLedger) ClaimCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Claims)
}

// ---- Mock StatsRepository ----

type MockStatsRepo struct {
	mu    sync.Mutex
	Bumps []model.DailyStats

	BumpDailyFunc func(ctx context.Context, qx any, day time.Time, chatID int64, posts, translations, failures int64) error
	FindRangeFunc func(ctx context.Context, qx any, chatID int64, from, to time.Time) ([]*model.DailyStats, error)
	TotalsFunc    func(ctx context.Context, qx any, from, to time.Time) (*model.DailyStats, error)
}

var _ repository.StatsRepository = (*MockStatsRepo)(nil)

func (m *MockStatsRepo) BumpDaily(ctx context.Context, qx any, day time.Time, chatID int64, posts, translations, failures int64) error {
	if m.BumpDailyFunc != nil {
		return m.BumpDailyFunc(ctx, qx, day, chatID, posts, translations, failures)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bumps = append(m.Bumps, model.DailyStats{
		Day: day, ChatID: chatID, Posts: posts, Translations: translations, Failures: failures,
	})
	return nil
}

func (m *MockStatsRepo) FindRange(ctx context.Context, qx any, chatID int64, from, to time.Time) ([]*model.DailyStats, error) {
	if m.FindRangeFunc != nil {
		return m.FindRangeFunc(ctx, qx, chatID, from, to)
	}
	return nil, nil
}

func (m *MockStatsRepo) Totals(ctx context.Context, qx any, from, to time.Time) (*model.DailyStats, error) {
	if m.TotalsFunc != nil {
		return m.TotalsFunc(ctx, qx, from, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	total := &model.DailyStats{}
	for _, b := range m.Bumps {
		total.Posts += b.Posts
		total.Translations += b.Translations
		total.Failures += b.Failures
	}
	return total, nil
}

func (m *MockStatsRepo) BumpsSnapshot() []model.DailyStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DailyStats, len(m.Bumps))
	copy(out, m.Bumps)
	return out
}

// ---- Mock TransactionManager ----

// MockTxManager runs the callback with a nil transaction so repositories
// fall back to their default executor.
type MockTxManager struct {
	mu    sync.Mutex
	calls int

	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

func (m *MockTxManager) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// =============================
// Redis
// =============================

// fakeRedisClient backs the rate limiter with in-memory counters.
type fakeRedisClient struct {
	mu     sync.Mutex
	counts map[string]int64

	IncrFunc func(ctx context.Context, key string) (int64, error)
}

func newFakeRedisClient() *fakeRedisClient {
	return &fakeRedisClient{counts: make(map[string]int64)}
}

func (f *fakeRedisClient) Ping(ctx context.Context) error { return nil }

func (f *fakeRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}

func (f *fakeRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeRedisClient) Get(ctx context.Context, key string) (string, error) { return "", nil }

func (f *fakeRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	if f.IncrFunc != nil {
		return f.IncrFunc(ctx, key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (f *fakeRedisClient) Del(ctx context.Context, keys ...string) error { return nil }

func (f *fakeRedisClient) Close() error { return nil }

// =============================
// Localization
// =============================

// keyLocalizer echoes the message key so tests assert on keys rather
// than catalog text.
type keyLocalizer struct{}

func (keyLocalizer) T(locale, key string, args ...string) string { return key }
