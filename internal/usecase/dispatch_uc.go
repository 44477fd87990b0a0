// File: internal/usecase/dispatch_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/config"
	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/model"
	"telegram-translation-bot/internal/domain/ports/adapter"
	"telegram-translation-bot/internal/domain/ports/repository"
	"telegram-translation-bot/internal/infra/logging"
	"telegram-translation-bot/internal/infra/metrics"
	"telegram-translation-bot/internal/infra/redis"
	"telegram-translation-bot/internal/infra/worker"
)

// Localizer renders user-visible notices.
type Localizer interface {
	T(locale, key string, args ...string) string
}

// Compile-time check
var _ DispatchUseCase = (*dispatchUC)(nil)

// DispatchUseCase owns translation work end to end: per-chat ordering,
// the single-in-flight guarantee, retries and terminal bookkeeping.
type DispatchUseCase interface {
	// Run consumes updates until ctx is cancelled or the channel closes.
	Run(ctx context.Context, updates <-chan model.InboundUpdate) error
	// Submit admits one update into its chat lane without blocking.
	// A saturated lane returns domain.ErrChatBacklogFull.
	Submit(upd model.InboundUpdate) error
	// ActiveLanes reports how many chat lanes currently exist.
	ActiveLanes() int
	// InFlight reports how many requests the chat has in flight, 0 or 1.
	InFlight(chatID int64) int
}

// Terminal causes that end a request silently: the work disappeared, it
// did not fail.
var (
	errDuplicateMessage = errors.New("message already processed")
	errAutoTranslateOff = errors.New("auto-translate disabled for chat")
)

const noticeThrottleWindow = time.Minute

// chatLane serializes one chat's work. backlog holds updates not yet
// started; current is the request being attempted or parked for retry.
// All fields are guarded by the coordinator mutex.
type chatLane struct {
	chatID    int64
	backlog   []model.InboundUpdate
	current   *model.TranslationRequest
	claimed   bool // ledger row taken for current
	emitted   int  // replies sent for current across attempts
	inFlight  bool
	idleSince time.Time
}

type dispatchUC struct {
	cfg            config.DispatchConfig
	limits         config.RateLimitConfig
	defaultTargets []string

	mu     sync.Mutex
	lanes  map[int64]*chatLane
	closed bool

	pool       *worker.Pool
	sessions   repository.ChatSessionRepository
	ledger     repository.ProcessedLedger
	stats      repository.StatsRepository
	tm         repository.TransactionManager
	translator adapter.TranslationProvider
	bot        adapter.TelegramBotAdapter
	limiter    *redis.RateLimiter
	loc        Localizer
	locale     string
	log        *zerolog.Logger
	now        func() time.Time
}

func NewDispatchUseCase(
	cfg config.DispatchConfig,
	limits config.RateLimitConfig,
	defaultTargets []string,
	pool *worker.Pool,
	sessions repository.ChatSessionRepository,
	ledger repository.ProcessedLedger,
	stats repository.StatsRepository,
	tm repository.TransactionManager,
	translator adapter.TranslationProvider,
	bot adapter.TelegramBotAdapter,
	limiter *redis.RateLimiter,
	loc Localizer,
	locale string,
	logger *zerolog.Logger,
) *dispatchUC {
	l := logger.With().Str("component", "dispatch").Logger()
	return &dispatchUC{
		cfg:            cfg,
		limits:         limits,
		defaultTargets: defaultTargets,
		lanes:          make(map[int64]*chatLane),
		pool:           pool,
		sessions:       sessions,
		ledger:         ledger,
		stats:          stats,
		tm:             tm,
		translator:     translator,
		bot:            bot,
		limiter:        limiter,
		loc:            loc,
		locale:         locale,
		log:            &l,
		now:            time.Now,
	}
}

func (d *dispatchUC) Run(ctx context.Context, updates <-chan model.InboundUpdate) error {
	d.log.Info().
		Int("workers", d.cfg.Workers).
		Int("chat_backlog", d.cfg.ChatBacklog).
		Int("max_attempts", d.cfg.MaxAttempts).
		Msg("dispatcher started")

	sweep := time.NewTicker(d.sweepInterval())
	defer sweep.Stop()
	defer d.close()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("dispatcher stopping")
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if err := d.Submit(upd); err != nil {
				d.rejectUpdate(ctx, upd, err)
			}
		case <-sweep.C:
			d.sweepIdleLanes()
		}
	}
}

func (d *dispatchUC) Submit(upd model.InboundUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	lane := d.lanes[upd.ChatID]
	if lane == nil {
		lane = &chatLane{chatID: upd.ChatID, idleSince: d.now()}
		d.lanes[upd.ChatID] = lane
		metrics.SetActiveLanes(len(d.lanes))
	}
	if d.cfg.ChatBacklog > 0 && len(lane.backlog) >= d.cfg.ChatBacklog {
		return domain.ErrChatBacklogFull
	}
	lane.backlog = append(lane.backlog, upd)
	d.pump(lane)
	return nil
}

func (d *dispatchUC) ActiveLanes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lanes)
}

func (d *dispatchUC) InFlight(chatID int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if lane := d.lanes[chatID]; lane != nil && lane.inFlight {
		return 1
	}
	return 0
}

// pump moves the lane forward. Caller holds d.mu. At most one attempt
// is ever scheduled per lane: this is where the single-in-flight and
// ordering guarantees live.
func (d *dispatchUC) pump(lane *chatLane) {
	if d.closed || lane.inFlight {
		return
	}
	if lane.current == nil {
		if len(lane.backlog) == 0 {
			lane.idleSince = d.now()
			return
		}
		upd := lane.backlog[0]
		lane.backlog = lane.backlog[1:]
		lane.current = model.NewTranslationRequest(ulid.Make().String(), upd, d.deadline())
		lane.claimed = false
		lane.emitted = 0
	}
	if lane.current.Status == model.RequestRetryScheduled && d.now().Before(lane.current.NextAttemptAt) {
		return // the retry timer pumps again when it fires
	}

	lane.inFlight = true
	err := d.pool.Submit(func(ctx context.Context) error {
		d.attempt(ctx, lane)
		return nil
	})
	if err != nil {
		// Pool saturated. The lane keeps its head; try again shortly.
		lane.inFlight = false
		delay := d.cfg.BackoffBase
		if delay <= 0 {
			delay = 100 * time.Millisecond
		}
		time.AfterFunc(delay, func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.pump(lane)
		})
	}
}

// attempt runs one try of the lane's current request on a pool worker.
func (d *dispatchUC) attempt(ctx context.Context, lane *chatLane) {
	d.mu.Lock()
	req := lane.current
	d.mu.Unlock()
	if req == nil {
		d.clearLane(lane)
		return
	}

	ctx = logging.WithChatID(ctx, req.ChatID)
	ctx = logging.WithMessageID(ctx, req.MessageID)
	if req.TraceID != "" {
		ctx = logging.WithTraceID(ctx, req.TraceID)
	}
	ctx = logging.WithRequestID(ctx, req.ID)
	log := logging.With(ctx, d.log)

	if req.Expired(d.now()) {
		_ = req.MarkFailed(domain.ErrRequestExpired)
		d.finishExpired(ctx, lane, req)
		return
	}
	if err := req.MarkInFlight(); err != nil {
		log.Error().Err(err).Str("status", string(req.Status)).Msg("request state machine violated")
		d.clearLane(lane)
		return
	}

	start := time.Now()
	emitted, err := d.processAttempt(ctx, lane, req)
	latency := time.Since(start)

	d.mu.Lock()
	lane.emitted += emitted
	totalEmitted := lane.emitted
	d.mu.Unlock()

	switch {
	case err == nil:
		_ = req.MarkSucceeded()
		metrics.IncDispatchOutcome("succeeded")
		metrics.ObserveDispatchLatency("succeeded", latency.Milliseconds())
		log.Info().Int("attempts", req.Attempts).Int("emitted", totalEmitted).
			Dur("duration", latency).Msg("request succeeded")
		d.finalize(ctx, req, 1, int64(totalEmitted), 0)
		d.clearLane(lane)

	case errors.Is(err, errDuplicateMessage):
		_ = req.MarkFailed(err)
		metrics.IncDispatchOutcome("duplicate")
		log.Debug().Msg("redelivered message suppressed by ledger")
		d.clearLane(lane)

	case errors.Is(err, errAutoTranslateOff):
		_ = req.MarkFailed(err)
		metrics.IncDispatchOutcome("skipped")
		d.finalize(ctx, req, 1, 0, 0)
		d.clearLane(lane)

	case req.Expired(d.now()):
		_ = req.MarkFailed(domain.ErrRequestExpired)
		d.finishExpired(ctx, lane, req)

	case domain.IsPermanent(err):
		_ = req.MarkFailed(err)
		metrics.IncDispatchOutcome("failed")
		metrics.ObserveDispatchLatency("failed", latency.Milliseconds())
		log.Warn().Err(err).Int("attempts", req.Attempts).Msg("request failed permanently")
		d.notify(ctx, req, "translate_failed")
		d.finalize(ctx, req, 1, int64(totalEmitted), 1)
		d.clearLane(lane)

	case req.Attempts >= d.maxAttempts():
		_ = req.MarkFailed(err)
		metrics.IncDispatchOutcome("exhausted")
		metrics.ObserveDispatchLatency("exhausted", latency.Milliseconds())
		log.Warn().Err(err).Int("attempts", req.Attempts).Msg("retries exhausted")
		d.notify(ctx, req, "translate_failed")
		d.finalize(ctx, req, 1, int64(totalEmitted), 1)
		d.clearLane(lane)

	default:
		d.scheduleRetry(ctx, lane, req, err)
	}
}

// processAttempt performs one attempt: resolve the session on the first
// try, claim the ledger row, shape the rate, then translate every
// remaining target in order. It returns how many replies were emitted
// this attempt; targets already done are removed from the request so a
// retry never re-sends them.
func (d *dispatchUC) processAttempt(ctx context.Context, lane *chatLane, req *model.TranslationRequest) (int, error) {
	log := logging.With(ctx, d.log)

	if !req.Resolved() {
		session, err := d.getOrCreateSession(ctx, req.ChatID)
		if err != nil {
			return 0, fmt.Errorf("resolve session: %w", err)
		}
		if !session.AutoTranslate {
			return 0, errAutoTranslateOff
		}
		req.ResolveSession(session)
	}

	if !d.laneClaimed(lane) {
		first, err := d.ledger.RecordProcessed(ctx, nil, req.ChatID, req.MessageID, d.now())
		if err != nil {
			return 0, fmt.Errorf("ledger claim: %w", err)
		}
		if !first {
			return 0, errDuplicateMessage
		}
		d.setLaneClaimed(lane)
	}

	if d.limiter != nil && d.limits.Requests > 0 {
		allowed, err := d.limiter.Allow(ctx, redis.ChatTranslateKey(req.ChatID), d.limits.Requests, d.limits.Window)
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable, allowing")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			return 0, fmt.Errorf("chat translate budget: %w", domain.ErrProviderRateLimited)
		}
	}

	if strings.TrimSpace(req.Text) == "" {
		return 0, domain.ErrEmptyText
	}

	rctx := ctx
	if !req.Deadline.IsZero() {
		var cancel context.CancelFunc
		rctx, cancel = context.WithDeadline(ctx, req.Deadline)
		defer cancel()
	}

	emitted := 0
	for len(req.TargetLangs) > 0 {
		target := req.TargetLangs[0]

		res, err := d.translator.Translate(rctx, adapter.TranslateRequest{
			Text:       req.Text,
			SourceLang: req.SourceLang,
			TargetLang: target,
			Provider:   req.Provider,
		})
		if err != nil {
			return emitted, err
		}

		// Detected source == target, or the provider handed the text
		// back unchanged: nothing worth echoing into the chat.
		if (res.SourceLang != "" && res.SourceLang == target) ||
			strings.TrimSpace(res.Text) == strings.TrimSpace(req.Text) {
			req.TargetLangs = req.TargetLangs[1:]
			continue
		}

		if err := d.bot.SendReply(ctx, req.ChatID, req.MessageID, res.Text); err != nil {
			// The translation itself worked; a delivery hiccup must not
			// burn provider quota on a full retry.
			metrics.IncTelegramSendFailure()
			log.Error().Err(err).Str("target", target).Msg("failed to deliver translation")
		}
		emitted++
		req.TargetLangs = req.TargetLangs[1:]
	}
	return emitted, nil
}

func (d *dispatchUC) scheduleRetry(ctx context.Context, lane *chatLane, req *model.TranslationRequest, cause error) {
	log := logging.With(ctx, d.log)

	delay := d.backoffDelay(req.Attempts)
	next := d.now().Add(delay)
	if !req.Deadline.IsZero() && next.After(req.Deadline) {
		// The deadline lands inside the wait, so another attempt can
		// never run. Abandon now instead of parking a dead request.
		_ = req.MarkFailed(domain.ErrRequestExpired)
		d.finishExpired(ctx, lane, req)
		return
	}

	_ = req.MarkRetryScheduled(next, cause)
	metrics.IncDispatchRetry(req.Attempts)
	log.Warn().Err(cause).
		Int("attempt", req.Attempts).
		Dur("retry_in", delay).
		Msg("transient failure, retry scheduled")

	d.mu.Lock()
	lane.inFlight = false
	d.mu.Unlock()
	time.AfterFunc(delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.pump(lane)
	})
}

func (d *dispatchUC) finishExpired(ctx context.Context, lane *chatLane, req *model.TranslationRequest) {
	log := logging.With(ctx, d.log)
	metrics.IncDispatchExpired()
	metrics.IncDispatchOutcome("expired")
	log.Warn().Int("attempts", req.Attempts).Time("deadline", req.Deadline).Msg("request deadline exceeded")
	d.notify(ctx, req, "translate_timeout")
	if req.Attempts > 0 {
		// Partial fan-out from earlier attempts still counts; a request
		// that never ran carries no claim and no stats row.
		d.mu.Lock()
		emitted := lane.emitted
		d.mu.Unlock()
		d.finalize(ctx, req, 1, int64(emitted), 1)
	}
	d.clearLane(lane)
}

// finalize records the terminal outcome: activity touch plus daily
// counters, atomically. Uses a fresh context so shutdown cannot lose
// the bookkeeping for work already done.
func (d *dispatchUC) finalize(ctx context.Context, req *model.TranslationRequest, posts, translations, failures int64) {
	log := logging.With(ctx, d.log)
	now := d.now()
	err := d.tm.WithTx(context.Background(), pgx.TxOptions{}, func(txCtx context.Context, tx repository.Tx) error {
		if err := d.sessions.Touch(txCtx, tx, req.ChatID, now); err != nil {
			return err
		}
		return d.stats.BumpDaily(txCtx, tx, model.Date(now), req.ChatID, posts, translations, failures)
	})
	if err != nil {
		log.Error().Err(err).Msg("outcome bookkeeping failed")
	}
}

func (d *dispatchUC) notify(ctx context.Context, req *model.TranslationRequest, key string) {
	if err := d.bot.SendReply(ctx, req.ChatID, req.MessageID, d.loc.T(d.locale, key)); err != nil {
		metrics.IncTelegramSendFailure()
		logging.With(ctx, d.log).Error().Err(err).Msg("failed to deliver failure notice")
	}
}

func (d *dispatchUC) rejectUpdate(ctx context.Context, upd model.InboundUpdate, cause error) {
	metrics.IncBacklogDropped()
	d.log.Warn().Err(cause).
		Int64("chat_id", upd.ChatID).
		Int("message_id", upd.MessageID).
		Msg("chat backlog full, update dropped")

	// One throttled notice per window so a flooding chat hears about
	// drops without being flooded back.
	if d.limiter != nil {
		key := fmt.Sprintf("backlog_notice:%d", upd.ChatID)
		allowed, err := d.limiter.Allow(ctx, key, 1, noticeThrottleWindow)
		if err != nil || !allowed {
			return
		}
	}
	if err := d.bot.SendMessage(ctx, upd.ChatID, d.loc.T(d.locale, "backlog_full")); err != nil {
		metrics.IncTelegramSendFailure()
	}
}

func (d *dispatchUC) getOrCreateSession(ctx context.Context, chatID int64) (*model.ChatSession, error) {
	s, err := d.sessions.FindByChatID(ctx, nil, chatID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	s = model.NewChatSession(chatID, d.defaultTargets, d.now())
	if err := d.sessions.Save(ctx, nil, s); err != nil {
		if errors.Is(err, domain.ErrStoreContention) || errors.Is(err, domain.ErrAlreadyExists) {
			// Lost a benign create race; the winner's row is fine.
			return d.sessions.FindByChatID(ctx, nil, chatID)
		}
		return nil, err
	}
	return s, nil
}

func (d *dispatchUC) clearLane(lane *chatLane) {
	d.mu.Lock()
	defer d.mu.Unlock()
	lane.current = nil
	lane.claimed = false
	lane.emitted = 0
	lane.inFlight = false
	lane.idleSince = d.now()
	d.pump(lane)
}

func (d *dispatchUC) sweepIdleLanes() {
	d.mu.Lock()
	defer d.mu.Unlock()
	ttl := d.cfg.IdleLaneTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	now := d.now()
	for id, lane := range d.lanes {
		if lane.current == nil && !lane.inFlight && len(lane.backlog) == 0 && now.Sub(lane.idleSince) > ttl {
			delete(d.lanes, id)
		}
	}
	metrics.SetActiveLanes(len(d.lanes))
}

func (d *dispatchUC) laneClaimed(lane *chatLane) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return lane.claimed
}

func (d *dispatchUC) setLaneClaimed(lane *chatLane) {
	d.mu.Lock()
	defer d.mu.Unlock()
	lane.claimed = true
}

func (d *dispatchUC) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *dispatchUC) deadline() time.Time {
	if d.cfg.RequestTimeout <= 0 {
		return time.Time{}
	}
	return d.now().Add(d.cfg.RequestTimeout)
}

func (d *dispatchUC) maxAttempts() int {
	if d.cfg.MaxAttempts <= 0 {
		return 1
	}
	return d.cfg.MaxAttempts
}

func (d *dispatchUC) backoffDelay(attempt int) time.Duration {
	base := d.cfg.BackoffBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 16 {
		shift = 16
	}
	delay := base << uint(shift)
	if maxDelay := d.cfg.BackoffCap; maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	// Up to 20% jitter so chats that failed together do not retry together.
	delay += time.Duration(rand.Int63n(int64(delay)/5 + 1))
	return delay
}

func (d *dispatchUC) sweepInterval() time.Duration {
	ttl := d.cfg.IdleLaneTTL
	if ttl <= 0 {
		return time.Minute
	}
	half := ttl / 2
	if half < time.Second {
		return time.Second
	}
	if half > time.Minute {
		return time.Minute
	}
	return half
}
