// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/application"
	"telegram-translation-bot/internal/config"
	"telegram-translation-bot/internal/domain/ports/adapter"
	tele "telegram-translation-bot/internal/infra/adapters/telegram"
	"telegram-translation-bot/internal/infra/adapters/translation"
	pg "telegram-translation-bot/internal/infra/db/postgres"
	httpx "telegram-translation-bot/internal/infra/http"
	"telegram-translation-bot/internal/infra/i18n"
	"telegram-translation-bot/internal/infra/ingest"
	"telegram-translation-bot/internal/infra/logging"
	"telegram-translation-bot/internal/infra/metrics"
	red "telegram-translation-bot/internal/infra/redis"
	"telegram-translation-bot/internal/infra/sched"
	"telegram-translation-bot/internal/infra/web"
	"telegram-translation-bot/internal/infra/worker"
	"telegram-translation-bot/internal/usecase"
)

// Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop bot without a token)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool := pg.MustConnectPostgres(cfg.Database.URL)
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	dedup := red.NewDedupWindow(redisClient, cfg.Ingest.DedupWindow)
	rateLimiter := red.NewRateLimiter(redisClient)
	sessionCache := red.NewSessionCache(redisClient, cfg.Redis.TTL)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	sessionRepo := pg.NewChatSessionRepo(pool, sessionCache)
	ledgerRepo := pg.NewLedgerRepo(pool)
	statsRepo := pg.NewStatsRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Translation chain ----
	providers, names := buildProviders(ctx, &cfg.Translation, logger)
	if len(providers) == 0 {
		log.Fatalf("no usable translation providers: check translation.providers in %s", *cfgPath)
	}
	multi := translation.NewMultiProvider(providers, names, cfg.Translation.CallTimeout, cfg.Translation.HealthHalfLife)

	// ---- Localization ----
	loc, err := i18n.New(cfg.I18n.DefaultLocale)
	if err != nil {
		log.Fatalf("i18n: %v", err)
	}

	// ---- Use cases ----
	prefsUC := usecase.NewPreferencesUseCase(sessionRepo, names, cfg.Translation.DefaultTargets, logger)
	statsUC := usecase.NewStatsUseCase(statsRepo, logger)

	// ---- Telegram ----
	var bot adapter.TelegramBotAdapter
	var realBot *tele.RealBot
	if cfg.Bot.Token == "" {
		logger.Warn().Msg("no bot token, using noop adapter")
		bot = &tele.NoopBotAdapter{}
	} else {
		realBot, err = tele.NewRealBot(&cfg.Bot, logger)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		bot = realBot
	}

	// ---- Dispatcher ----
	wpool := worker.NewPool(cfg.Dispatch.Workers)
	wpool.Start(ctx)
	dispatchUC := usecase.NewDispatchUseCase(
		cfg.Dispatch, cfg.RateLimit, cfg.Translation.DefaultTargets,
		wpool, sessionRepo, ledgerRepo, statsRepo, txManager,
		multi, bot, rateLimiter, loc, cfg.I18n.DefaultLocale, logger,
	)

	// ---- Facade ----
	facade := application.NewBotFacade(
		prefsUC, statsUC, bot, multi, rateLimiter, loc,
		cfg.I18n.DefaultLocale, names, cfg.Bot.AdminIDs, cfg.RateLimit, logger,
	)

	// ---- Ingestion ----
	queue := ingest.NewQueue(cfg.Ingest.QueueSize)
	intake := ingest.NewIntake(queue, dedup, facade, logger)

	var webhookHandler http.Handler
	switch cfg.Bot.Mode {
	case "webhook":
		webhookHandler = ingest.NewWebhook(intake, cfg.Ingest.Webhook, logger)
		if realBot != nil {
			if err := realBot.EnsureWebhook(ctx, cfg.Ingest.Webhook); err != nil {
				log.Fatalf("webhook registration: %v", err)
			}
		}
	default: // polling
		if realBot != nil {
			if err := realBot.EnsurePolling(ctx); err != nil {
				log.Fatalf("polling setup: %v", err)
			}
			poller := ingest.NewPoller(realBot, intake, cfg.Ingest.PollTimeout, cfg.Ingest.PollBackoff, logger)
			go func() {
				if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error().Err(err).Msg("poller stopped")
				}
			}()
		} else {
			logger.Warn().Msg("polling needs a bot token; no updates will arrive")
		}
	}
	if realBot != nil {
		if err := realBot.RegisterCommands(ctx); err != nil {
			logger.Warn().Err(err).Msg("command registration failed")
		}
	}

	go func() {
		if err := dispatchUC.Run(ctx, queue.Updates()); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("dispatcher stopped")
		}
	}()

	// ---- Public HTTP (webhook, healthz, metrics) ----
	router := httpx.NewRouter(webhookHandler, cfg.Ingest.Webhook.Path, map[string]httpx.Pinger{
		"postgres": pool,
		"redis":    redisClient,
	}, logger)
	httpServer := httpx.NewServer(cfg.HTTP, router, logger)
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Admin API ----
	var adminServer *web.Server
	if cfg.Admin.Port > 0 {
		auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, 30*time.Minute)
		adminServer = web.NewServer(cfg.Admin, statsUC, multi, queue, dispatchUC, auth, logger)
		go func() {
			if err := adminServer.Start(); err != nil {
				logger.Error().Err(err).Msg("admin server error")
			}
		}()
	}

	// ---- Janitor ----
	janitor := sched.NewJanitor(cfg.Janitor, ledgerRepo, sessionRepo, locker, logger)
	go func() { _ = janitor.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("admin shutdown")
		}
	}
	wpool.Stop()
}

// buildProviders constructs every provider named in the config, skipping
// any whose credentials are missing, and returns them with the names
// that made it.
func buildProviders(ctx context.Context, cfg *config.TranslationConfig, logger *zerolog.Logger) ([]adapter.TranslationProvider, []string) {
	var out []adapter.TranslationProvider
	var names []string
	for _, name := range cfg.Providers {
		p, err := newProvider(ctx, name, cfg)
		if err != nil {
			logger.Warn().Err(err).Str("provider", name).Msg("translation provider skipped")
			continue
		}
		out = append(out, translation.NewLimitedProvider(p, cfg.ConcurrentLimit))
		names = append(names, name)
		logger.Info().Str("provider", name).Msg("translation provider ready")
	}
	return out, names
}

func newProvider(ctx context.Context, name string, cfg *config.TranslationConfig) (adapter.TranslationProvider, error) {
	switch name {
	case "libretranslate":
		return translation.NewLibreTranslateProvider(cfg.LibreURL, cfg.LibreKey), nil
	case "mymemory":
		return translation.NewMyMemoryProvider("", cfg.MyMemoryEmail), nil
	case "google":
		return translation.NewGoogleProvider(""), nil
	case "deepl":
		return translation.NewDeepLProvider("", cfg.DeepLKey)
	case "openai":
		return translation.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel)
	case "gemini":
		return translation.NewGeminiProvider(ctx, cfg.GeminiKey, cfg.GeminiURL, "", 0)
	case "noop":
		return translation.NewNoopProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
