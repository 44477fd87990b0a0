// File: internal/infra/web/server.go
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/config"
	"telegram-translation-bot/internal/infra/adapters/translation"
	httpx "telegram-translation-bot/internal/infra/http"
	"telegram-translation-bot/internal/usecase"
)

// ProviderHealth exposes the translator chain's scores to the dashboard.
type ProviderHealth interface {
	HealthSnapshot() []translation.ProviderStatus
}

// QueueStats reports the ingest backlog.
type QueueStats interface {
	Depth() int
}

// LaneStats reports how many per-chat dispatch lanes are live.
type LaneStats interface {
	ActiveLanes() int
}

// Server is the operator API. It listens on its own port, away from the
// public webhook, and every data route sits behind a JWT session.
type Server struct {
	stats    usecase.StatsUseCase
	health   ProviderHealth
	queue    QueueStats
	lanes    LaneStats
	user     string
	password string
	auth     *AuthManager
	srv      *http.Server
	log      *zerolog.Logger
}

func NewServer(
	cfg config.AdminConfig,
	stats usecase.StatsUseCase,
	health ProviderHealth,
	queue QueueStats,
	lanes LaneStats,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "admin_api").Logger()
	s := &Server{
		stats:    stats,
		health:   health,
		queue:    queue,
		lanes:    lanes,
		user:     cfg.User,
		password: cfg.Password,
		auth:     auth,
		log:      &l,
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the mux on its own so tests can drive the handlers
// without a listener.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(httpx.Recover(s.log), httpx.TraceID(), httpx.RequestLog(s.log), httpx.Timeout(15*time.Second))

	r.Post("/api/v1/admin/auth/login", s.loginHandler)
	r.Post("/api/v1/admin/auth/logout", s.logoutHandler)

	r.Group(func(pr chi.Router) {
		pr.Use(s.authMiddleware)
		pr.Get("/api/v1/stats", statsHandler(s.stats))
		pr.Get("/api/v1/providers", providersHandler(s.health))
		pr.Get("/api/v1/queue", queueHandler(s.queue, s.lanes))
	})
	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("admin api listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// authMiddleware rejects any request that lacks a valid admin session.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
