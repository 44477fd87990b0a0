// File: internal/infra/http/server.go
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/config"
)

// Pinger is the health probe each backing dependency exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the public HTTP surface: the Telegram webhook, Prometheus
// metrics and the health endpoint. The admin API listens on its own
// port and is not reachable here.
type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

// NewRouter builds the public routes. webhook may be nil in polling
// mode; the path is then simply not registered.
func NewRouter(webhook http.Handler, webhookPath string, deps map[string]Pinger, logger *zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(Recover(logger), TraceID(), RequestLog(logger))

	r.Get("/healthz", healthHandler(deps, logger))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if webhook != nil {
		if !strings.HasPrefix(webhookPath, "/") {
			webhookPath = "/" + webhookPath
		}
		r.Post(webhookPath, webhook.ServeHTTP)
	}
	return r
}

func NewServer(cfg config.HTTPConfig, handler http.Handler, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "http").Logger()
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: &l,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// healthHandler pings every dependency and answers 503 as soon as one
// is down, naming it in the body.
func healthHandler(deps map[string]Pinger, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		components := make(map[string]string, len(deps))
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				logger.Warn().Err(err).Str("dependency", name).Msg("health probe failed")
				components[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		out := struct {
			Status     string            `json:"status"`
			Components map[string]string `json:"components"`
		}{Status: "ok", Components: components}
		if status != http.StatusOK {
			out.Status = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(out)
	}
}
