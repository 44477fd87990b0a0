// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/infra/adapters/translation"
	"telegram-translation-bot/internal/usecase"
)

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// loginHandler trades the operator credentials for a session cookie.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil || s.user == "" {
		s.log.Error().Msg("admin credentials are not configured")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.User != s.user || req.Password != s.password {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if _, err := s.auth.Mint(w); err != nil {
		s.log.Error().Err(err).Msg("mint session token")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if s.auth != nil {
		s.auth.Clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

// statsHandler serves fleet-wide translation totals for a trailing
// window of days (default seven).
func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		days := 0
		if raw := r.URL.Query().Get("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "days must be a number", http.StatusBadRequest)
				return
			}
			days = n
		}

		totals, err := statsUC.Totals(ctx, days)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to get totals", http.StatusInternalServerError)
			return
		}

		response := struct {
			Posts        int64 `json:"posts"`
			Translations int64 `json:"translations"`
			Failures     int64 `json:"failures"`
		}{
			Posts:        totals.Posts,
			Translations: totals.Translations,
			Failures:     totals.Failures,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// providersHandler lists the translation engines with their current
// health scores, best first.
func providersHandler(health ProviderHealth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := []translation.ProviderStatus{}
		if health != nil {
			if snap := health.HealthSnapshot(); snap != nil {
				items = snap
			}
		}

		response := struct {
			Items []translation.ProviderStatus `json:"items"`
		}{Items: items}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// queueHandler reports the ingest backlog and the live dispatch lanes.
func queueHandler(queue QueueStats, lanes LaneStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := struct {
			Depth       int `json:"depth"`
			ActiveLanes int `json:"active_lanes"`
		}{}
		if queue != nil {
			response.Depth = queue.Depth()
		}
		if lanes != nil {
			response.ActiveLanes = lanes.ActiveLanes()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
