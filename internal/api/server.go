// Package api provides the HTTP surface over a running simulation.
// GET endpoints are public (read-only observation): status, snapshot
// queries, and a websocket tick stream. POST endpoints under
// /api/v1/operator/ require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/emergence/internal/agents"
	"github.com/talgya/emergence/internal/operator"
	"github.com/talgya/emergence/internal/persistence"
	"github.com/talgya/emergence/internal/tick"
)

// Server serves the simulation's operator and observer surfaces over
// HTTP.
type Server struct {
	Engine   *tick.Engine
	Agents   *agents.Registry
	Store    *persistence.Adapter
	Port     int
	AdminKey string // Bearer token for POST /api/v1/operator/* endpoints. Empty = admin disabled.

	metrics *metricsSet
}

// Start binds the API's listening socket and then serves it in a
// goroutine. Binding happens synchronously so a caller such as
// cmd/worldsim can abort before tick 1 on a port conflict rather than
// discovering the failure only in a background log line.
func (s *Server) Start() error {
	if s.metrics == nil {
		s.metrics = newMetricsSet()
		go s.metrics.watch(s.Engine)
	}

	streamLimiter := NewRateLimiter(20, time.Minute)

	mux := http.NewServeMux()

	// Public observer endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/events/", s.handleEventsForTick)
	mux.HandleFunc("/api/v1/ledger/", s.handleLedgerForEntity)
	mux.HandleFunc("/api/v1/snapshot/", s.handleTickSnapshot)
	mux.HandleFunc("/api/v1/stream", RateLimitMiddleware(streamLimiter, s.handleStream))
	mux.Handle("/metrics", promhttp.Handler())

	// Operator control-plane endpoints (POST, bearer-gated), except the
	// status read, which is public and accepts any method.
	mux.HandleFunc("/api/v1/operator/status", s.handleStatus)
	mux.HandleFunc("/api/v1/operator/pause", s.adminOnly(s.handlePause))
	mux.HandleFunc("/api/v1/operator/resume", s.adminOnly(s.handleResume))
	mux.HandleFunc("/api/v1/operator/stop", s.adminOnly(s.handleStop))
	mux.HandleFunc("/api/v1/operator/restart", s.adminOnly(s.handleRestart))
	mux.HandleFunc("/api/v1/operator/tick-interval", s.adminOnly(s.handleTickInterval))
	mux.HandleFunc("/api/v1/operator/inject-event", s.adminOnly(s.handleInjectEvent))
	mux.HandleFunc("/api/v1/operator/spawn", s.adminOnly(s.handleQueueSpawn))

	addr := fmt.Sprintf(":%d", s.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: bind %s: %w", addr, err)
	}

	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")
	server := &http.Server{Handler: corsMiddleware(mux)}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// corsMiddleware adds CORS headers for allowed observer dashboard
// origins. Set CORS_ORIGINS to a comma-separated list; localhost dev
// servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request carries a valid admin
// bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer-token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "operator endpoints disabled (no admin key configured)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	currentTick := s.Engine.CurrentTick()
	status := s.Engine.Operator.Snapshot(currentTick, s.Agents.Count(), s.Agents.TotalCount())
	writeJSON(w, status)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.Engine.Operator.Pause()
	writeJSON(w, map[string]any{"paused": true})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.Engine.Operator.Resume()
	writeJSON(w, map[string]any{"paused": false})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.Engine.Operator.RequestStop()
	writeJSON(w, map[string]any{"stop_requested": true})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	s.Engine.Operator.RequestRestart()
	writeJSON(w, map[string]any{"restart_requested": true})
}

func (s *Server) handleTickInterval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Milliseconds uint64 `json:"milliseconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	previous, ok := s.Engine.Operator.SetTickIntervalMs(req.Milliseconds)
	if !ok {
		http.Error(w, "tick interval must be at least 100ms", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"previous_ms": previous, "current_ms": req.Milliseconds})
}

func (s *Server) handleInjectEvent(w http.ResponseWriter, r *http.Request) {
	var req operator.InjectedEvent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.EventType == "" {
		http.Error(w, "event_type required", http.StatusBadRequest)
		return
	}
	s.Engine.Operator.InjectEvent(req)
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleQueueSpawn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LocationID string `json:"location_id"`
		Count      int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	locID, err := uuid.Parse(req.LocationID)
	if err != nil {
		http.Error(w, "invalid location_id", http.StatusBadRequest)
		return
	}
	if req.Count <= 0 || req.Count > 100 {
		http.Error(w, "count must be between 1 and 100", http.StatusBadRequest)
		return
	}
	s.Engine.Operator.QueueAgentSpawn(operator.SpawnRequest{LocationID: locID, Count: req.Count})
	writeJSON(w, map[string]any{"success": true, "queued": req.Count})
}

func (s *Server) handleEventsForTick(w http.ResponseWriter, r *http.Request) {
	t, err := parseTickFromPath(r.URL.Path, "/api/v1/events/")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	events, err := s.Store.Cold.EventsForTick(t)
	if err != nil {
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

func (s *Server) handleLedgerForEntity(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/ledger/")
	if id == "" {
		http.Error(w, "entity id required", http.StatusBadRequest)
		return
	}
	entries, err := s.Store.Cold.LedgerForEntity(id)
	if err != nil {
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleTickSnapshot(w http.ResponseWriter, r *http.Request) {
	t, err := parseTickFromPath(r.URL.Path, "/api/v1/snapshot/")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snapshot, found, err := s.Store.Hot.GetTickSnapshot(t)
	if err != nil {
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "no snapshot for that tick", http.StatusNotFound)
		return
	}
	writeJSON(w, snapshot)
}

func parseTickFromPath(path, prefix string) (uint64, error) {
	raw := strings.TrimPrefix(path, prefix)
	t, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid tick number")
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
