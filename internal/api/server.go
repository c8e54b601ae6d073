// Package api provides the HTTP API for observing the town.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (operator control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/engine"
	"github.com/talgya/mini-town/internal/persistence"
)

// Server serves the town state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; enables per-resident history
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	upgrader websocket.Upgrader
	srv      *http.Server
}

// Handler builds the routed, CORS-wrapped API handler.
func (s *Server) Handler() http.Handler {
	commandLimiter := NewRateLimiter(30, time.Minute)

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/residents", s.handleResidents)
	mux.HandleFunc("/api/v1/resident/", s.handleResident)
	mux.HandleFunc("/api/v1/areas", s.handleAreas)
	mux.HandleFunc("/api/v1/map", s.handleMap)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Operator endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/clock", s.adminOnly(s.handleClock))
	mux.HandleFunc("/api/v1/command", s.adminOnly(RateLimitMiddleware(commandLimiter, s.handleCommand)))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "history", s.DB != nil)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server started by Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowedOrigins[origin] {
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

func (s *Server) checkBearerToken(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no TOWNSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	frame := s.Sim.Frame()
	counts := make(map[agents.Action]int)
	for _, rv := range frame.Residents {
		counts[rv.State.CurrentAction]++
	}

	status := map[string]any{
		"name":        "Mini Town",
		"tick":        s.Sim.CurrentTick(),
		"ticks":       humanize.Comma(int64(s.Sim.CurrentTick())),
		"started":     humanize.Time(s.Sim.StartedAt()),
		"clock":       frame.Clock,
		"is_night":    frame.IsNight,
		"clock_speed": s.Sim.Clock.Speed(),
		"paused":      s.Sim.Clock.Paused(),
		"speed":       s.Eng.Speed(),
		"residents":   len(frame.Residents),
		"idle":        counts[agents.ActionIdle],
		"moving":      counts[agents.ActionMoving],
		"working":     counts[agents.ActionWorking],
		"areas":       s.Sim.Areas.Len(),
	}
	if s.DB != nil {
		if n, err := s.DB.CountEvents(); err == nil {
			status["journaled_events"] = humanize.Comma(int64(n))
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleResidents(w http.ResponseWriter, r *http.Request) {
	type residentSummary struct {
		ID        string        `json:"id"`
		Name      string        `json:"name"`
		Action    agents.Action `json:"action"`
		Area      string        `json:"area,omitempty"`
		IsHome    bool          `json:"is_home"`
		X         float64       `json:"x"`
		Y         float64       `json:"y"`
		Bubble    string        `json:"bubble"`
		Workplace string        `json:"workplace,omitempty"`
	}

	action := r.URL.Query().Get("action")
	result := []residentSummary{}
	for _, rv := range s.Sim.Frame().Residents {
		if action != "" && string(rv.State.CurrentAction) != action {
			continue
		}
		result = append(result, residentSummary{
			ID:        rv.ID,
			Name:      rv.Name,
			Action:    rv.State.CurrentAction,
			Area:      rv.State.AreaID,
			IsHome:    rv.State.IsHome,
			X:         rv.State.DisplayPosition.X,
			Y:         rv.State.DisplayPosition.Y,
			Bubble:    rv.Bubble,
			Workplace: rv.State.Workplace,
		})
	}
	writeJSON(w, result)
}

// handleResident serves GET /api/v1/resident/:id with the full state and,
// when a database is attached, the resident's recent journaled events.
func (s *Server) handleResident(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/resident/"), "/")
	if id == "" {
		http.Error(w, "missing resident id", http.StatusBadRequest)
		return
	}
	rv, ok := s.Sim.Frame().Resident(id)
	if !ok {
		http.Error(w, "resident not found", http.StatusNotFound)
		return
	}

	detail := map[string]any{
		"id":     rv.ID,
		"name":   rv.Name,
		"bubble": rv.Bubble,
		"state":  rv.State,
		"recent": s.recentFor(id, 20),
	}
	writeJSON(w, detail)
}

func (s *Server) recentFor(id string, limit int) []engine.Event {
	if s.DB != nil {
		events, err := s.DB.EventsFor(id, limit)
		if err == nil {
			return events
		}
		slog.Warn("resident history lookup failed", "resident", id, "error", err)
	}
	out := []engine.Event{}
	for _, e := range s.Sim.RecentEvents(0) {
		if e.Resident == id {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (s *Server) handleAreas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Scene().Areas)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Scene())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Sim.RecentEvents(0)
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 100 {
			http.Error(w, "speed must be 0-100", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleClock(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var change engine.ClockChange
		if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		desc, err := s.Sim.AdjustClock(change)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{
			"result": desc,
			"clock":  s.Sim.Clock.String(),
			"speed":  s.Sim.Clock.Speed(),
			"paused": s.Sim.Clock.Paused(),
		})
		return
	}

	writeJSON(w, map[string]any{
		"clock":    s.Sim.Clock.String(),
		"time":     s.Sim.Clock.Now(),
		"speed":    s.Sim.Clock.Speed(),
		"paused":   s.Sim.Clock.Paused(),
		"is_night": s.Sim.Clock.IsNight(),
	})
}

// handleCommand queues an operator command: {"resident": "william", "command": "move_home"}.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Resident string `json:"resident"`
		Command  string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	err := s.Sim.SetCommand(req.Resident, req.Command)
	switch {
	case errors.Is(err, engine.ErrUnknownResident):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, agents.ErrUnknownCommand):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, engine.ErrInboxFull):
		w.Header().Set("Retry-After", "1")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{
		"status":   "queued",
		"resident": req.Resident,
		"command":  req.Command,
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("response write failed", "error", err)
	}
}
