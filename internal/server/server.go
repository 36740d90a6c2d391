// Package server exposes the local HTTP control surface: status, template
// management, tracking and drawing control, and a websocket event feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/furkanksl/aircut/internal/app"
	"github.com/furkanksl/aircut/internal/gesture"
	"github.com/furkanksl/aircut/internal/server/api"
	"github.com/furkanksl/aircut/internal/store"
	"github.com/furkanksl/aircut/internal/stream"
)

// Controller is the slice of the application the server drives. Tests supply
// a fake; production wires *app.App.
type Controller interface {
	Status() app.Status
	Connect(ctx context.Context) error
	SetTracking(enabled bool) error
	StopDrawing()
	ClearDrawing()
	SaveTemplate(name, command string) (*store.Template, error)
	UpdateConfidence(hand, gesture float64) error
	OnRecognized(fn func(gesture.MatchResult))
	OnSessionState(fn func(stream.SessionState))
}

// Config holds the server dependencies.
type Config struct {
	Addr  string
	Store *store.Store
	App   Controller
}

// Server is the HTTP control server.
type Server struct {
	cfg    Config
	http   *http.Server
	events *EventsHandler
}

// New creates a Server and registers the application event feeds.
func New(cfg Config) *Server {
	s := &Server{
		cfg:    cfg,
		events: NewEventsHandler(),
	}

	if cfg.App != nil {
		cfg.App.OnRecognized(func(r gesture.MatchResult) {
			s.events.Publish("gesture_recognized", r)
		})
		cfg.App.OnSessionState(func(st stream.SessionState) {
			s.events.Publish("session_state", map[string]string{"state": st.String()})
		})
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)
	s.http = &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}
	return s
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.Handle("/api/templates", api.NewTemplateHandler(s.cfg.Store))
	mux.Handle("/api/templates/", api.NewTemplateHandler(s.cfg.Store))
	mux.HandleFunc("/api/tracking", s.handleTracking)
	mux.HandleFunc("/api/connect", s.handleConnect)
	mux.HandleFunc("/api/drawing/stop", s.handleStopDrawing)
	mux.HandleFunc("/api/drawing/clear", s.handleClearDrawing)
	mux.HandleFunc("/api/drawing/save", s.handleSaveDrawing)
	mux.HandleFunc("/api/settings/confidence", s.handleConfidence)
	mux.Handle("/api/events", s.events)
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("Control server listening on %s", s.cfg.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and disconnects event clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.events.Close()
	return s.http.Shutdown(ctx)
}

// Events exposes the broadcaster so other components can publish.
func (s *Server) Events() *EventsHandler {
	return s.events
}

// Handler returns the HTTP handler (used by tests with httptest).
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.App.Status())
}

func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.cfg.App.SetTracking(req.Enabled); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"tracking": req.Enabled})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := s.cfg.App.Connect(ctx); err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("connect failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.App.Status())
}

func (s *Server) handleStopDrawing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.cfg.App.StopDrawing()
	writeJSON(w, http.StatusOK, s.cfg.App.Status())
}

func (s *Server) handleClearDrawing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.cfg.App.ClearDrawing()
	writeJSON(w, http.StatusOK, s.cfg.App.Status())
}

// handleSaveDrawing promotes the last finished trajectory to a template.
func (s *Server) handleSaveDrawing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name    string `json:"name"`
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	tpl, err := s.cfg.App.SaveTemplate(req.Name, req.Command)
	if err != nil {
		if errors.Is(err, store.ErrTooFewPoints) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (s *Server) handleConfidence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		HandDetection      float64 `json:"hand_detection_confidence"`
		GestureRecognition float64 `json:"gesture_recognition_confidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.HandDetection <= 0 || req.HandDetection > 1 || req.GestureRecognition <= 0 || req.GestureRecognition > 1 {
		writeError(w, http.StatusBadRequest, "confidence values must be in (0, 1]")
		return
	}

	if err := s.cfg.App.UpdateConfidence(req.HandDetection, req.GestureRecognition); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{
		"hand_detection_confidence":      req.HandDetection,
		"gesture_recognition_confidence": req.GestureRecognition,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
