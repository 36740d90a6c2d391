// Package api provides the HTTP handlers for the AirCut control server.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/furkanksl/aircut/internal/store"
	"github.com/furkanksl/aircut/internal/trajectory"
)

// TemplateHandler handles HTTP requests for gesture templates.
type TemplateHandler struct {
	store *store.Store
}

// NewTemplateHandler creates a TemplateHandler backed by the given store.
func NewTemplateHandler(s *store.Store) *TemplateHandler {
	return &TemplateHandler{store: s}
}

// ServeHTTP routes collection and item requests.
// Expected paths: /api/templates or /api/templates/{id}
func (h *TemplateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/templates")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type templateRequest struct {
	Name       string                `json:"name"`
	Command    string                `json:"command"`
	Trajectory trajectory.Trajectory `json:"trajectory"`
}

type templateResponse struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Command    string                `json:"command"`
	Trajectory trajectory.Trajectory `json:"trajectory"`
	CreatedAt  string                `json:"created_at"`
	UpdatedAt  string                `json:"updated_at"`
}

type listTemplatesResponse struct {
	Templates []templateResponse `json:"templates"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(t *store.Template) templateResponse {
	return templateResponse{
		ID:         t.ID,
		Name:       t.Name,
		Command:    t.Command,
		Trajectory: t.Points,
		CreatedAt:  t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:  t.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *TemplateHandler) list(w http.ResponseWriter, _ *http.Request) {
	templates, err := h.store.Templates().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := listTemplatesResponse{Templates: make([]templateResponse, 0, len(templates))}
	for _, t := range templates {
		resp.Templates = append(resp.Templates, toResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TemplateHandler) create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	t := &store.Template{
		ID:      uuid.NewString(),
		Name:    req.Name,
		Command: req.Command,
		Points:  req.Trajectory,
	}
	if err := h.store.Templates().Create(t); err != nil {
		if errors.Is(err, store.ErrTooFewPoints) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(t))
}

func (h *TemplateHandler) get(w http.ResponseWriter, _ *http.Request, id string) {
	t, err := h.store.Templates().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (h *TemplateHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.store.Templates().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Name != "" {
		t.Name = req.Name
	}
	t.Command = req.Command
	if req.Trajectory != nil {
		t.Points = req.Trajectory
	}

	if err := h.store.Templates().Update(t); err != nil {
		if errors.Is(err, store.ErrTooFewPoints) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (h *TemplateHandler) delete(w http.ResponseWriter, _ *http.Request, id string) {
	if err := h.store.Templates().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
