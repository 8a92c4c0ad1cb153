// Package handler exposes the chain service over HTTP.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"notechain/internal/domain"
	"notechain/internal/service"
)

// ChainHandler handles chain API requests
type ChainHandler struct {
	svc *service.Chainkeeper
	log zerolog.Logger
}

// NewChainHandler creates a new chain handler
func NewChainHandler(svc *service.Chainkeeper, log zerolog.Logger) *ChainHandler {
	return &ChainHandler{svc: svc, log: log}
}

// Register attaches the API routes to a mux.
func (h *ChainHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/graph", h.GetGraph)
	mux.HandleFunc("GET /api/notes", h.ListNotes)
	mux.HandleFunc("GET /api/notes/{path...}", h.GetNote)
	mux.HandleFunc("GET /api/chain/{path...}", h.GetChain)
	mux.HandleFunc("POST /api/rebuild", h.Rebuild)
	mux.HandleFunc("POST /api/rename", h.Rename)
	mux.HandleFunc("GET /api/export/json", h.ExportJSON)
	mux.HandleFunc("GET /api/export/yaml", h.ExportYAML)
	mux.HandleFunc("GET /healthz", h.Healthz)
}

// Error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// GraphResponse is the full graph with its counters.
type GraphResponse struct {
	Nodes []domain.Node `json:"nodes"`
	Edges []domain.Edge `json:"edges"`
	Stats service.Stats `json:"stats"`
}

// NoteResponse is a single node with its resolved parents.
type NoteResponse struct {
	domain.Node
	Parents []string `json:"parents"`
}

// GetGraph returns the complete graph
func (h *ChainHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	nodes, edges := h.svc.GraphSnapshot()
	h.writeJSON(w, GraphResponse{
		Nodes: nodes,
		Edges: edges,
		Stats: h.svc.GraphStats(),
	}, http.StatusOK)
}

// ListNotes returns all notes in the graph
func (h *ChainHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	nodes, _ := h.svc.GraphSnapshot()
	h.writeJSON(w, nodes, http.StatusOK)
}

// GetNote returns a single note
func (h *ChainHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		h.writeError(w, "Invalid note path", "Note path is required", http.StatusBadRequest)
		return
	}

	node, parents, err := h.svc.Note(path)
	if err != nil {
		if domain.IsNotFound(err) {
			h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("note", path).Msg("failed to get note")
		h.writeError(w, "Failed to get note", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, NoteResponse{Node: node, Parents: parents}, http.StatusOK)
}

// GetChain returns the full chain through a note
func (h *ChainHandler) GetChain(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		h.writeError(w, "Invalid note path", "Note path is required", http.StatusBadRequest)
		return
	}

	view, err := h.svc.Chain(path)
	if err != nil {
		if domain.IsNotFound(err) {
			h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("note", path).Msg("failed to resolve chain")
		h.writeError(w, "Failed to resolve chain", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, view, http.StatusOK)
}

// Rebuild triggers a full vault resync
func (h *ChainHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Rebuild(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("rebuild failed")
		h.writeError(w, "Rebuild failed", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, stats, http.StatusOK)
}

// RenameRequest is a rename notification from the host.
type RenameRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Rename relabels a note in the graph
func (h *ChainHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Old == "" || req.New == "" {
		h.writeError(w, "Invalid rename", "Both old and new paths are required", http.StatusBadRequest)
		return
	}

	if err := h.svc.RenameNote(r.Context(), req.Old, req.New); err != nil {
		if domain.IsNotFound(err) {
			h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("old", req.Old).Str("new", req.New).Msg("rename failed")
		h.writeError(w, "Rename failed", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{"old": req.Old, "new": req.New}, http.StatusOK)
}

// Healthz reports liveness
func (h *ChainHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Helper methods

func (h *ChainHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *ChainHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		h.log.Error().Err(err).Msg("failed to encode error response")
	}
}
