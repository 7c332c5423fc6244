package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gebo/internal/apperr"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// nodeID extracts the node id from the URL (everything after the mount
// point). Supports encoded slashes from OpenAPI clients.
func nodeID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// GetNode handles GET /api/nodes/*.
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	id := nodeID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	node, err := h.svc.GetNode(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get node failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// Neighbors handles GET /api/neighbors?id=...
func (h *Handler) Neighbors(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'id' is required"))
		return
	}
	n, err := h.svc.Neighbors(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("neighbors failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Affected handles GET /api/affected?id=...&depth=N.
func (h *Handler) Affected(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'id' is required"))
		return
	}
	depth, _ := strconv.Atoi(r.URL.Query().Get("depth"))
	ids, err := h.svc.Affected(r.Context(), id, depth)
	if err != nil {
		slog.Error("affected failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

// Metrics handles GET /api/metrics.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Metrics(r.Context())
	if err != nil {
		slog.Error("metrics failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Cycles handles GET /api/cycles.
func (h *Handler) Cycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.svc.Cycles(r.Context())
	if err != nil {
		slog.Error("cycles failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if cycles == nil {
		cycles = [][]string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": cycles})
}

// Validate handles POST /api/validate.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("ids are required"))
		return
	}
	results := h.svc.ValidateBatch(r.Context(), req.IDs)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Restore handles POST /api/archive/restore.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	restored, err := h.svc.Restore(r.Context(), req.ID)
	if err != nil {
		slog.Error("restore failed", slog.String("id", req.ID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": restored})
}

// Cleanup handles POST /api/archive/cleanup.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RetentionDays int `json:"retention_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	removed, err := h.svc.Cleanup(r.Context(), req.RetentionDays)
	if err != nil {
		slog.Error("cleanup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// ArchiveStats handles GET /api/archive/stats.
func (h *Handler) ArchiveStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.ArchiveStats(r.Context())
	if err != nil {
		slog.Error("archive stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
