package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scoreunlock/scoreunlock/internal/crowdmark"
	"github.com/scoreunlock/scoreunlock/internal/i18n"
	"github.com/scoreunlock/scoreunlock/internal/model"
	"github.com/scoreunlock/scoreunlock/internal/sharelink"
	"github.com/scoreunlock/scoreunlock/internal/summary"
)

// maxPageBytes bounds the HTML accepted by the inject endpoint.
const maxPageBytes = 8 << 20

// Backend is the remote data the handlers read.
type Backend interface {
	Assignments(ctx context.Context) ([]crowdmark.Document, error)
	AllPerfReports(ctx context.Context) (model.PerfReports, error)
	BaseURL() string
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	backend Backend
	cache   *sharelink.Cache
}

// New creates a new Handler.
func New(b Backend, cache *sharelink.Cache) *Handler {
	return &Handler{backend: b, cache: cache}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/share/{examMasterID}", h.handleShare)
	r.Get("/share/{examMasterID}/anchor", h.handleAnchor)
	r.Post("/inject", h.handleInject)
	r.Post("/rebuild", h.handleRebuild)
	r.Get("/summary", h.handleSummary)
	r.Get("/compare", h.handleCompare)
}

type shareResponse struct {
	ExamMasterID string `json:"examMasterId"`
	UUID         string `json:"uuid"`
	ScoreLink    string `json:"scoreLink"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func (h *Handler) injector(r *http.Request) *sharelink.Injector {
	return sharelink.NewInjector(h.cache, h.backend.BaseURL(), i18n.T(r.Context(), "ShareableLink"))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "exams": h.cache.Len()})
}

func (h *Handler) handleShare(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "examMasterID")
	uuid, ok := h.cache.Lookup(id)
	if !ok {
		http.Error(w, "unknown exam "+id, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{
		ExamMasterID: id,
		UUID:         uuid,
		ScoreLink:    crowdmark.ScoreLink(h.backend.BaseURL(), uuid),
	})
}

func (h *Handler) handleAnchor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "examMasterID")
	a, ok := h.injector(r).AnchorFor(id)
	if !ok {
		http.Error(w, "unknown exam "+id, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, a.HTML())
}

func (h *Handler) handleInject(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path query parameter is required", http.StatusBadRequest)
		return
	}
	doc, err := sharelink.ParseDocument(io.LimitReader(r.Body, maxPageBytes), path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	added, err := h.injector(r).InstallOnce(doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Debug("inject", "path", path, "added", added)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := doc.Render(w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Rebuild(r.Context()); err != nil {
		slog.Error("rebuild failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"exams": h.cache.Len()})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := summary.Complete(r.Context(), h.backend, h.backend.BaseURL())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	sum, err := summary.Complete(r.Context(), h.backend, h.backend.BaseURL())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	perf, err := h.backend.AllPerfReports(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, summary.CompareAverages(sum, perf))
}
