// Package httpapi exposes extraction and search over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"search-agent/internal/application/port/input"
	"search-agent/internal/application/port/output"
	"search-agent/internal/domain/entity"
	"search-agent/internal/usecase/extractor"
	"search-agent/internal/usecase/search"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	search  input.SearchExecutor
	extract extractor.Options
	logger  output.LoggerPort
}

// NewHandler wires the endpoints. search may be nil, in which case
// /v1/search is not mounted.
func NewHandler(search input.SearchExecutor, extract extractor.Options, logger output.LoggerPort) *Handler {
	return &Handler{
		search:  search,
		extract: extract,
		logger:  logger,
	}
}

// Router returns the chi router with request logging under serviceName.
func (h *Handler) Router(serviceName string, logOpts httplog.Options) http.Handler {
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(httplog.NewLogger(serviceName, logOpts)))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", h.extractText)
		if h.search != nil {
			r.Post("/search", h.runSearch)
		}
	})
	return r
}

type extractRequest struct {
	Text          string `json:"text"`
	StrictSources *bool  `json:"strict_sources,omitempty"`
	DedupeSources *bool  `json:"dedupe_sources,omitempty"`
}

type extractResponse struct {
	Result  *entity.StructuredResult  `json:"result"`
	Path    extractor.Path            `json:"path"`
	Dropped []extractor.DroppedSource `json:"dropped"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Raw     string `json:"raw,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) extractText(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: err.Error()})
		return
	}

	opts := h.extract
	if req.StrictSources != nil {
		opts.StrictSources = *req.StrictSources
	}
	if req.DedupeSources != nil {
		opts.DedupeSources = *req.DedupeSources
	}

	res, rep, err := extractor.ExtractWithReport(req.Text, opts)
	if err != nil {
		h.writeExtractionError(w, err)
		return
	}

	dropped := rep.Dropped
	if dropped == nil {
		dropped = []extractor.DroppedSource{}
	}
	writeJSON(w, http.StatusOK, extractResponse{Result: res, Path: rep.Path, Dropped: dropped})
}

func (h *Handler) runSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: err.Error()})
		return
	}

	outcome, err := h.search.Search(r.Context(), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrEmptyQuery):
			writeError(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: err.Error()})
		case errors.Is(err, search.ErrAgentFailed):
			h.logger.Error("Search failed", "error", err)
			writeError(w, http.StatusBadGateway, errorResponse{Error: "AgentFailed", Message: err.Error()})
		default:
			h.writeExtractionError(w, err)
		}
		return
	}

	httplog.LogEntrySetField(r.Context(), "run_id", outcome.RunID)
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) writeExtractionError(w http.ResponseWriter, err error) {
	kind, ok := extractor.KindOf(err)
	if !ok {
		h.logger.Error("Unexpected error", "error", err)
		writeError(w, http.StatusInternalServerError, errorResponse{Error: "Internal", Message: err.Error()})
		return
	}
	writeError(w, http.StatusUnprocessableEntity, errorResponse{
		Error:   string(kind),
		Message: err.Error(),
		Raw:     extractor.RawOf(err),
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeError(w http.ResponseWriter, status int, body errorResponse) {
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
