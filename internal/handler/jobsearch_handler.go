package handler

import (
	"net/http"

	"jobshop/internal/model"
	"jobshop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// JobSearchHandler handles job search requests and the user dashboard.
type JobSearchHandler struct {
	searches  service.JobSearchService
	dashboard service.DashboardService
	logger    zerolog.Logger
}

// NewJobSearchHandler creates a new job search handler.
func NewJobSearchHandler(searches service.JobSearchService, dashboard service.DashboardService, logger zerolog.Logger) *JobSearchHandler {
	return &JobSearchHandler{
		searches:  searches,
		dashboard: dashboard,
		logger:    logger.With().Str("handler", "job_search").Logger(),
	}
}

// Request handles POST /job-search requests.
func (h *JobSearchHandler) Request(w http.ResponseWriter, r *http.Request) {
	rc, ok := requestContext(w, r, h.logger)
	if !ok {
		return
	}

	var req model.JobSearchRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	search, err := h.searches.Request(r.Context(), rc, &req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"jobSearch": search})
}

// GetByID handles GET /job-search/{id} requests.
func (h *JobSearchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	rc, ok := requestContext(w, r, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, model.ErrJobSearchNotFound, h.logger)
		return
	}

	search, err := h.searches.GetByID(r.Context(), rc, id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"jobSearch": search})
}

// Dashboard handles GET /dashboard requests.
func (h *JobSearchHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	rc, ok := requestContext(w, r, h.logger)
	if !ok {
		return
	}

	days, err := intQuery(r, "days", 0)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	dashboard, err := h.dashboard.Get(r.Context(), rc, days)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"dashboard": dashboard})
}
