// Package httphandler is the HTTP driving adapter that serves the REST API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/reviewflow/internal/application"
	"github.com/ericfisherdev/reviewflow/internal/domain/model"
	"github.com/ericfisherdev/reviewflow/internal/domain/port/driven"
)

// Handler exposes the review workflow to the host over HTTP.
type Handler struct {
	workflow *application.WorkflowService
	session  *application.SessionController
	runs     driven.RunStore
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. runs may be
// nil, disabling the history endpoints' data.
func NewHandler(
	workflow *application.WorkflowService,
	session *application.SessionController,
	runs driven.RunStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		workflow: workflow,
		session:  session,
		runs:     runs,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/reviews", h.StartReview)
	mux.HandleFunc("POST /api/v1/reviews/cancel", h.CancelReview)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// StartReview runs a full review workflow for the posted diffs and returns
// its result. A workflow already in flight for this session is cancelled and
// replaced.
func (h *Handler) StartReview(w http.ResponseWriter, r *http.Request) {
	var req StartReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := model.WorkflowOptions{
		PullRequestID:   req.PullRequestID,
		OrganizationURL: req.OrganizationURL,
		Project:         req.Project,
		SkipPreview:     req.SkipPreview,
	}

	diffs := make([]model.FileDiff, 0, len(req.Diffs))
	for _, d := range req.Diffs {
		diffs = append(diffs, model.FileDiff{
			FilePath:   d.FilePath,
			ChangeType: d.ChangeType,
			Diff:       d.Diff,
		})
	}

	// The workflow context merges the session's cancellation signal with the
	// request's own, so either a /cancel call or a dropped connection stops
	// the next unit of work.
	sessionCtx, id, done := h.session.Begin(opts.PullRequestID, r.Context())
	defer done()

	h.logger.Info("review workflow started",
		"workflow_id", id,
		"pr", opts.PullRequestID,
		"project", opts.Project,
		"files", len(diffs),
	)

	result := h.workflow.Execute(sessionCtx, diffs, opts)

	writeJSON(w, http.StatusOK, toWorkflowResultResponse(*result))
}

// CancelReview signals the in-flight workflow, if any.
func (h *Handler) CancelReview(w http.ResponseWriter, r *http.Request) {
	cancelled := h.session.Cancel()
	writeJSON(w, http.StatusOK, CancelResponse{Cancelled: cancelled})
}

// ListRuns returns recent workflow runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSON(w, http.StatusOK, []RunResponse{})
		return
	}

	runs, err := h.runs.ListRuns(r.Context(), 50)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunResponse(run, false))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRun returns a single workflow run with its posted threads and the
// summary rendered as sanitized HTML.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusNotFound, "run history disabled")
		return
	}

	run, err := h.runs.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, driven.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("failed to get run", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(*run, true))
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Time:     time.Now().UTC().Format(time.RFC3339),
		ActivePR: h.session.Active(),
	})
}
