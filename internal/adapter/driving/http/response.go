package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/reviewflow/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// FileDiffRequest is one changed file in the start-review request body.
type FileDiffRequest struct {
	FilePath   string `json:"file_path"`
	ChangeType string `json:"change_type"`
	Diff       string `json:"diff"`
}

// StartReviewRequest is the JSON body for the start-review endpoint.
type StartReviewRequest struct {
	PullRequestID   int               `json:"pull_request_id"`
	OrganizationURL string            `json:"organization_url"`
	Project         string            `json:"project"`
	SkipPreview     bool              `json:"skip_preview"`
	Diffs           []FileDiffRequest `json:"diffs"`
}

// CancelResponse reports whether a workflow was actually cancelled.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// PostedThreadResponse is the JSON representation of one posted thread.
type PostedThreadResponse struct {
	ThreadID      int64  `json:"thread_id"`
	FileName      string `json:"file_name"`
	LineNumber    int    `json:"line_number"`
	RemoteURL     string `json:"remote_url"`
	CommentsCount int    `json:"comments_count"`
}

// WorkflowResultResponse is the JSON representation of a workflow result.
type WorkflowResultResponse struct {
	Success        bool                   `json:"success"`
	PostedComments int                    `json:"posted_comments"`
	Errors         []string               `json:"errors"`
	Summary        string                 `json:"summary"`
	PostedThreads  []PostedThreadResponse `json:"posted_threads"`
}

// RunResponse is the JSON representation of a persisted workflow run.
// SummaryHTML is populated only on the run detail endpoint.
type RunResponse struct {
	ID              string                 `json:"id"`
	PullRequestID   int                    `json:"pull_request_id"`
	OrganizationURL string                 `json:"organization_url"`
	Project         string                 `json:"project"`
	Result          WorkflowResultResponse `json:"result"`
	SummaryHTML     string                 `json:"summary_html,omitempty"`
	StartedAt       string                 `json:"started_at"`
	FinishedAt      string                 `json:"finished_at"`
	ElapsedSeconds  float64                `json:"elapsed_seconds"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	ActivePR int    `json:"active_pr"`
}

// toWorkflowResultResponse converts a domain WorkflowResult to its JSON
// representation with empty slices instead of nulls.
func toWorkflowResultResponse(result model.WorkflowResult) WorkflowResultResponse {
	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}

	threads := make([]PostedThreadResponse, 0, len(result.PostedThreads))
	for _, t := range result.PostedThreads {
		threads = append(threads, PostedThreadResponse{
			ThreadID:      t.ThreadID,
			FileName:      t.FileName,
			LineNumber:    t.LineNumber,
			RemoteURL:     t.RemoteURL,
			CommentsCount: t.CommentsCount,
		})
	}

	return WorkflowResultResponse{
		Success:        result.Success,
		PostedComments: result.PostedComments,
		Errors:         errs,
		Summary:        result.Summary,
		PostedThreads:  threads,
	}
}

// toRunResponse converts a persisted run to its JSON representation,
// optionally rendering the summary as sanitized HTML.
func toRunResponse(run model.WorkflowRun, withHTML bool) RunResponse {
	resp := RunResponse{
		ID:              run.ID,
		PullRequestID:   run.PullRequestID,
		OrganizationURL: run.OrganizationURL,
		Project:         run.Project,
		Result:          toWorkflowResultResponse(run.Result),
		StartedAt:       run.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:      run.FinishedAt.UTC().Format(time.RFC3339),
		ElapsedSeconds:  run.Elapsed().Seconds(),
	}

	if withHTML {
		resp.SummaryHTML = RenderMarkdown(run.Result.Summary)
	}

	return resp
}
