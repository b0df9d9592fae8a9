package model

import "time"

// WorkflowOptions are the per-run inputs required to post review threads.
type WorkflowOptions struct {
	PullRequestID   int
	OrganizationURL string
	Project         string // Repository name within the organization.
	SkipPreview     bool   // Auto-approve all comments instead of gating.

	// Progress, when non-nil, receives analysis progress as a percentage.
	Progress func(percent int)
}

// WorkflowResult is the sole externally observable output of a workflow run.
// It is a value type, never mutated after construction.
type WorkflowResult struct {
	Success        bool
	PostedComments int
	Errors         []string
	Summary        string
	PostedThreads  []PostedThreadInfo
}

// WorkflowRun is a persisted record of one workflow execution.
type WorkflowRun struct {
	ID              string // UUID assigned at start.
	PullRequestID   int
	OrganizationURL string
	Project         string
	Result          WorkflowResult
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Elapsed returns the wall-clock duration of the run.
func (r WorkflowRun) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
