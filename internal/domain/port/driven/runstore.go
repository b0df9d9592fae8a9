package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/reviewflow/internal/domain/model"
)

// ErrRunNotFound indicates the requested workflow run does not exist.
var ErrRunNotFound = errors.New("workflow run not found")

// RunStore defines the driven port for workflow run history persistence.
type RunStore interface {
	// SaveRun stores a completed run and its posted threads atomically.
	SaveRun(ctx context.Context, run model.WorkflowRun) error

	// GetRun returns a single run by ID, or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*model.WorkflowRun, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]model.WorkflowRun, error)
}
