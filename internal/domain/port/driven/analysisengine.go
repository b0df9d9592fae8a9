package driven

import (
	"context"

	"github.com/ericfisherdev/reviewflow/internal/domain/model"
)

// AnalysisEngine defines the driven port for the external AI analysis engine.
// Per-file failures are recovered into the result's Errors list; only
// engine-level faults (including context cancellation) are returned as errors.
type AnalysisEngine interface {
	// Analyze produces draft review comments for the given diffs. progress,
	// when non-nil, is invoked after each file with (completed, total).
	Analyze(ctx context.Context, diffs []model.FileDiff, progress func(completed, total int)) (*model.AnalysisResult, error)
}

// PreviewGate defines the driven port for the external preview/approval step.
// It returns the user's action and the comment list with IsApproved set.
type PreviewGate interface {
	Review(ctx context.Context, comments []model.ReviewComment) (*model.PreviewDecision, error)
}
