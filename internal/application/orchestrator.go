package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/reviewflow/internal/domain/model"
	"github.com/ericfisherdev/reviewflow/internal/domain/port/driven"
)

// WorkflowService sequences a full review workflow:
// validating → analyzing → previewing → posting → summarizing.
// Execute never panics past its own boundary; every outcome, including
// internal faults, surfaces as a structured WorkflowResult.
type WorkflowService struct {
	engine       driven.AnalysisEngine
	gate         driven.PreviewGate // Nil means every comment is auto-approved.
	poster       *ThreadPoster
	validator    driven.ConfigValidator
	availability driven.ModelAvailability
	runs         driven.RunStore // Nil disables run history.
	now          func() time.Time
}

// NewWorkflowService creates a WorkflowService with the given collaborators.
// gate and runs may be nil.
func NewWorkflowService(
	engine driven.AnalysisEngine,
	gate driven.PreviewGate,
	poster *ThreadPoster,
	validator driven.ConfigValidator,
	availability driven.ModelAvailability,
	runs driven.RunStore,
) *WorkflowService {
	return &WorkflowService{
		engine:       engine,
		gate:         gate,
		poster:       poster,
		validator:    validator,
		availability: availability,
		runs:         runs,
		now:          time.Now,
	}
}

// Execute runs the workflow over the given file diffs and returns the result.
// ctx carries the combined cancellation signal; a signaled context stops the
// next unit of work and surfaces as a cancelled (not failed) result.
func (s *WorkflowService) Execute(ctx context.Context, diffs []model.FileDiff, opts model.WorkflowOptions) (result *model.WorkflowResult) {
	start := s.now()
	phase := "validation"

	defer func() {
		if v := recover(); v != nil {
			slog.Error("workflow panic recovered", "phase", phase, "pr", opts.PullRequestID, "panic", v)
			result = &model.WorkflowResult{
				Success: false,
				Summary: fmt.Sprintf("Workflow failed during %s after %s: %v",
					phase, s.now().Sub(start).Round(100*time.Millisecond), v),
			}
		}
		if result != nil {
			s.recordRun(opts, *result, start)
		}
	}()

	if err := s.validate(ctx, opts); err != nil {
		return &model.WorkflowResult{
			Success: false,
			Summary: fmt.Sprintf("Workflow failed during validation: %v", err),
		}
	}

	if len(diffs) == 0 {
		return &model.WorkflowResult{
			Success: true,
			Summary: "No file changes to analyze",
		}
	}

	phase = "analysis"
	analysis, err := s.engine.Analyze(ctx, diffs, func(completed, total int) {
		if opts.Progress != nil && total > 0 {
			opts.Progress(completed * 100 / total)
		}
	})
	if err != nil {
		if isCancellation(ctx, err) {
			return &model.WorkflowResult{Success: false, Summary: "Review cancelled"}
		}
		return &model.WorkflowResult{
			Success: false,
			Summary: fmt.Sprintf("Workflow failed during analysis: %v", err),
		}
	}

	if len(analysis.Comments) == 0 {
		return noCommentsResult(analysis)
	}

	phase = "preview"
	approved, cancelled, err := s.previewComments(ctx, opts, analysis.Comments)
	if err != nil {
		if isCancellation(ctx, err) {
			return &model.WorkflowResult{Success: false, Summary: "Review cancelled"}
		}
		return &model.WorkflowResult{
			Success: false,
			Summary: fmt.Sprintf("Workflow failed during preview: %v", err),
		}
	}
	if cancelled {
		return &model.WorkflowResult{Success: false, Summary: "Review cancelled by user"}
	}
	if len(approved) == 0 {
		return noApprovalsResult(analysis)
	}

	phase = "posting"
	outcome := s.poster.PostComments(ctx, opts, approved)

	phase = "summary"
	elapsed := s.now().Sub(start)
	if outcome.Cancelled {
		r := buildCancelledResult(analysis, outcome, elapsed)
		return &r
	}

	r := BuildResult(analysis, len(approved), outcome, elapsed)
	return &r
}

// validate checks required options, model availability, and stored
// configuration. Any failure aborts the workflow before network activity
// against the review service.
func (s *WorkflowService) validate(ctx context.Context, opts model.WorkflowOptions) error {
	if opts.PullRequestID <= 0 {
		return errors.New("pull request id must be positive")
	}
	if opts.OrganizationURL == "" {
		return errors.New("organization URL is required")
	}
	if opts.Project == "" {
		return errors.New("project name is required")
	}

	if s.availability != nil {
		ok, err := s.availability.Check(ctx)
		if err != nil {
			return fmt.Errorf("checking model availability: %w", err)
		}
		if !ok {
			return errors.New("analysis model is not available")
		}
	}

	if s.validator != nil {
		if err := s.validator.Validate(ctx); err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}
	}

	return nil
}

// previewComments runs the preview gate, or auto-approves everything when the
// gate is skipped. The second return is true when the user cancelled.
func (s *WorkflowService) previewComments(ctx context.Context, opts model.WorkflowOptions, comments []model.ReviewComment) ([]model.ReviewComment, bool, error) {
	if opts.SkipPreview || s.gate == nil {
		approved := make([]model.ReviewComment, len(comments))
		copy(approved, comments)
		for i := range approved {
			approved[i].IsApproved = true
		}
		return approved, false, nil
	}

	decision, err := s.gate.Review(ctx, comments)
	if err != nil {
		return nil, false, err
	}
	if decision.Action == model.PreviewActionCancel {
		return nil, true, nil
	}

	var approved []model.ReviewComment
	for _, c := range decision.Comments {
		if c.IsApproved {
			approved = append(approved, c)
		}
	}
	return approved, false, nil
}

// noCommentsResult is the short-circuit success when analysis produced zero
// comments. Recovered per-file analysis errors are reported but not fatal.
func noCommentsResult(analysis *model.AnalysisResult) *model.WorkflowResult {
	var errs []string
	for _, ae := range analysis.Errors {
		errs = append(errs, fmt.Sprintf("analysis of %s: %s", ae.File, ae.Error))
	}

	summary := fmt.Sprintf("No review comments were generated (%d/%d files analyzed",
		analysis.Summary.AnalyzedFiles, analysis.Summary.TotalFiles)
	if analysis.Summary.SkippedFiles > 0 {
		summary += fmt.Sprintf(", %d skipped", analysis.Summary.SkippedFiles)
	}
	summary += ")"

	return &model.WorkflowResult{
		Success: true,
		Errors:  errs,
		Summary: summary,
	}
}

// noApprovalsResult is the short-circuit success when the preview gate left
// no comment approved.
func noApprovalsResult(analysis *model.AnalysisResult) *model.WorkflowResult {
	return &model.WorkflowResult{
		Success: true,
		Summary: fmt.Sprintf("No comments were approved for posting (%d generated)",
			analysis.Summary.TotalComments),
	}
}

// recordRun persists the run for history. Persistence failures are logged and
// never alter the result.
func (s *WorkflowService) recordRun(opts model.WorkflowOptions, result model.WorkflowResult, start time.Time) {
	if s.runs == nil {
		return
	}

	run := model.WorkflowRun{
		ID:              uuid.NewString(),
		PullRequestID:   opts.PullRequestID,
		OrganizationURL: opts.OrganizationURL,
		Project:         opts.Project,
		Result:          result,
		StartedAt:       start,
		FinishedAt:      s.now(),
	}

	// Use a fresh context: the workflow context may already be cancelled and
	// history should be written regardless.
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.runs.SaveRun(saveCtx, run); err != nil {
		slog.Error("saving workflow run failed", "run_id", run.ID, "pr", opts.PullRequestID, "error", err)
	}
}

// isCancellation reports whether err (or the workflow context) reflects the
// combined cancellation signal rather than a real failure.
func isCancellation(ctx context.Context, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return ctx.Err() != nil
}
