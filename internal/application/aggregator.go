package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/reviewflow/internal/domain/model"
)

// BuildResult composes the final workflow result from the analysis output,
// the approved-comment count, and the posting outcome. It is a pure function:
// no I/O, no failure modes beyond malformed input.
//
// Success policy: a run that posted at least one thread, or that failed
// nothing, is a success even when some threads exhausted their retries.
// Success is false only when every attempted operation failed.
func BuildResult(analysis *model.AnalysisResult, approvedCount int, outcome *PostingOutcome, elapsed time.Duration) model.WorkflowResult {
	errs := collectErrors(analysis, outcome)

	success := outcome.PostedCount > 0 || len(errs) == 0

	var b strings.Builder
	fmt.Fprintf(&b, "Review finished in %s\n", elapsed.Round(100*time.Millisecond))
	fmt.Fprintf(&b, "Files analyzed: %d/%d", analysis.Summary.AnalyzedFiles, analysis.Summary.TotalFiles)
	if analysis.Summary.SkippedFiles > 0 {
		fmt.Fprintf(&b, " (%d skipped)", analysis.Summary.SkippedFiles)
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Comments: %d generated, %d approved, %d posted",
		analysis.Summary.TotalComments, approvedCount, outcome.PostedCount)

	if len(errs) > 0 {
		fmt.Fprintf(&b, "\nErrors (%d):", len(errs))
		for _, e := range errs {
			fmt.Fprintf(&b, "\n  - %s", e)
		}
	}

	return model.WorkflowResult{
		Success:        success,
		PostedComments: outcome.PostedCount,
		Errors:         errs,
		Summary:        b.String(),
		PostedThreads:  outcome.PostedThreads,
	}
}

// buildCancelledResult reports a run stopped by the combined cancellation
// signal, preserving whatever partial progress was made. Cancellation is kept
// distinguishable from network failure in the summary.
func buildCancelledResult(analysis *model.AnalysisResult, outcome *PostingOutcome, elapsed time.Duration) model.WorkflowResult {
	errs := collectErrors(analysis, outcome)

	summary := fmt.Sprintf("Review cancelled after %s", elapsed.Round(100*time.Millisecond))
	if outcome.PostedCount > 0 {
		summary += fmt.Sprintf("; %d thread(s) were posted before cancellation", outcome.PostedCount)
	}

	return model.WorkflowResult{
		Success:        false,
		PostedComments: outcome.PostedCount,
		Errors:         errs,
		Summary:        summary,
		PostedThreads:  outcome.PostedThreads,
	}
}

// collectErrors merges recovered analysis errors with posting errors,
// analysis first, preserving order within each phase.
func collectErrors(analysis *model.AnalysisResult, outcome *PostingOutcome) []string {
	var errs []string
	if analysis != nil {
		for _, ae := range analysis.Errors {
			errs = append(errs, fmt.Sprintf("analysis of %s: %s", ae.File, ae.Error))
		}
	}
	errs = append(errs, outcome.Errors...)
	return errs
}
