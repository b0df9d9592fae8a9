package model

// AnalysisSummary reports what the analysis engine covered.
type AnalysisSummary struct {
	AnalyzedFiles      int
	TotalFiles         int
	SkippedFiles       int
	TotalComments      int
	CommentsBySeverity map[Severity]int
}

// AnalysisError is a recovered per-file failure inside the analysis engine.
// It is collected into the workflow result rather than aborting the run.
type AnalysisError struct {
	File  string
	Error string
}

// AnalysisResult is the full output of one analysis pass.
type AnalysisResult struct {
	Comments []ReviewComment
	Summary  AnalysisSummary
	Errors   []AnalysisError
}

// PreviewDecision is the outcome of the preview gate: the user's chosen
// action plus the comment list with IsApproved flags set.
type PreviewDecision struct {
	Action        PreviewAction
	Comments      []ReviewComment
	ApprovedCount int
}
