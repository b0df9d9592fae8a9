package model

// ReviewComment is one AI-drafted observation about a code change, prior to
// grouping into threads. Comments are produced by the analysis engine; the
// preview gate may set IsApproved, after which the value is immutable.
type ReviewComment struct {
	FileName        string
	LineNumber      int // 1-based line in the new version of the file.
	Content         string
	Suggestion      string // Optional proposed replacement code.
	Severity        Severity
	IsApproved      bool
	OriginalContent string // Content before any preview-gate edit; empty if unedited.
}

// FileDiff is one changed file handed to the analysis engine.
type FileDiff struct {
	FilePath   string
	ChangeType string // "add", "edit", or "delete".
	Diff       string // Unified diff content.
}
