package model

// Severity classifies how serious a review comment is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ThreadStatus is the lifecycle state of a discussion thread on the remote
// review service. Newly created threads are always active.
type ThreadStatus string

const (
	ThreadStatusActive ThreadStatus = "active"
)

// PreviewAction is the decision returned by the preview gate.
type PreviewAction string

const (
	PreviewActionPost   PreviewAction = "post"
	PreviewActionCancel PreviewAction = "cancel"
)
