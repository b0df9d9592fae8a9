package model

// CommentThread is a single anchored conversation to be created at a specific
// file and line on the remote review service. Threads are built by the
// grouper from one or more review comments, carry exactly one combined body,
// and are never mutated after creation.
type CommentThread struct {
	FilePath string
	Line     int
	Status   ThreadStatus
	Body     string
	// CommentCount is how many review comments were folded into Body.
	CommentCount int
}

// PostedThreadInfo describes a thread that was successfully created on the
// remote service.
type PostedThreadInfo struct {
	ThreadID      int64
	FileName      string
	LineNumber    int
	RemoteURL     string
	CommentsCount int
}

// Repository is a remote repository as returned by the review service.
type Repository struct {
	ID   string
	Name string
	URL  string
}
