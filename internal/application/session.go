package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// SessionController enforces the single-active-workflow invariant: at most
// one review workflow is in flight per controlling session. Beginning a new
// workflow cancels the predecessor's signal (without waiting for it to
// finish) and replaces the tracked state.
type SessionController struct {
	mu      sync.Mutex
	current *activeReview
}

// activeReview is the tracked state of the in-flight workflow.
type activeReview struct {
	id     string
	prID   int
	cancel context.CancelFunc
}

// NewSessionController creates an empty SessionController.
func NewSessionController() *SessionController {
	return &SessionController{}
}

// Begin registers a new workflow for the given pull request and returns its
// context, a session identifier, and a done callback the caller must invoke
// when the workflow finishes. All given parent contexts feed the workflow's
// cancellation signal, so a dropped connection and an explicit Cancel are
// equivalent. Any prior in-flight workflow is cancelled immediately.
func (s *SessionController) Begin(prID int, parents ...context.Context) (context.Context, string, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		slog.Info("cancelling previous review workflow",
			"previous_id", s.current.id,
			"previous_pr", s.current.prID,
		)
		s.current.cancel()
	}

	merged, release := MergeCancel(parents...)
	ctx, cancel := context.WithCancel(merged)
	id := uuid.NewString()
	stop := func() {
		cancel()
		release()
	}
	s.current = &activeReview{id: id, prID: prID, cancel: stop}

	done := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.current != nil && s.current.id == id {
			s.current.cancel()
			s.current = nil
		}
	}

	return ctx, id, done
}

// Cancel signals the in-flight workflow, if any. It returns true when a
// workflow was actually cancelled.
func (s *SessionController) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return false
	}

	slog.Info("review workflow cancelled", "id", s.current.id, "pr", s.current.prID)
	s.current.cancel()
	s.current = nil
	return true
}

// Active returns the pull request ID of the in-flight workflow, or 0.
func (s *SessionController) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return 0
	}
	return s.current.prID
}
