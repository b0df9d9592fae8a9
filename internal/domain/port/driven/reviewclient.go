// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ericfisherdev/reviewflow/internal/domain/model"
)

// ErrRepositoryNotFound indicates the target repository could not be resolved
// within the configured organization.
var ErrRepositoryNotFound = errors.New("repository not found")

// PostError is a failure returned by the remote review service when creating
// a thread. StatusCode carries the remote HTTP status when known (0 for
// transport-level failures, which are treated as retryable).
type PostError struct {
	StatusCode int
	Err        error
}

func (e *PostError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("posting thread: remote returned %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("posting thread: %v", e.Err)
}

func (e *PostError) Unwrap() error { return e.Err }

// IsNonRetryable reports whether err carries an authentication, authorization,
// or not-found signature. Such failures will never succeed on retry and must
// short-circuit the retry loop.
func IsNonRetryable(err error) bool {
	var pe *PostError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// RemoteReviewClient defines the driven port for the remote pull-request
// review service.
type RemoteReviewClient interface {
	// ListRepositories returns the repositories visible in the organization.
	ListRepositories(ctx context.Context, organization string) ([]model.Repository, error)

	// CreateThread creates a new discussion thread on the pull request,
	// anchored at the thread's file and line. Failures are reported as
	// *PostError so callers can classify them for retry.
	CreateThread(ctx context.Context, organization, repoID string, prNumber int, thread model.CommentThread) (*model.PostedThreadInfo, error)
}
