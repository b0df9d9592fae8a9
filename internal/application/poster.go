package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ericfisherdev/reviewflow/internal/domain/model"
	"github.com/ericfisherdev/reviewflow/internal/domain/port/driven"
)

// PosterConfig tunes batching and retry behavior for thread posting.
type PosterConfig struct {
	BatchSize  int           // Threads posted between inter-batch pauses.
	MaxRetries int           // Network attempts per thread, including the first.
	BaseDelay  time.Duration // Delay before the first retry; doubles per attempt.
	BatchDelay time.Duration // Pause between consecutive batches.
}

// withDefaults fills zero fields with production defaults.
func (c PosterConfig) withDefaults() PosterConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = time.Second
	}
	return c
}

// PostingOutcome aggregates the results of posting all threads for one run.
type PostingOutcome struct {
	PostedCount   int
	Errors        []string
	PostedThreads []model.PostedThreadInfo
	Cancelled     bool
}

// ThreadPoster groups approved comments into threads and posts them to the
// remote review service in sequential fixed-size batches, retrying transient
// failures per thread with exponential backoff.
type ThreadPoster struct {
	client driven.RemoteReviewClient
	cfg    PosterConfig
}

// NewThreadPoster creates a ThreadPoster over the given remote client.
func NewThreadPoster(client driven.RemoteReviewClient, cfg PosterConfig) *ThreadPoster {
	return &ThreadPoster{client: client, cfg: cfg.withDefaults()}
}

// PostComments groups comments into threads and posts them batch by batch.
//
// Batches run strictly in sequence and threads within a batch are posted
// sequentially in grouping order. Cancellation is checked before every
// thread; a signaled context stops the next unit of work but an exhausted
// retry on one thread never aborts the rest. The target repository is
// resolved once per call; if resolution fails, every thread in the affected
// batch is recorded as failed and the next batch retries the lookup.
func (p *ThreadPoster) PostComments(ctx context.Context, opts model.WorkflowOptions, comments []model.ReviewComment) *PostingOutcome {
	outcome := &PostingOutcome{}

	threads := GroupThreads(comments)
	if len(threads) == 0 {
		return outcome
	}

	batches := partitionThreads(threads, p.cfg.BatchSize)
	var repoID string // Resolved lazily, cached for the rest of the call.

posting:
	for i, batch := range batches {
		if ctx.Err() != nil {
			outcome.Cancelled = true
			break
		}

		if repoID == "" {
			id, err := p.resolveRepository(ctx, opts)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					outcome.Cancelled = true
					break
				}
				for _, t := range batch {
					outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", t.FilePath, err))
				}
				slog.Error("repository resolution failed",
					"project", opts.Project,
					"batch", i+1,
					"threads_failed", len(batch),
					"error", err,
				)
				if !p.pauseBetweenBatches(ctx, i, len(batches)) {
					outcome.Cancelled = true
					break
				}
				continue
			}
			repoID = id
		}

		for _, t := range batch {
			if ctx.Err() != nil {
				outcome.Cancelled = true
				break posting
			}

			info, err := p.postWithRetry(ctx, opts, repoID, t)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					outcome.Cancelled = true
					break posting
				}
				outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s:%d: %v", t.FilePath, t.Line, err))
				slog.Error("thread post failed",
					"file", t.FilePath,
					"line", t.Line,
					"pr", opts.PullRequestID,
					"error", err,
				)
				continue
			}

			outcome.PostedCount++
			outcome.PostedThreads = append(outcome.PostedThreads, *info)
			slog.Debug("thread posted",
				"file", t.FilePath,
				"line", t.Line,
				"thread_id", info.ThreadID,
				"comments", info.CommentsCount,
			)
		}

		if !p.pauseBetweenBatches(ctx, i, len(batches)) {
			outcome.Cancelled = true
			break
		}
	}

	slog.Info("posting complete",
		"pr", opts.PullRequestID,
		"threads", len(threads),
		"posted", outcome.PostedCount,
		"failed", len(outcome.Errors),
		"cancelled", outcome.Cancelled,
	)

	return outcome
}

// postWithRetry posts a single thread, retrying transient failures with
// exponential backoff and randomized jitter. Auth, forbidden, and not-found
// failures short-circuit immediately. At most cfg.MaxRetries network attempts
// are made; backoff waits are interrupted by context cancellation.
func (p *ThreadPoster) postWithRetry(ctx context.Context, opts model.WorkflowOptions, repoID string, thread model.CommentThread) (*model.PostedThreadInfo, error) {
	bo := backoff.NewExponentialBackOff()
	// Jitter is additive above the exponential floor: centering the interval
	// at 1.5x the base with a 1/3 randomization factor puts the nth wait in
	// [BaseDelay*2^n, 2*BaseDelay*2^n), never below the doubling curve.
	bo.InitialInterval = p.cfg.BaseDelay * 3 / 2
	bo.RandomizationFactor = 1.0 / 3.0
	bo.Multiplier = 2
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // Attempt count is the only bound.

	var posted *model.PostedThreadInfo
	attempt := 0

	operation := func() error {
		attempt++
		info, err := p.client.CreateThread(ctx, opts.OrganizationURL, repoID, opts.PullRequestID, thread)
		if err != nil {
			if driven.IsNonRetryable(err) {
				return backoff.Permanent(err)
			}
			slog.Warn("transient post failure",
				"file", thread.FilePath,
				"line", thread.Line,
				"attempt", attempt,
				"error", err,
			)
			return err
		}
		posted = info
		return nil
	}

	// MaxRetries counts total attempts; WithMaxRetries counts retries after
	// the first attempt.
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.cfg.MaxRetries-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	return posted, nil
}

// resolveRepository finds the repository matching opts.Project within the
// organization.
func (p *ThreadPoster) resolveRepository(ctx context.Context, opts model.WorkflowOptions) (string, error) {
	repos, err := p.client.ListRepositories(ctx, opts.OrganizationURL)
	if err != nil {
		return "", fmt.Errorf("listing repositories: %w", err)
	}

	for _, r := range repos {
		if strings.EqualFold(r.Name, opts.Project) {
			return r.ID, nil
		}
	}

	return "", fmt.Errorf("%w: %q", driven.ErrRepositoryNotFound, opts.Project)
}

// pauseBetweenBatches waits the inter-batch delay after a non-final batch.
// It returns false if the context was cancelled during the wait.
func (p *ThreadPoster) pauseBetweenBatches(ctx context.Context, index, total int) bool {
	if index >= total-1 {
		return true
	}

	timer := time.NewTimer(p.cfg.BatchDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// partitionThreads slices threads into consecutive batches of size.
func partitionThreads(threads []model.CommentThread, size int) [][]model.CommentThread {
	var batches [][]model.CommentThread
	for start := 0; start < len(threads); start += size {
		end := start + size
		if end > len(threads) {
			end = len(threads)
		}
		batches = append(batches, threads[start:end])
	}
	return batches
}
