// Package application contains use-case orchestration services.
package application

import "context"

// MergeCancel combines independent cancellation sources into a single
// context. The returned context is done the instant any parent is done; if a
// parent is already done at merge time, the merged context is done before
// MergeCancel returns. The returned CancelFunc releases the merge and must be
// called when the merged context is no longer needed.
//
// With zero parents the merged context is never triggered externally. With
// one parent it is returned unchanged alongside a no-op CancelFunc.
func MergeCancel(parents ...context.Context) (context.Context, context.CancelFunc) {
	switch len(parents) {
	case 0:
		return context.WithCancel(context.Background())
	case 1:
		return parents[0], func() {}
	}

	ctx, cancel := context.WithCancel(parents[0])

	// Close the already-triggered window before wiring watchers.
	for _, p := range parents[1:] {
		if p.Err() != nil {
			cancel()
			return ctx, cancel
		}
	}

	for _, p := range parents[1:] {
		go func(p context.Context) {
			select {
			case <-p.Done():
				cancel()
			case <-ctx.Done():
			}
		}(p)
	}

	return ctx, cancel
}
