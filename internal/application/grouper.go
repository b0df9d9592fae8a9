package application

import (
	"fmt"
	"strings"

	"github.com/ericfisherdev/reviewflow/internal/domain/model"
)

// threadBodySeparator visually divides comments that share a thread.
const threadBodySeparator = "\n\n---\n\n"

// GroupThreads folds a flat comment list into discussion threads keyed by
// (file, line). Thread order follows the first appearance of each key in the
// input, so the output is deterministic for a given input order. Every input
// comment lands in exactly one thread.
func GroupThreads(comments []model.ReviewComment) []model.CommentThread {
	if len(comments) == 0 {
		return nil
	}

	type group struct {
		file   string
		line   int
		bodies []string
	}

	byKey := make(map[string]*group)
	var keyOrder []string

	for _, c := range comments {
		key := fmt.Sprintf("%s:%d", c.FileName, c.LineNumber)
		g, ok := byKey[key]
		if !ok {
			g = &group{file: c.FileName, line: c.LineNumber}
			byKey[key] = g
			keyOrder = append(keyOrder, key)
		}
		g.bodies = append(g.bodies, formatCommentBody(c))
	}

	threads := make([]model.CommentThread, 0, len(keyOrder))
	for _, key := range keyOrder {
		g := byKey[key]
		threads = append(threads, model.CommentThread{
			FilePath:     g.file,
			Line:         g.line,
			Status:       model.ThreadStatusActive,
			Body:         strings.Join(g.bodies, threadBodySeparator),
			CommentCount: len(g.bodies),
		})
	}

	return threads
}

// formatCommentBody renders one comment's contribution to a thread body,
// appending a labeled suggestion block when the comment carries one.
func formatCommentBody(c model.ReviewComment) string {
	if c.Suggestion == "" {
		return c.Content
	}

	var b strings.Builder
	b.WriteString(c.Content)
	b.WriteString("\n\nSuggestion:\n```\n")
	b.WriteString(c.Suggestion)
	b.WriteString("\n```")
	return b.String()
}
