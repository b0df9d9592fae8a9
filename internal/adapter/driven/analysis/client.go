// Package analysis implements the AnalysisEngine and ModelAvailability ports
// over the engine's HTTP JSON API.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/reviewflow/internal/domain/model"
	"github.com/ericfisherdev/reviewflow/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.AnalysisEngine    = (*Client)(nil)
	_ driven.ModelAvailability = (*Client)(nil)
)

// Client talks to the external analysis engine. Files are analyzed one at a
// time so per-file failures can be recovered and progress reported.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an analysis engine client for the given base URL.
// The per-file request timeout is a safety net alongside context cancellation.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// analyzeRequest is the JSON body sent to the engine's /analyze endpoint.
type analyzeRequest struct {
	FilePath   string `json:"file_path"`
	ChangeType string `json:"change_type"`
	Diff       string `json:"diff"`
}

// analyzeResponse is the engine's per-file answer.
type analyzeResponse struct {
	Skipped  bool `json:"skipped"`
	Comments []struct {
		LineNumber int    `json:"line_number"`
		Content    string `json:"content"`
		Suggestion string `json:"suggestion"`
		Severity   string `json:"severity"`
	} `json:"comments"`
}

// Analyze submits each diff to the engine in turn. A failed file is recorded
// as a recovered AnalysisError and never aborts the pass; only context
// cancellation stops it early. progress is invoked after every file.
func (c *Client) Analyze(ctx context.Context, diffs []model.FileDiff, progress func(completed, total int)) (*model.AnalysisResult, error) {
	result := &model.AnalysisResult{
		Summary: model.AnalysisSummary{
			TotalFiles:         len(diffs),
			CommentsBySeverity: make(map[model.Severity]int),
		},
	}

	for i, diff := range diffs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := c.analyzeFile(ctx, diff)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Error("file analysis failed", "file", diff.FilePath, "error", err)
			result.Errors = append(result.Errors, model.AnalysisError{
				File:  diff.FilePath,
				Error: err.Error(),
			})
		case resp.Skipped:
			result.Summary.SkippedFiles++
		default:
			result.Summary.AnalyzedFiles++
			for _, rc := range resp.Comments {
				severity := model.Severity(rc.Severity)
				switch severity {
				case model.SeverityInfo, model.SeverityWarning, model.SeverityError:
				default:
					severity = model.SeverityInfo
				}
				result.Comments = append(result.Comments, model.ReviewComment{
					FileName:   diff.FilePath,
					LineNumber: rc.LineNumber,
					Content:    rc.Content,
					Suggestion: rc.Suggestion,
					Severity:   severity,
				})
				result.Summary.CommentsBySeverity[severity]++
			}
		}

		if progress != nil {
			progress(i+1, len(diffs))
		}
	}

	result.Summary.TotalComments = len(result.Comments)

	slog.Debug("analysis pass complete",
		"total", result.Summary.TotalFiles,
		"analyzed", result.Summary.AnalyzedFiles,
		"skipped", result.Summary.SkippedFiles,
		"comments", result.Summary.TotalComments,
		"errors", len(result.Errors),
	)

	return result, nil
}

// analyzeFile posts one diff to the engine and decodes its comments.
func (c *Client) analyzeFile(ctx context.Context, diff model.FileDiff) (*analyzeResponse, error) {
	body, err := json.Marshal(analyzeRequest{
		FilePath:   diff.FilePath,
		ChangeType: diff.ChangeType,
		Diff:       diff.Diff,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling analysis engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analysis engine returned %d: %s", resp.StatusCode, snippet)
	}

	var decoded analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding analyze response: %w", err)
	}

	return &decoded, nil
}

// Check probes the engine's health endpoint. A 200 means the model is
// reachable and loaded.
func (c *Client) Check(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return false, fmt.Errorf("building health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("probing analysis engine: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}
