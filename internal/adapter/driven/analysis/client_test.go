package analysis_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewflow/internal/adapter/driven/analysis"
	"github.com/ericfisherdev/reviewflow/internal/domain/model"
)

func testDiffs() []model.FileDiff {
	return []model.FileDiff{
		{FilePath: "a.go", ChangeType: "edit", Diff: "@@ -1 +1 @@"},
		{FilePath: "b.go", ChangeType: "edit", Diff: "@@ -2 +2 @@"},
		{FilePath: "vendor/big.go", ChangeType: "add", Diff: "@@ +1 @@"},
	}
}

func TestAnalyze(t *testing.T) {
	var requests []string
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FilePath string `json:"file_path"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req.FilePath)

		switch req.FilePath {
		case "a.go":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"comments": []map[string]any{
					{"line_number": 3, "content": "Check the error", "severity": "warning"},
					{"line_number": 9, "content": "Name this constant", "severity": "nitpick"},
				},
			})
		case "vendor/big.go":
			_ = json.NewEncoder(w).Encode(map[string]any{"skipped": true})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"comments": []map[string]any{}})
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := analysis.NewClient(server.URL)

	var progress [][2]int
	result, err := client.Analyze(context.Background(), testDiffs(), func(completed, total int) {
		progress = append(progress, [2]int{completed, total})
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.go", "b.go", "vendor/big.go"}, requests)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)

	assert.Equal(t, 3, result.Summary.TotalFiles)
	assert.Equal(t, 2, result.Summary.AnalyzedFiles)
	assert.Equal(t, 1, result.Summary.SkippedFiles)
	assert.Equal(t, 2, result.Summary.TotalComments)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Comments, 2)
	assert.Equal(t, "a.go", result.Comments[0].FileName)
	assert.Equal(t, model.SeverityWarning, result.Comments[0].Severity)
	// Unknown severities fall back to info.
	assert.Equal(t, model.SeverityInfo, result.Comments[1].Severity)
	assert.Equal(t, 1, result.Summary.CommentsBySeverity[model.SeverityWarning])
	assert.Equal(t, 1, result.Summary.CommentsBySeverity[model.SeverityInfo])
}

func TestAnalyze_PerFileFailureIsRecovered(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FilePath string `json:"file_path"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.FilePath == "b.go" {
			http.Error(w, "model overloaded", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"comments": []map[string]any{{"line_number": 1, "content": "ok", "severity": "info"}},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := analysis.NewClient(server.URL)

	result, err := client.Analyze(context.Background(), testDiffs()[:2], nil)
	require.NoError(t, err)

	// The failing file is recorded, the other still analyzed.
	assert.Equal(t, 1, result.Summary.AnalyzedFiles)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "b.go", result.Errors[0].File)
	assert.Contains(t, result.Errors[0].Error, "500")
}

func TestAnalyze_CancelledContext(t *testing.T) {
	client := analysis.NewClient("http://127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Analyze(ctx, testDiffs(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheck(t *testing.T) {
	healthy := true
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := analysis.NewClient(server.URL)

	ok, err := client.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	healthy = false
	ok, err = client.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
