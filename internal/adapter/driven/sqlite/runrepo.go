package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ericfisherdev/reviewflow/internal/domain/model"
	"github.com/ericfisherdev/reviewflow/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// RunRepo is the SQLite implementation of the RunStore port interface.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// SaveRun stores a completed workflow run and its posted threads in a single
// transaction.
func (r *RunRepo) SaveRun(ctx context.Context, run model.WorkflowRun) error {
	errsJSON, err := json.Marshal(run.Result.Errors)
	if err != nil {
		return fmt.Errorf("encode run errors: %w", err)
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertRun = `
		INSERT INTO workflow_runs (
			id, pull_request_id, organization_url, project,
			success, posted_comments, summary, errors, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	success := 0
	if run.Result.Success {
		success = 1
	}

	_, err = tx.ExecContext(ctx, insertRun,
		run.ID, run.PullRequestID, run.OrganizationURL, run.Project,
		success, run.Result.PostedComments, run.Result.Summary, string(errsJSON),
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	const insertThread = `
		INSERT INTO posted_threads (run_id, thread_id, file_name, line_number, remote_url, comments_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	for _, t := range run.Result.PostedThreads {
		_, err = tx.ExecContext(ctx, insertThread,
			run.ID, t.ThreadID, t.FileName, t.LineNumber, t.RemoteURL, t.CommentsCount,
		)
		if err != nil {
			return fmt.Errorf("insert posted thread %d for run %s: %w", t.ThreadID, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save run: %w", err)
	}

	return nil
}

// GetRun returns a single run with its posted threads, or ErrRunNotFound.
func (r *RunRepo) GetRun(ctx context.Context, id string) (*model.WorkflowRun, error) {
	const query = `
		SELECT id, pull_request_id, organization_url, project,
		       success, posted_comments, summary, errors, started_at, finished_at
		FROM workflow_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.Reader.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, driven.ErrRunNotFound
		}
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	threads, err := r.threadsForRun(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Result.PostedThreads = threads

	return run, nil
}

// ListRuns returns the most recent runs, newest first. Posted threads are
// loaded per run.
func (r *RunRepo) ListRuns(ctx context.Context, limit int) ([]model.WorkflowRun, error) {
	const query = `
		SELECT id, pull_request_id, organization_url, project,
		       success, posted_comments, summary, errors, started_at, finished_at
		FROM workflow_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.WorkflowRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		threads, err := r.threadsForRun(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Result.PostedThreads = threads
	}

	return runs, nil
}

// threadsForRun loads the posted threads of one run, in insertion order.
func (r *RunRepo) threadsForRun(ctx context.Context, runID string) ([]model.PostedThreadInfo, error) {
	const query = `
		SELECT thread_id, file_name, line_number, remote_url, comments_count
		FROM posted_threads
		WHERE run_id = ?
		ORDER BY id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list posted threads for run %s: %w", runID, err)
	}
	defer rows.Close()

	var threads []model.PostedThreadInfo
	for rows.Next() {
		var t model.PostedThreadInfo
		if err := rows.Scan(&t.ThreadID, &t.FileName, &t.LineNumber, &t.RemoteURL, &t.CommentsCount); err != nil {
			return nil, fmt.Errorf("scan posted thread: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posted threads: %w", err)
	}

	return threads, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one workflow_runs row into a WorkflowRun.
func scanRun(row rowScanner) (*model.WorkflowRun, error) {
	var (
		run      model.WorkflowRun
		success  int
		errsJSON string
	)

	err := row.Scan(
		&run.ID, &run.PullRequestID, &run.OrganizationURL, &run.Project,
		&success, &run.Result.PostedComments, &run.Result.Summary, &errsJSON,
		&run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Result.Success = success == 1

	if err := json.Unmarshal([]byte(errsJSON), &run.Result.Errors); err != nil {
		return nil, fmt.Errorf("decode run errors: %w", err)
	}

	return &run, nil
}
