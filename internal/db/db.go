// Package db provides PostgreSQL persistence for compilation runs:
// extracted content records, accepted questions, and run summaries.
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/exam-compiler/internal/types"
)

// Run status values for compilation_runs.status
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusAborted   = "aborted"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// CreateRun creates a new compilation run record and returns its ID
func (db *DB) CreateRun(ctx context.Context, courseID, documentID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO compilation_runs (course_id, document_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		courseID, documentID, RunStatusRunning,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a compilation run as finished with the given status
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE compilation_runs SET status = $1, completed_at = NOW() WHERE id = $2`,
		status, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// SaveContentRecord stores the extracted content record for a run
func (db *DB) SaveContentRecord(ctx context.Context, runID uuid.UUID, rec *types.ContentRecord) error {
	jsonBytes, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal content record: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO content_records (run_id, course_id, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (run_id) DO UPDATE SET content = $3, created_at = NOW()`,
		runID, rec.CourseMetadata.CourseID, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save content record: %w", err)
	}
	return nil
}

// GetContentRecord retrieves a run's content record, or nil when absent
func (db *DB) GetContentRecord(ctx context.Context, runID uuid.UUID) (*types.ContentRecord, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM content_records WHERE run_id = $1`,
		runID,
	).Scan(&content)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get content record: %w", err)
	}

	var rec types.ContentRecord
	if err := json.Unmarshal(content, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content record: %w", err)
	}
	return &rec, nil
}

// SaveQuestions stores a batch of accepted questions for a run
func (db *DB) SaveQuestions(ctx context.Context, runID uuid.UUID, questions []types.AcceptedQuestion) error {
	for _, q := range questions {
		jsonBytes, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("failed to marshal question %s: %w", q.ID, err)
		}

		_, err = db.pool.Exec(ctx,
			`INSERT INTO questions (run_id, question_id, unit_id, question_type, sequence_index, content)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (run_id, question_id) DO UPDATE SET content = $6, created_at = NOW()`,
			runID, q.ID, q.UnitID, string(q.Type), q.SequenceIndex, jsonBytes,
		)
		if err != nil {
			return fmt.Errorf("failed to save question %s: %w", q.ID, err)
		}
	}
	return nil
}

// ListQuestions retrieves a run's questions for one unit in sequence order
func (db *DB) ListQuestions(ctx context.Context, runID uuid.UUID, unitID string) ([]types.AcceptedQuestion, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT content FROM questions
		 WHERE run_id = $1 AND unit_id = $2
		 ORDER BY question_type, sequence_index`,
		runID, unitID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []types.AcceptedQuestion
	for rows.Next() {
		var content []byte
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		var q types.AcceptedQuestion
		if err := json.Unmarshal(content, &q); err != nil {
			return nil, fmt.Errorf("failed to unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// SaveRunSummary stores one unit's generation summary
func (db *DB) SaveRunSummary(ctx context.Context, runID uuid.UUID, unitID string, summary any) error {
	jsonBytes, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO run_summaries (run_id, unit_id, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, unit_id) DO UPDATE SET content = $3, created_at = NOW()`,
		runID, unitID, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}
	return nil
}
