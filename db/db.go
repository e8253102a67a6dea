package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-adwatch/errors"
	"github.com/nijaru/yt-adwatch/models"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	video_id TEXT PRIMARY KEY,
	status TEXT NOT NULL DEFAULT 'pending',
	text TEXT,
	model_name TEXT NOT NULL DEFAULT '',
	error TEXT,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	status TEXT NOT NULL,
	keywords_searched INTEGER NOT NULL DEFAULT 0,
	rows_uploaded INTEGER NOT NULL DEFAULT 0,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Store keeps transcripts between runs and a ledger of past runs. The sheet
// remains the system of record; nothing here deduplicates uploads.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	const op = "db.Open"
	logrus.WithField("path", dbPath).Info("Initializing database")

	if err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm); err != nil {
		return nil, errors.Storage(op, err, "Failed to create database directory")
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Storage(op, err, "Failed to open database")
	}

	// One writer, one process.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(15 * time.Minute)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, errors.Storage(op, err, "Failed to set pragma: "+pragma)
		}
	}

	for _, stmt := range strings.Split(schema, ";") {
		if stmt = strings.TrimSpace(stmt); stmt == "" {
			continue
		}
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, errors.Storage(op, err, "Failed to create schema")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, errors.Storage(op, err, "Failed to connect to database")
	}

	return &Store{db: conn}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetTranscript returns the stored transcript for a video. A video that was
// never stored reports StatusPending.
func (s *Store) GetTranscript(ctx context.Context, videoID string) (string, string, string, error) {
	const op = "db.GetTranscript"
	var text sql.NullString
	var status, modelName string

	err := s.db.QueryRowContext(ctx,
		"SELECT text, status, model_name FROM transcripts WHERE video_id = ?", videoID,
	).Scan(&text, &status, &modelName)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", StatusPending, "", nil
		}
		return "", "", "", errors.Storage(op, err, "Failed to query transcript")
	}

	return text.String, status, modelName, nil
}

func (s *Store) SetTranscript(ctx context.Context, videoID, text, modelName string) error {
	const op = "db.SetTranscript"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (video_id, status, text, model_name, error, updated_at)
		VALUES (?, 'completed', ?, ?, NULL, ?)
		ON CONFLICT(video_id)
		DO UPDATE SET status='completed', text=excluded.text, model_name=excluded.model_name,
			error=NULL, updated_at=excluded.updated_at`,
		videoID, text, modelName, time.Now().UTC())
	if err != nil {
		return errors.Storage(op, err, "Failed to save transcript")
	}
	return nil
}

func (s *Store) SetTranscriptFailed(ctx context.Context, videoID, modelName, message string) error {
	const op = "db.SetTranscriptFailed"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (video_id, status, text, model_name, error, updated_at)
		VALUES (?, 'failed', NULL, ?, ?, ?)
		ON CONFLICT(video_id)
		DO UPDATE SET status='failed', model_name=excluded.model_name,
			error=excluded.error, updated_at=excluded.updated_at`,
		videoID, modelName, message, time.Now().UTC())
	if err != nil {
		return errors.Storage(op, err, "Failed to record transcript failure")
	}
	return nil
}

func (s *Store) StartRun(ctx context.Context, run *models.Run) error {
	const op = "db.StartRun"

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, status) VALUES (?, ?, ?)",
		run.ID, run.StartedAt.UTC(), string(run.Status))
	if err != nil {
		return errors.Storage(op, err, "Failed to record run start")
	}
	return nil
}

func (s *Store) FinishRun(ctx context.Context, run *models.Run) error {
	const op = "db.FinishRun"

	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, status = ?, keywords_searched = ?, rows_uploaded = ?, error = ?
		WHERE id = ?`,
		run.FinishedAt.UTC(), string(run.Status), run.KeywordsSearched, run.RowsUploaded,
		nullString(run.Error), run.ID)
	if err != nil {
		return errors.Storage(op, err, "Failed to record run finish")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Storage(op, err, "Failed to get rows affected")
	}
	if rowsAffected == 0 {
		return errors.Storage(op, nil, "No run with ID "+run.ID)
	}
	return nil
}

// RecentRuns lists runs newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	const op = "db.RecentRuns"

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, status, keywords_searched, rows_uploaded, error
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Storage(op, err, "Failed to query runs")
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		var (
			run        models.Run
			status     string
			finishedAt sql.NullTime
			errText    sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.StartedAt, &finishedAt, &status,
			&run.KeywordsSearched, &run.RowsUploaded, &errText); err != nil {
			return nil, errors.Storage(op, err, "Failed to scan run")
		}
		run.Status = models.RunStatus(status)
		run.FinishedAt = finishedAt.Time
		run.Error = errText.String
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage(op, err, "Failed to iterate runs")
	}
	return runs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
