package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// CompletionLog is one recorded model round trip.
type CompletionLog struct {
	ID        int       `json:"id"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Function  string    `json:"function"`
	Input     string    `json:"input"`
	Response  string    `json:"response"`
	Metadata  string    `json:"metadata"`
}

type CompletionMetadata struct {
	Model        string        `json:"model"`
	MaxTokens    int64         `json:"max_tokens"`
	ResponseTime time.Duration `json:"response_time_ms"`
	InputTokens  int64         `json:"input_tokens"`
	OutputTokens int64         `json:"output_tokens"`
	FinishReason string        `json:"finish_reason,omitempty"`
	ToolsOffered int           `json:"tools_offered,omitempty"`
	Error        *string       `json:"error,omitempty"`
}

// Entry is what callers hand to LogCompletion.
type Entry struct {
	RequestID string
	Operation string
	Function  string
	Input     string
	Response  string
	Metadata  CompletionMetadata
}

// CompletionLogger appends completion records to a sqlite database. It is
// safe for concurrent use.
type CompletionLogger struct {
	db *sql.DB
}

// NewCompletionLogger opens (or creates) the sqlite database at path.
func NewCompletionLogger(path string) (*CompletionLogger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger := &CompletionLogger{db: db}
	if err := logger.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return logger, nil
}

func (cl *CompletionLogger) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS completions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL DEFAULT '',
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		operation TEXT NOT NULL,
		function TEXT NOT NULL DEFAULT '',
		input TEXT NOT NULL,
		response TEXT NOT NULL,
		metadata TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_completions_timestamp ON completions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_completions_request_id ON completions(request_id);
	`

	_, err := cl.db.Exec(schema)
	return err
}

// LogCompletion records one round trip. A nil logger discards the entry.
func (cl *CompletionLogger) LogCompletion(ctx context.Context, entry Entry) error {
	if cl == nil {
		return nil
	}

	metadataJson, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = cl.db.ExecContext(ctx, `
		INSERT INTO completions (request_id, operation, function, input, response, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.RequestID, entry.Operation, entry.Function, entry.Input, entry.Response, string(metadataJson))

	return err
}

// RecentCompletions returns up to limit records, newest first.
func (cl *CompletionLogger) RecentCompletions(ctx context.Context, limit int) ([]CompletionLog, error) {
	rows, err := cl.db.QueryContext(ctx, `
		SELECT id, request_id, timestamp, operation, function, input, response, metadata
		FROM completions
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []CompletionLog
	for rows.Next() {
		var c CompletionLog
		err := rows.Scan(&c.ID, &c.RequestID, &c.Timestamp, &c.Operation, &c.Function,
			&c.Input, &c.Response, &c.Metadata)
		if err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}

	return completions, rows.Err()
}

func (cl *CompletionLogger) Close() error {
	if cl == nil {
		return nil
	}
	return cl.db.Close()
}
