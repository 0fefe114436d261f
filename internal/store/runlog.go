package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RunLog journals each source's outcome per pipeline run so operators
// can spot a quietly failing source without digging through logs.
type RunLog struct {
	db *sql.DB
}

// RunEntry is one journalled source outcome.
type RunEntry struct {
	ID        int64
	Source    string
	Rows      int
	Truncated bool
	Error     string
	RanAt     time.Time
}

// OpenRunLog opens (and if needed creates) the sqlite journal.
func OpenRunLog(dbPath string) (*RunLog, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_loc=Local")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS source_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		rows INTEGER NOT NULL,
		truncated INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		ran_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &RunLog{db: db}, nil
}

// Record journals one source outcome.
func (l *RunLog) Record(source string, rows int, truncated bool, runErr error) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	_, err := l.db.Exec(
		`INSERT INTO source_runs (source, rows, truncated, error) VALUES (?, ?, ?, ?)`,
		source, rows, truncated, errText,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns the latest journal entries, newest first.
func (l *RunLog) Recent(limit int) ([]RunEntry, error) {
	rows, err := l.db.Query(
		`SELECT id, source, rows, truncated, error, ran_at
		 FROM source_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		if err := rows.Scan(&e.ID, &e.Source, &e.Rows, &e.Truncated, &e.Error, &e.RanAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *RunLog) Close() error {
	return l.db.Close()
}
