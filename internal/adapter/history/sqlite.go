// Package history persists chat turns in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"lexai/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	query      TEXT NOT NULL,
	response   TEXT NOT NULL,
	timestamp  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history(session_id, timestamp);
`

// SQLiteStore implements port.HistoryStore.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLiteStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens (creating if needed) the history database at path.
func Open(path string, opts ...Option) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	// WAL lets the HTTP handlers read while a turn is being written
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		path:   path,
		now:    time.Now,
		logger: slog.Default().With("component", "history"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SaveChat appends one query/response pair to a session.
func (s *SQLiteStore) SaveChat(ctx context.Context, sessionID, query, response string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (session_id, query, response, timestamp) VALUES (?, ?, ?, ?)`,
		sessionID, query, response, s.now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("saving chat: %w", err)
	}
	s.logger.Info("saved chat", "session_id", sessionID)
	return nil
}

// GetHistory returns a session's turns, oldest first.
func (s *SQLiteStore) GetHistory(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query, response, timestamp FROM chat_history WHERE session_id = ? ORDER BY timestamp ASC, id ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	turns := []domain.ChatTurn{}
	for rows.Next() {
		var (
			turn domain.ChatTurn
			ts   int64
		)
		if err := rows.Scan(&turn.Query, &turn.Response, &ts); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		turn.SessionID = sessionID
		turn.Timestamp = time.Unix(0, ts).UTC()
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}
