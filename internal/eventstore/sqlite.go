package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const selectColumns = "SELECT id, timestamp, headers, body FROM webhooks"

const newestFirst = " ORDER BY timestamp DESC, id DESC"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock overrides the clock used to timestamp appended events.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// NewSQLiteStore creates a new SQLite-based event store.
// Use ":memory:" for in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, ErrDatabaseOpenFailed.WithCause(err).WithContext("path", dbPath)
	}
	if isMemory(dbPath) {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, ErrInitializeSchemaFailed.WithCause(err).WithContext("path", dbPath)
	}

	return store, nil
}

func isMemory(dbPath string) bool {
	return dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
}

func dsn(dbPath string) string {
	if isMemory(dbPath) || strings.Contains(dbPath, "?") {
		return dbPath
	}
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS webhooks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		headers TEXT NOT NULL,
		body TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_webhooks_timestamp ON webhooks(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new event to the store.
func (s *SQLiteStore) Append(ctx context.Context, headers Headers, body string) (Event, error) {
	if headers == nil {
		headers = Headers{}
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return Event{}, ErrMarshalHeadersFailed.WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	timestamp := FormatTimestamp(s.now())
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO webhooks (timestamp, headers, body) VALUES (?, ?, ?)",
		timestamp, string(headersJSON), body,
	)
	if err != nil {
		return Event{}, ErrEventAppendFailed.WithCause(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Event{}, ErrEventAppendFailed.WithCause(err)
	}

	return Event{ID: id, Timestamp: timestamp, Headers: headers, Body: body}, nil
}

// Query returns one page of events. Counting and fetching share a transaction
// so Total and Events describe the same snapshot.
func (s *SQLiteStore) Query(ctx context.Context, q Query) (Page, error) {
	q = q.Normalized()
	where, args := searchPredicate(q.Search)

	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Page{}, ErrEventQueryFailed.WithCause(err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM webhooks"+where, args...).Scan(&total); err != nil {
		return Page{}, ErrEventQueryFailed.WithCause(fmt.Errorf("count: %w", err))
	}

	pageArgs := append(append([]any{}, args...), q.Limit, q.Offset)
	rows, err := tx.QueryContext(ctx, selectColumns+where+newestFirst+" LIMIT ? OFFSET ?", pageArgs...)
	if err != nil {
		return Page{}, ErrEventQueryFailed.WithCause(err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Events:  events,
		Total:   total,
		HasMore: int64(q.Offset+len(events)) < total,
	}, nil
}

// Get retrieves one event by id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectColumns+" WHERE id = ?", id)
	if err != nil {
		return Event{}, ErrEventQueryFailed.WithCause(err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return Event{}, err
	}
	if len(events) == 0 {
		return Event{}, ErrEventNotFound.WithContext("webhook_id", id)
	}
	return events[0], nil
}

// All retrieves every event, newest first.
func (s *SQLiteStore) All(ctx context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectColumns+newestFirst)
	if err != nil {
		return nil, ErrEventQueryFailed.WithCause(err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Count returns the number of stored events.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM webhooks").Scan(&n); err != nil {
		return 0, ErrEventQueryFailed.WithCause(err)
	}
	return n, nil
}

// Clear deletes every event. AUTOINCREMENT keeps removed ids from being reused.
func (s *SQLiteStore) Clear(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, ErrClearFailed.WithCause(err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM webhooks")
	if err != nil {
		return 0, ErrClearFailed.WithCause(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, ErrClearFailed.WithCause(err)
	}
	if err := tx.Commit(); err != nil {
		return 0, ErrClearFailed.WithCause(err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return ErrEventQueryFailed.WithCause(err)
	}
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return ErrEventQueryFailed.WithCause(err)
	}
	return nil
}

// Optimize lets SQLite refresh its query planner statistics.
func (s *SQLiteStore) Optimize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return ErrEventQueryFailed.WithCause(fmt.Errorf("optimize: %w", err))
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	events := []Event{}
	for rows.Next() {
		var e Event
		var headersJSON string

		if err := rows.Scan(&e.ID, &e.Timestamp, &headersJSON, &e.Body); err != nil {
			return nil, ErrEventScanFailed.WithCause(err)
		}
		if err := json.Unmarshal([]byte(headersJSON), &e.Headers); err != nil {
			return nil, ErrUnmarshalHeadersFailed.WithCause(err).WithContext("webhook_id", e.ID)
		}
		if e.Headers == nil {
			e.Headers = Headers{}
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, ErrEventScanFailed.WithCause(fmt.Errorf("iterate rows: %w", err))
	}

	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
