package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const createSchema = `
CREATE TABLE IF NOT EXISTS build_events (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	build_id TEXT    NOT NULL,
	kind     TEXT    NOT NULL,
	at_ns    INTEGER NOT NULL,
	payload  BLOB    NOT NULL,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS build_events_by_build ON build_events(build_id, seq);
CREATE INDEX IF NOT EXISTS build_events_by_time ON build_events(at_ns);
`

const selectEvents = `SELECT seq, build_id, kind, at_ns, payload, metadata FROM build_events `

// SQLiteStore keeps build events in a single append-only SQLite table.
// Events come back in insertion order.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore opens or creates the history database at path. ":memory:"
// gives a throwaway store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, openFailed(path, err)
	}
	// A ":memory:" database lives on one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createSchema); err != nil {
		_ = db.Close()
		return nil, openFailed(path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func openFailed(path string, err error) error {
	return errors.Join(ErrDatabaseOpenFailed, fmt.Errorf("sqlite %s: %w", path, err))
}

func (s *SQLiteStore) Append(ctx context.Context, buildID, eventType string, payload []byte, metadata map[string]string) error {
	var meta sql.NullString
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal %s metadata: %w", eventType, err)
		}
		meta = sql.NullString{String: string(raw), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO build_events (build_id, kind, at_ns, payload, metadata) VALUES (?, ?, ?, ?, ?)`,
		buildID, eventType, time.Now().UnixNano(), payload, meta)
	if err != nil {
		return errors.Join(ErrEventAppendFailed, fmt.Errorf("insert %s for %s: %w", eventType, buildID, err))
	}
	return nil
}

func (s *SQLiteStore) GetByBuildID(ctx context.Context, buildID string) ([]Event, error) {
	return s.query(ctx, "WHERE build_id = ? ORDER BY seq", buildID)
}

// GetRange returns the events recorded between start and end inclusive.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	return s.query(ctx, "WHERE at_ns BETWEEN ? AND ? ORDER BY seq", start.UnixNano(), end.UnixNano())
}

func (s *SQLiteStore) query(ctx context.Context, where string, args ...any) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectEvents+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query build events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read build events: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (*BaseEvent, error) {
	var (
		e    BaseEvent
		atNS int64
		meta sql.NullString
	)
	if err := rows.Scan(&e.EventID, &e.EventBuildID, &e.EventType, &atNS, &e.EventPayload, &meta); err != nil {
		return nil, fmt.Errorf("scan build event: %w", err)
	}
	e.EventTimestamp = time.Unix(0, atNS)
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &e.EventMetadata); err != nil {
			return nil, fmt.Errorf("decode metadata of event %d: %w", e.EventID, err)
		}
	}
	return &e, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
