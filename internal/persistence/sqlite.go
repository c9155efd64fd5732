package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mindforge-ai/mindforge/internal/graph"
	"github.com/mindforge-ai/mindforge/internal/session"
)

// SQLiteLog stores the change log, graph snapshot and sessions in a local
// SQLite file. It is the default backend.
type SQLiteLog struct {
	db        *sql.DB
	namespace string
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS graph_log (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		namespace TEXT NOT NULL,
		record    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_graph_log_namespace ON graph_log (namespace)`,
	`CREATE TABLE IF NOT EXISTS graph_snapshot (
		namespace TEXT PRIMARY KEY,
		snapshot  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		namespace TEXT NOT NULL,
		id        TEXT NOT NULL,
		session   TEXT NOT NULL,
		PRIMARY KEY (namespace, id)
	)`,
}

// NewSQLiteLog opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteLog(path, namespace string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows one writer at a time. A single shared connection lets
	// database/sql serialize callers instead of them fighting for write
	// locks across connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteLog{db: db, namespace: namespace}, nil
}

func (l *SQLiteLog) AppendGraph(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO graph_log (namespace, record) VALUES (?, ?)`,
		l.namespace, string(data))
	if err != nil {
		return fmt.Errorf("appending record: %w", err)
	}
	return nil
}

func (l *SQLiteLog) SnapshotGraph(ctx context.Context, snap graph.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO graph_snapshot (namespace, snapshot) VALUES (?, ?)
		ON CONFLICT (namespace) DO UPDATE SET snapshot = excluded.snapshot
	`, l.namespace, string(data))
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM graph_log WHERE namespace = ?`, l.namespace); err != nil {
		return fmt.Errorf("truncating log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func (l *SQLiteLog) LoadGraph(ctx context.Context) (graph.Snapshot, error) {
	var snap graph.Snapshot

	var raw string
	err := l.db.QueryRowContext(ctx,
		`SELECT snapshot FROM graph_snapshot WHERE namespace = ?`, l.namespace).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		// No snapshot yet; replay the log from empty.
	case err != nil:
		return snap, fmt.Errorf("loading snapshot: %w", err)
	default:
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return snap, fmt.Errorf("unmarshaling snapshot: %w", err)
		}
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT record FROM graph_log WHERE namespace = ? ORDER BY id`, l.namespace)
	if err != nil {
		return snap, fmt.Errorf("loading log: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return snap, fmt.Errorf("scanning record: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue // skip malformed records
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterating log: %w", err)
	}

	return replay(snap, records), nil
}

func (l *SQLiteLog) TailLen(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM graph_log WHERE namespace = ?`, l.namespace).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting log: %w", err)
	}
	return n, nil
}

func (l *SQLiteLog) SaveSession(ctx context.Context, s session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO sessions (namespace, id, session) VALUES (?, ?, ?)
		ON CONFLICT (namespace, id) DO UPDATE SET session = excluded.session
	`, l.namespace, s.ID, string(data))
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (l *SQLiteLog) LoadSessions(ctx context.Context) ([]session.Session, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT session FROM sessions WHERE namespace = ?`, l.namespace)
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		var s session.Session
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			continue // skip malformed sessions
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	return sessions, nil
}

func (l *SQLiteLog) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
