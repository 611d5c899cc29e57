// Package store provides durable graph.CheckpointStore implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/langgraph-go/graph"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed graph.CheckpointStore.
//
// Designed for local development, tests, and single-process deployments:
// zero external setup, WAL mode for concurrent reads, a single-file
// database. Production/multi-worker deployments should prefer MySQLStore.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore opens (creating if absent) a SQLite database at path and
// ensures its checkpoints table exists. path may be a file path or
// ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening sqlite connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: creating tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS checkpoints (
			thread_id       TEXT NOT NULL,
			id              TEXT NOT NULL,
			parent_id       TEXT,
			step            INTEGER NOT NULL,
			channel_values  TEXT NOT NULL,
			pending_nodes   TEXT NOT NULL,
			metadata        TEXT NOT NULL,
			idempotency_key TEXT,
			created_at      TIMESTAMP NOT NULL,
			PRIMARY KEY (thread_id, id)
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_checkpoints_thread_step ON checkpoints(thread_id, step)"); err != nil {
		return err
	}
	return nil
}

// Put implements graph.CheckpointStore.
func (s *SQLiteStore) Put(ctx context.Context, cp graph.Checkpoint) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	row, err := marshalRow(cp)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO checkpoints
			(thread_id, id, parent_id, step, channel_values, pending_nodes, metadata, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id, id) DO UPDATE SET
			parent_id = excluded.parent_id,
			step = excluded.step,
			channel_values = excluded.channel_values,
			pending_nodes = excluded.pending_nodes,
			metadata = excluded.metadata,
			idempotency_key = excluded.idempotency_key,
			created_at = excluded.created_at
	`
	_, err = s.db.ExecContext(ctx, query,
		row.threadID, row.id, row.parentID, row.step,
		row.channelValues, row.pendingNodes, row.metadata, row.idempotencyKey, row.createdAt,
	)
	if err != nil {
		return fmt.Errorf("store: put checkpoint: %w", err)
	}
	return nil
}

// Get implements graph.CheckpointStore.
func (s *SQLiteStore) Get(ctx context.Context, threadID, id string) (graph.Checkpoint, error) {
	if err := s.checkOpen(); err != nil {
		return graph.Checkpoint{}, err
	}
	query := `
		SELECT thread_id, id, parent_id, step, channel_values, pending_nodes, metadata, idempotency_key, created_at
		FROM checkpoints WHERE thread_id = ? AND id = ?
	`
	return scanOne(s.db.QueryRowContext(ctx, query, threadID, id))
}

// GetLatest implements graph.CheckpointStore.
func (s *SQLiteStore) GetLatest(ctx context.Context, threadID string) (graph.Checkpoint, error) {
	if err := s.checkOpen(); err != nil {
		return graph.Checkpoint{}, err
	}
	query := `
		SELECT thread_id, id, parent_id, step, channel_values, pending_nodes, metadata, idempotency_key, created_at
		FROM checkpoints WHERE thread_id = ? ORDER BY step DESC LIMIT 1
	`
	return scanOne(s.db.QueryRowContext(ctx, query, threadID))
}

// List implements graph.CheckpointStore.
func (s *SQLiteStore) List(ctx context.Context, threadID string) ([]graph.Checkpoint, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	query := `
		SELECT thread_id, id, parent_id, step, channel_values, pending_nodes, metadata, idempotency_key, created_at
		FROM checkpoints WHERE thread_id = ? ORDER BY step ASC
	`
	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("store: list checkpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanAll(rows)
}

// DeleteThread implements graph.CheckpointStore.
func (s *SQLiteStore) DeleteThread(ctx context.Context, threadID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE thread_id = ?", threadID)
	if err != nil {
		return fmt.Errorf("store: delete thread: %w", err)
	}
	return nil
}

// Close closes the underlying database connection. Calling Close twice is a
// no-op.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store: sqlite store is closed")
	}
	return nil
}

// checkpointRow is the flattened, JSON-serialized form of a graph.Checkpoint
// shared by both SQL backends.
type checkpointRow struct {
	threadID       string
	id             string
	parentID       *string
	step           int
	channelValues  string
	pendingNodes   string
	metadata       string
	idempotencyKey *string
	createdAt      time.Time
}

func marshalRow(cp graph.Checkpoint) (checkpointRow, error) {
	channelValues, err := json.Marshal(cp.ChannelValues)
	if err != nil {
		return checkpointRow{}, fmt.Errorf("store: marshaling channel_values: %w", err)
	}
	pendingNodes, err := json.Marshal(cp.PendingNodes)
	if err != nil {
		return checkpointRow{}, fmt.Errorf("store: marshaling pending_nodes: %w", err)
	}
	metadata, err := json.Marshal(cp.Metadata)
	if err != nil {
		return checkpointRow{}, fmt.Errorf("store: marshaling metadata: %w", err)
	}
	var idempotencyKey *string
	if cp.IdempotencyKey != "" {
		idempotencyKey = &cp.IdempotencyKey
	}
	return checkpointRow{
		threadID:       cp.ThreadID,
		id:             cp.ID,
		parentID:       cp.ParentID,
		step:           cp.Step,
		channelValues:  string(channelValues),
		pendingNodes:   string(pendingNodes),
		metadata:       string(metadata),
		idempotencyKey: idempotencyKey,
		createdAt:      cp.CreatedAt,
	}, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows so scanOne/scanAll share one
// Scan call shape.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(r rowScanner) (graph.Checkpoint, error) {
	var (
		row           checkpointRow
		channelValues string
		pendingNodes  string
		metadata      string
	)
	if err := r.Scan(&row.threadID, &row.id, &row.parentID, &row.step, &channelValues, &pendingNodes, &metadata, &row.idempotencyKey, &row.createdAt); err != nil {
		return graph.Checkpoint{}, err
	}
	cp := graph.Checkpoint{
		ID:        row.id,
		ThreadID:  row.threadID,
		ParentID:  row.parentID,
		Step:      row.step,
		CreatedAt: row.createdAt,
	}
	if row.idempotencyKey != nil {
		cp.IdempotencyKey = *row.idempotencyKey
	}
	if err := json.Unmarshal([]byte(channelValues), &cp.ChannelValues); err != nil {
		return graph.Checkpoint{}, fmt.Errorf("store: unmarshaling channel_values: %w", err)
	}
	if err := json.Unmarshal([]byte(pendingNodes), &cp.PendingNodes); err != nil {
		return graph.Checkpoint{}, fmt.Errorf("store: unmarshaling pending_nodes: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &cp.Metadata); err != nil {
		return graph.Checkpoint{}, fmt.Errorf("store: unmarshaling metadata: %w", err)
	}
	return cp, nil
}

func scanOne(r *sql.Row) (graph.Checkpoint, error) {
	cp, err := scanRow(r)
	if err == sql.ErrNoRows {
		return graph.Checkpoint{}, graph.ErrNotFound
	}
	if err != nil {
		return graph.Checkpoint{}, fmt.Errorf("store: scanning checkpoint: %w", err)
	}
	return cp, nil
}

func scanAll(rows *sql.Rows) ([]graph.Checkpoint, error) {
	var out []graph.Checkpoint
	for rows.Next() {
		cp, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning checkpoint row: %w", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating checkpoint rows: %w", err)
	}
	return out, nil
}
