package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/langgraph-go/graph"
	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB-backed graph.CheckpointStore, intended for
// production, multi-worker deployments where checkpoints must survive a
// process restart and be visible to other workers.
//
// DSN format: [username[:password]@][protocol[(address)]]/dbname[?params].
// Example: "user:password@tcp(localhost:3306)/langgraph?parseTime=true".
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore opens a connection pool against dsn and ensures the
// checkpoints table exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: pinging mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: creating tables: %w", err)
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS checkpoints (
			thread_id       VARCHAR(255) NOT NULL,
			id              VARCHAR(64) NOT NULL,
			parent_id       VARCHAR(64),
			step            INT NOT NULL,
			channel_values  LONGTEXT NOT NULL,
			pending_nodes   TEXT NOT NULL,
			metadata        TEXT NOT NULL,
			idempotency_key VARCHAR(128),
			created_at      DATETIME(6) NOT NULL,
			PRIMARY KEY (thread_id, id),
			INDEX idx_checkpoints_thread_step (thread_id, step)
		) ENGINE=InnoDB
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Put implements graph.CheckpointStore.
func (s *MySQLStore) Put(ctx context.Context, cp graph.Checkpoint) error {
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
		ON DUPLICATE KEY UPDATE
			parent_id = VALUES(parent_id),
			step = VALUES(step),
			channel_values = VALUES(channel_values),
			pending_nodes = VALUES(pending_nodes),
			metadata = VALUES(metadata),
			idempotency_key = VALUES(idempotency_key),
			created_at = VALUES(created_at)
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
func (s *MySQLStore) Get(ctx context.Context, threadID, id string) (graph.Checkpoint, error) {
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
func (s *MySQLStore) GetLatest(ctx context.Context, threadID string) (graph.Checkpoint, error) {
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
func (s *MySQLStore) List(ctx context.Context, threadID string) ([]graph.Checkpoint, error) {
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
func (s *MySQLStore) DeleteThread(ctx context.Context, threadID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE thread_id = ?", threadID)
	if err != nil {
		return fmt.Errorf("store: delete thread: %w", err)
	}
	return nil
}

// Close closes the connection pool. Calling Close twice is a no-op.
func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *MySQLStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

func (s *MySQLStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store: mysql store is closed")
	}
	return nil
}
