package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/dshills/langgraph-go/graph"
)

// TestMySQLStore_Integration validates MySQLStore against a real database.
//
// Prerequisites:
//   - A MySQL/MariaDB server reachable from this process.
//   - TEST_MYSQL_DSN set to a DSN with CREATE/INSERT/SELECT/UPDATE/DELETE
//     permission on the target schema, e.g.
//     "user:password@tcp(localhost:3306)/test_db?parseTime=true".
//
// Run with:
//
//	export TEST_MYSQL_DSN="user:password@tcp(localhost:3306)/test_db?parseTime=true"
//	go test -v -run TestMySQLStore_Integration ./graph/store
func TestMySQLStore_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("skipping MySQL integration test: set TEST_MYSQL_DSN to run")
	}

	ctx := context.Background()
	s, err := NewMySQLStore(dsn)
	if err != nil {
		t.Fatalf("NewMySQLStore failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	threadID := fmt.Sprintf("integration-test-%d", time.Now().UnixNano())
	defer func() { _ = s.DeleteThread(ctx, threadID) }()

	cp0 := sampleCheckpoint(threadID, "cp-0", 0, nil)
	if err := s.Put(ctx, cp0); err != nil {
		t.Fatalf("Put cp-0 failed: %v", err)
	}
	cp1 := sampleCheckpoint(threadID, "cp-1", 1, strPtr("cp-0"))
	if err := s.Put(ctx, cp1); err != nil {
		t.Fatalf("Put cp-1 failed: %v", err)
	}

	latest, err := s.GetLatest(ctx, threadID)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.ID != "cp-1" {
		t.Errorf("expected latest ID=cp-1, got %q", latest.ID)
	}

	history, err := s.List(ctx, threadID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 checkpoints, got %d", len(history))
	}

	if _, err := s.Get(ctx, threadID, "missing"); !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing checkpoint, got %v", err)
	}
}
