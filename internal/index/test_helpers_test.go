package index

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/roach88/mailbackup/internal/payload"
)

// createTestStore opens a fresh index in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.index")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// writeChunk indexes items as one chunk at offset and commits.
func writeChunk(t *testing.T, s *Store, offset int64, ts int64, items ...payload.Item) int64 {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	defer tx.Rollback()

	id, err := tx.StartChunk(ctx, offset)
	if err != nil {
		t.Fatalf("StartChunk() failed: %v", err)
	}
	for i, it := range items {
		if err := tx.IndexCommand(ctx, id, ts+int64(i), it); err != nil {
			t.Fatalf("IndexCommand() failed: %v", err)
		}
	}
	sum := ChunkSummary{Length: 10, Digest: 0xabc}
	if len(items) > 0 {
		sum.TSStart = sql.NullInt64{Int64: ts, Valid: true}
		sum.TSEnd = sql.NullInt64{Int64: ts + int64(len(items)-1), Valid: true}
	}
	if err := tx.FinishChunk(ctx, id, sum); err != nil {
		t.Fatalf("FinishChunk() failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	return id
}

func mailboxItem(uid string) payload.Item {
	return payload.Item{Key: "MAILBOX", Value: payload.KVList{
		{Key: "UNIQUEID", Value: payload.Atom(uid)},
	}}
}
