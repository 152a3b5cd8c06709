package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mailbackup/internal/payload"
)

// ChunkSummary is what is known about a chunk once it has been read or
// written in full.
type ChunkSummary struct {
	Length int64
	Digest uint64
	// TSStart and TSEnd are the first and last indexed timestamps. Both are
	// invalid for a chunk that indexed nothing.
	TSStart sql.NullInt64
	TSEnd   sql.NullInt64
}

// Observe widens the timestamp range to include ts.
func (s *ChunkSummary) Observe(ts int64) {
	if !s.TSStart.Valid || ts < s.TSStart.Int64 {
		s.TSStart = sql.NullInt64{Int64: ts, Valid: true}
	}
	if !s.TSEnd.Valid || ts > s.TSEnd.Int64 {
		s.TSEnd = sql.NullInt64{Int64: ts, Valid: true}
	}
}

// Tx groups index writes. Nothing is visible to other connections until
// Commit.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a write transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin index tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit makes the transaction's writes durable.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit index tx: %w", err)
	}
	return nil
}

// Rollback discards the transaction. It is a no-op after Commit, so it is
// safe to defer.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// StartChunk records a chunk beginning at offset and returns its row id.
// If the offset is already known (re-appending after a failed index write)
// the existing row is reused.
func (t *Tx) StartChunk(ctx context.Context, offset int64) (int64, error) {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO chunks (log_offset)
		VALUES (?)
		ON CONFLICT(log_offset) DO NOTHING
	`, offset)
	if err != nil {
		return 0, fmt.Errorf("start chunk at %d: %w", offset, err)
	}

	var id int64
	err = t.tx.QueryRowContext(ctx, `
		SELECT id FROM chunks WHERE log_offset = ?
	`, offset).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("start chunk at %d: select id: %w", offset, err)
	}
	return id, nil
}

// FinishChunk fills in the summary of a chunk started with StartChunk.
func (t *Tx) FinishChunk(ctx context.Context, id int64, sum ChunkSummary) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE chunks
		SET length = ?, ts_start = ?, ts_end = ?, digest = ?
		WHERE id = ?
	`,
		sum.Length,
		sum.TSStart,
		sum.TSEnd,
		formatDigest(sum.Digest),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish chunk %d: %w", id, err)
	}
	return nil
}

// IndexCommand stores one command under chunkID. The item is stored in its
// text form; its key becomes the row name.
func (t *Tx) IndexCommand(ctx context.Context, chunkID int64, ts int64, it payload.Item) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO commands (chunk_id, ts, name, payload)
		VALUES (?, ?, ?, ?)
	`,
		chunkID,
		ts,
		it.Key,
		payload.FormatItem(it),
	)
	if err != nil {
		return fmt.Errorf("index command %s at %d: %w", it.Key, ts, err)
	}
	return nil
}

func formatDigest(d uint64) string {
	return fmt.Sprintf("%016x", d)
}
