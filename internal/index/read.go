package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/mailbackup/internal/payload"
)

// Command is an indexed command row.
type Command struct {
	ID        int64  `json:"id"`
	ChunkID   int64  `json:"chunk_id"`
	Timestamp int64  `json:"timestamp"`
	Name      string `json:"name"`
	Payload   string `json:"payload"`
}

// Item parses the stored payload text.
func (c Command) Item() (payload.Item, error) {
	it, err := payload.ParseItemString(c.Payload)
	if err != nil {
		return payload.Item{}, fmt.Errorf("command %d: %w", c.ID, err)
	}
	return it, nil
}

// Chunk is an indexed chunk row.
type Chunk struct {
	ID      int64         `json:"id"`
	Offset  int64         `json:"offset"`
	Length  int64         `json:"length"`
	TSStart sql.NullInt64 `json:"-"`
	TSEnd   sql.NullInt64 `json:"-"`
	Digest  string        `json:"digest"`
}

// Commands returns every indexed command in insertion order.
func (s *Store) Commands(ctx context.Context) ([]Command, error) {
	return s.queryCommands(ctx, `
		SELECT id, COALESCE(chunk_id, 0), ts, name, payload
		FROM commands
		ORDER BY id ASC
	`)
}

// CommandsNamed returns the commands whose payload name is name.
func (s *Store) CommandsNamed(ctx context.Context, name string) ([]Command, error) {
	return s.queryCommands(ctx, `
		SELECT id, COALESCE(chunk_id, 0), ts, name, payload
		FROM commands
		WHERE name = ?
		ORDER BY id ASC
	`, name)
}

func (s *Store) queryCommands(ctx context.Context, query string, args ...any) ([]Command, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read commands: %w", err)
	}
	defer rows.Close()

	var out []Command
	for rows.Next() {
		var c Command
		if err := rows.Scan(&c.ID, &c.ChunkID, &c.Timestamp, &c.Name, &c.Payload); err != nil {
			return nil, fmt.Errorf("read commands: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read commands: %w", err)
	}
	return out, nil
}

// CountCommands returns the number of indexed commands.
func (s *Store) CountCommands(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM commands").Scan(&n); err != nil {
		return 0, fmt.Errorf("count commands: %w", err)
	}
	return n, nil
}

// Chunks returns every indexed chunk ordered by log offset.
func (s *Store) Chunks(ctx context.Context) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, log_offset, COALESCE(length, 0), ts_start, ts_end, COALESCE(digest, '')
		FROM chunks
		ORDER BY log_offset ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Offset, &c.Length, &c.TSStart, &c.TSEnd, &c.Digest); err != nil {
			return nil, fmt.Errorf("read chunks: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}
	return out, nil
}
