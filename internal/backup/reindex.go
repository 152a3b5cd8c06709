package backup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/mailbackup/internal/chunk"
	"github.com/roach88/mailbackup/internal/index"
)

// Stats summarises a reindex run.
type Stats struct {
	Chunks   int `json:"chunks"`
	Commands int `json:"commands"`
	Indexed  int `json:"indexed"`
	// Faulted counts chunks whose tail was dropped after a malformed record.
	Faulted int `json:"faulted"`
}

// Reindex rebuilds the index of the backup called name from its log.
//
// The previous index is kept at Paths.OldIndex. Chunks are replayed in log
// order. A malformed record ends its chunk but not the run. A timestamp
// that goes backwards within a chunk, a failed index write or a container
// error aborts the run; the new index is then left empty.
func Reindex(ctx context.Context, name string) (stats Stats, err error) {
	b, err := Open(name, LockExclusive, DataNormal, IndexCreate)
	if err != nil {
		return stats, err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("reindex %s: %w", name, cerr)
		}
	}()

	log := slog.With("backup", name, "session", b.id)

	tx, err := b.index.Begin(ctx)
	if err != nil {
		return stats, fmt.Errorf("reindex %s: %w", name, err)
	}
	defer tx.Rollback()

	cr := chunk.NewReader(b.f)
	defer cr.Close()

	for !cr.AtEnd() {
		if err := replayChunk(ctx, cr, tx, &stats, log); err != nil {
			return stats, fmt.Errorf("reindex %s: %w", name, err)
		}
	}
	if err := cr.Err(); err != nil {
		return stats, fmt.Errorf("reindex %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("reindex %s: %w", name, err)
	}

	log.Info("reached end of log",
		"chunks", stats.Chunks,
		"commands", stats.Commands,
		"indexed", stats.Indexed,
		"faulted", stats.Faulted,
	)
	return stats, nil
}

// replayChunk indexes the APPLY commands of the next chunk.
func replayChunk(ctx context.Context, cr *chunk.Reader, tx *index.Tx, stats *Stats, log *slog.Logger) error {
	if err := cr.Begin(); err != nil {
		return err
	}
	offset := cr.Offset()
	log.Info("found chunk", "offset", offset)

	chunkID, err := tx.StartChunk(ctx, offset)
	if err != nil {
		return err
	}

	var (
		sum  index.ChunkSummary
		last int64
		seen bool
		in   = bufio.NewReader(cr)
	)
	for {
		cmd, err := ParseCommand(in)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn("dropping rest of chunk", "offset", offset, "error", err)
			stats.Faulted++
			break
		}
		stats.Commands++

		if seen && cmd.Timestamp < last {
			return &ConsistencyError{Offset: offset, Previous: last, Timestamp: cmd.Timestamp}
		}
		last, seen = cmd.Timestamp, true

		if !cmd.IsApply() {
			continue
		}
		cmd = cmd.Canonical()
		if err := tx.IndexCommand(ctx, chunkID, cmd.Timestamp, cmd.Payload); err != nil {
			return err
		}
		sum.Observe(cmd.Timestamp)
		stats.Indexed++
	}

	info, err := cr.End()
	if err != nil {
		return err
	}
	sum.Length = info.Length
	sum.Digest = info.Digest
	if err := tx.FinishChunk(ctx, chunkID, sum); err != nil {
		return err
	}
	stats.Chunks++
	log.Debug("chunk indexed", "offset", offset, "length", info.Length, "digest", fmt.Sprintf("%016x", info.Digest))
	return nil
}
