package backup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/mailbackup/internal/chunk"
	"github.com/roach88/mailbackup/internal/index"
	"github.com/roach88/mailbackup/internal/payload"
)

// AppendChunk writes cmds to the end of the log as a new chunk and indexes
// its APPLY commands. The handle must have been opened with a writable data
// mode and index mode.
//
// Timestamps must not decrease within cmds and every payload must read back
// from its log form; nothing is written otherwise.
// If the log write fails the log is truncated back to where the chunk
// started. The log is synced before the index is touched, so a failed index
// write leaves a chunk that Reindex will pick up.
func (b *Backup) AppendChunk(ctx context.Context, cmds []Command) (chunk.Info, error) {
	if b.closed {
		return chunk.Info{}, ErrClosed
	}
	if !b.dataMode.writable() {
		return chunk.Info{}, ErrReadOnlyLog
	}
	if !b.indexMode.writable() {
		return chunk.Info{}, ErrReadOnlyIndex
	}

	offset, err := b.f.Seek(0, io.SeekEnd)
	if err != nil {
		return chunk.Info{}, fmt.Errorf("append to %s: %w", b.name, err)
	}

	for i, cmd := range cmds {
		if err := validToken(cmd.Verb); err != nil {
			return chunk.Info{}, fmt.Errorf("append to %s: command %d: %w", b.name, i, err)
		}
		if err := checkPayload(cmd.Payload); err != nil {
			return chunk.Info{}, fmt.Errorf("append to %s: command %d: %w", b.name, i, err)
		}
		if i > 0 && cmd.Timestamp < cmds[i-1].Timestamp {
			return chunk.Info{}, &ConsistencyError{Offset: offset, Previous: cmds[i-1].Timestamp, Timestamp: cmd.Timestamp}
		}
	}

	info, err := b.writeChunk(offset, cmds)
	if err != nil {
		if terr := b.f.Truncate(offset); terr != nil {
			slog.Error("failed to truncate torn chunk", "backup", b.name, "offset", offset, "error", terr)
		}
		return chunk.Info{}, fmt.Errorf("append to %s: %w", b.name, err)
	}

	if err := b.indexChunk(ctx, info, cmds); err != nil {
		return info, fmt.Errorf("append to %s: %w", b.name, err)
	}

	slog.Debug("chunk appended",
		"backup", b.name,
		"session", b.id,
		"offset", info.Offset,
		"length", info.Length,
		"commands", len(cmds),
	)
	return info, nil
}

// checkPayload rejects an item whose log form would not parse back, so
// every appended chunk stays replayable.
func checkPayload(it payload.Item) error {
	if _, err := payload.ParseItemString(payload.FormatItem(it)); err != nil {
		return fmt.Errorf("%w: payload %q does not read back: %w", ErrMalformed, it.Key, err)
	}
	return nil
}

func (b *Backup) writeChunk(offset int64, cmds []Command) (chunk.Info, error) {
	w := chunk.NewWriter(b.f, offset)
	bw := bufio.NewWriter(w)
	for _, cmd := range cmds {
		if err := FormatCommand(bw, cmd); err != nil {
			return chunk.Info{}, err
		}
	}
	if err := bw.Flush(); err != nil {
		return chunk.Info{}, err
	}
	if err := w.Close(); err != nil {
		return chunk.Info{}, err
	}
	if err := b.f.Sync(); err != nil {
		return chunk.Info{}, fmt.Errorf("sync log: %w", err)
	}
	return w.Info(), nil
}

func (b *Backup) indexChunk(ctx context.Context, info chunk.Info, cmds []Command) error {
	tx, err := b.index.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	chunkID, err := tx.StartChunk(ctx, info.Offset)
	if err != nil {
		return err
	}

	sum := index.ChunkSummary{Length: info.Length, Digest: info.Digest}
	for _, cmd := range cmds {
		if !cmd.IsApply() {
			continue
		}
		cmd = cmd.Canonical()
		if err := tx.IndexCommand(ctx, chunkID, cmd.Timestamp, cmd.Payload); err != nil {
			return err
		}
		sum.Observe(cmd.Timestamp)
	}

	if err := tx.FinishChunk(ctx, chunkID, sum); err != nil {
		return err
	}
	return tx.Commit()
}
