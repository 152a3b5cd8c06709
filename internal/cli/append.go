package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/mailbackup/internal/backup"
)

// AppendResult describes the chunk written by append.
type AppendResult struct {
	Offset   int64  `json:"offset"`
	Length   int64  `json:"length"`
	Digest   string `json:"digest"`
	Commands int    `json:"commands"`
}

func (r AppendResult) String() string {
	return fmt.Sprintf("Appended %d command(s) as chunk at offset %d (%d bytes, digest %s)",
		r.Commands, r.Offset, r.Length, r.Digest)
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append NAME [FILE]",
		Short: "Append command records as one chunk",
		Long: `Read command records from FILE, or stdin, and append them to the
backup log as a single chunk. APPLY commands are indexed as they are written.

Each record is "TIMESTAMP VERB ITEM" on its own line. Timestamps must not
decrease. Nothing is written if any record is malformed.

Exit codes:
  0 - Chunk appended
  1 - Input rejected (malformed record, timestamps out of order)
  2 - Command error (missing backup, lock or index failure)

Examples:
  backupctl append user.alice session.txt
  printf '100 APPLY MAILBOX %%(UNIQUEID 8a3c)\n' | backupctl append user.alice`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 2 {
				f, err := os.Open(args[1])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to open input", err)
				}
				defer f.Close()
				in = f
			}
			return runAppend(rootOpts, args[0], in, cmd)
		},
	}
	return cmd
}

func runAppend(opts *RootOptions, name string, in io.Reader, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmds, err := readCommands(in)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read commands", err)
	}
	if len(cmds) == 0 {
		return NewExitError(ExitFailure, "no commands to append")
	}

	b, err := backup.OpenAppender(opts.resolve(name))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open backup", err)
	}
	defer b.Close()

	info, err := b.AppendChunk(ctx, cmds)
	if err != nil {
		if backup.IsConsistencyError(err) || errors.Is(err, backup.ErrMalformed) {
			return WrapExitError(ExitFailure, "chunk rejected", err)
		}
		return WrapExitError(ExitCommandError, "failed to append chunk", err)
	}
	if err := b.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to close backup", err)
	}

	return opts.formatter(cmd).Success(AppendResult{
		Offset:   info.Offset,
		Length:   info.Length,
		Digest:   fmt.Sprintf("%016x", info.Digest),
		Commands: len(cmds),
	})
}

// readCommands parses every record in r.
func readCommands(r io.Reader) ([]backup.Command, error) {
	br := bufio.NewReader(r)
	var cmds []backup.Command
	for {
		c, err := backup.ParseCommand(br)
		if errors.Is(err, io.EOF) {
			return cmds, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(cmds)+1, err)
		}
		cmds = append(cmds, c)
	}
}
