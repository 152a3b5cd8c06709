package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mailbackup/internal/backup"
	"github.com/roach88/mailbackup/internal/index"
	"github.com/roach88/mailbackup/internal/payload"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Name string // optional - only commands whose payload is named Name
}

// DumpEntry is one indexed command.
type DumpEntry struct {
	ID        int64        `json:"id"`
	ChunkID   int64        `json:"chunk_id"`
	Timestamp int64        `json:"timestamp"`
	Payload   payload.Item `json:"payload"`
}

// DumpResult lists indexed commands.
type DumpResult struct {
	Commands []DumpEntry `json:"commands"`
}

func (r DumpResult) String() string {
	if len(r.Commands) == 0 {
		return "No commands indexed."
	}
	var b strings.Builder
	for i, e := range r.Commands {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d %s", e.Timestamp, e.Payload)
	}
	return b.String()
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump NAME",
		Short: "Print the indexed commands of a backup",
		Long: `Print every APPLY command recorded in a backup's index, in the order it
was indexed. The backup is opened under a shared lock and its index is only
read.

Examples:
  backupctl dump user.alice
  backupctl dump user.alice --name MAILBOX --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "only commands whose payload has this name")

	return cmd
}

func runDump(opts *DumpOptions, name string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := backup.OpenReader(opts.resolve(name))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open backup", err)
	}
	defer b.Close()

	var rows []index.Command
	if opts.Name != "" {
		rows, err = b.Index().CommandsNamed(ctx, opts.Name)
	} else {
		rows, err = b.Index().Commands(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read index", err)
	}

	result := DumpResult{Commands: make([]DumpEntry, 0, len(rows))}
	for _, row := range rows {
		it, err := row.Item()
		if err != nil {
			return WrapExitError(ExitFailure, "index holds an unreadable payload", err)
		}
		result.Commands = append(result.Commands, DumpEntry{
			ID:        row.ID,
			ChunkID:   row.ChunkID,
			Timestamp: row.Timestamp,
			Payload:   it,
		})
	}

	return opts.formatter(cmd).Success(result)
}
