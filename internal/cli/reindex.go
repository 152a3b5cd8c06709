package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mailbackup/internal/backup"
)

// ReindexResult holds the outcome of a reindex.
type ReindexResult struct {
	Name     string `json:"name"`
	OldIndex string `json:"old_index"`
	backup.Stats
}

func (r ReindexResult) String() string {
	s := fmt.Sprintf("Reindexed %s: %d chunk(s), %d command(s), %d indexed",
		r.Name, r.Chunks, r.Commands, r.Indexed)
	if r.Faulted > 0 {
		s += fmt.Sprintf(", %d chunk(s) truncated at a malformed record", r.Faulted)
	}
	return s + "\nPrevious index kept at " + r.OldIndex
}

// NewReindexCommand creates the reindex command.
func NewReindexCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex NAME",
		Short: "Rebuild a backup's index from its log",
		Long: `Rebuild the index of a backup by replaying every chunk of its log.

The previous index is moved to NAME.index.old first. A malformed record
drops the rest of its chunk; the next chunk is still indexed. A timestamp
that goes backwards within a chunk aborts the run and leaves the new index
empty.

Exit codes:
  0 - Index rebuilt
  1 - Log is inconsistent (timestamps out of order)
  2 - Command error (missing log, corrupt container, lock or index failure)

Examples:
  backupctl reindex user.alice
  backupctl reindex user.alice --verbose --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runReindex(opts *RootOptions, name string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	path := opts.resolve(name)
	stats, err := backup.Reindex(ctx, path)
	if err != nil {
		if backup.IsConsistencyError(err) {
			return WrapExitError(ExitFailure, "log is inconsistent", err)
		}
		return WrapExitError(ExitCommandError, "failed to reindex", err)
	}

	return opts.formatter(cmd).Success(ReindexResult{
		Name:     path,
		OldIndex: backup.PathsFor(path).OldIndex,
		Stats:    stats,
	})
}
