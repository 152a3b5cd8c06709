package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mailbackup/internal/backup"
)

// CreateResult describes a newly created backup.
type CreateResult struct {
	Name  string `json:"name"`
	Log   string `json:"log"`
	Index string `json:"index"`
}

func (r CreateResult) String() string {
	return fmt.Sprintf("Created backup %s (log %s, index %s)", r.Name, r.Log, r.Index)
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty backup",
		Long: `Create an empty backup log and index.

Fails if the log already exists; an existing index is moved to NAME.index.old.

Exit codes:
  0 - Backup created
  2 - Command error (backup exists, lock or index failure)

Examples:
  backupctl create user.alice
  backupctl create /var/spool/backup/user.bob --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCreate(opts *RootOptions, name string, cmd *cobra.Command) error {
	path := opts.resolve(name)
	b, err := backup.Create(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create backup", err)
	}
	paths := b.Paths()
	if err := b.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to close backup", err)
	}

	return opts.formatter(cmd).Success(CreateResult{
		Name:  path,
		Log:   paths.Log,
		Index: paths.Index,
	})
}
