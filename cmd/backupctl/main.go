// Command backupctl inspects and maintains mail replication backups.
package main

import (
	"os"

	"github.com/roach88/mailbackup/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
