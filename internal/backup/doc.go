// Package backup manages a replicated mail backup: an append-only gzip log of
// replication commands plus a SQLite index derived from it.
//
// For a backup named "/var/backups/alice" the artifacts are
//
//	/var/backups/alice.gz          the log, one gzip member per session
//	/var/backups/alice.index       the index
//	/var/backups/alice.index.old   the previous index, kept by Reindex
//
// A Backup handle is opened with a LockKind, a DataMode and an IndexMode.
// Modes that write the log or the index always run under an exclusive lock,
// whatever was asked for. Open is all-or-nothing: it either returns a fully
// initialised handle or releases everything it acquired and returns the
// error. Changing mode means closing and reopening.
//
// Reindex rebuilds the index by replaying every chunk of the log. Timestamps
// must not decrease within a chunk; chunks are independent sessions, so no
// order is enforced across them.
package backup
