// Package index provides the SQLite-backed index of a backup log.
//
// The index is derived data: every row can be rebuilt by replaying the log,
// so it favours simple append-style writes over anything clever.
//
//   - chunks: one row per log chunk (offset, compressed length, timestamp
//     range, xxh3 digest of the decompressed data)
//   - commands: one row per indexed command (timestamp, upper-cased payload
//     name, payload text)
//
// Only APPLY commands are indexed, so every commands row is an APPLY and the
// verb itself is not stored.
//
// # Versioning
//
// The schema version lives in PRAGMA user_version. A fresh file (version 0)
// gets schema.sql in one shot; an older file is walked through the upgrade
// list in order. Opening a file whose version is newer than this package
// knows fails with ErrVersion.
//
// # Database Configuration
//
//   - WAL mode: readers holding a shared log lock can query during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package index
