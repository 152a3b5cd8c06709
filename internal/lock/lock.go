// Package lock provides advisory whole-file locking on an open log descriptor.
//
// Locks are flock(2)-style: they belong to the open file description, so two
// descriptors opened separately on the same path conflict even within one
// process. Acquire blocks until the lock is granted; there is no timeout and
// no non-blocking variant. Every successful Acquire must be paired with
// exactly one Release on the same descriptor.
package lock

import (
	"fmt"
	"log/slog"
	"os"
)

type kind uint8

const (
	shared kind = iota
	exclusive
)

// Kind selects a shared (reader) or exclusive (writer) lock.
//
// The zero value is Shared. Kind has no exported fields, so Shared and
// Exclusive are the only values a caller can hold.
type Kind struct {
	k kind
}

var (
	Shared    = Kind{shared}
	Exclusive = Kind{exclusive}
)

// IsExclusive reports whether k is the exclusive kind.
func (k Kind) IsExclusive() bool {
	return k.k == exclusive
}

func (k Kind) String() string {
	if k.k == exclusive {
		return "exclusive"
	}
	return "shared"
}

// Acquire blocks until f holds a lock of the given kind. path names the
// locked file in errors and logs.
func Acquire(f *os.File, k Kind, path string) error {
	slog.Debug("acquiring lock", "path", path, "kind", k.String())
	if err := lockFile(f, k); err != nil {
		return fmt.Errorf("lock %s (%s): %w", path, k, err)
	}
	slog.Debug("lock acquired", "path", path, "kind", k.String())
	return nil
}

// Release drops the lock held on f.
func Release(f *os.File, path string) error {
	if err := unlockFile(f); err != nil {
		return fmt.Errorf("unlock %s: %w", path, err)
	}
	slog.Debug("lock released", "path", path)
	return nil
}
