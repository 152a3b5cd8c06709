//go:build unix

package lock

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func lockFile(f *os.File, k Kind) error {
	op := unix.LOCK_SH
	if k.IsExclusive() {
		op = unix.LOCK_EX
	}
	for {
		// Blocking: no LOCK_NB. A signal can interrupt the wait.
		err := unix.Flock(int(f.Fd()), op)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
