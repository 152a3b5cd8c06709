//go:build windows

package lock

import (
	"os"

	"golang.org/x/sys/windows"
)

// Lock bytes 0 to max, which covers the whole file for our purposes.
const (
	rangeLow  = 0xFFFFFFFF
	rangeHigh = 0xFFFFFFFF
)

func lockFile(f *os.File, k Kind) error {
	var flags uint32
	if k.IsExclusive() {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	ol := new(windows.Overlapped)
	return windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, rangeLow, rangeHigh, ol)
}

func unlockFile(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, rangeLow, rangeHigh, ol)
}
