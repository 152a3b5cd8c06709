//go:build unix

package backup

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// canLock reports whether a fresh descriptor on path could take a lock of
// the given flock op (LOCK_SH or LOCK_EX) right now.
func canLock(t *testing.T, path string, op int) bool {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	err = unix.Flock(int(f.Fd()), op|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return false
	}
	require.NoError(t, err)
	require.NoError(t, unix.Flock(int(f.Fd()), unix.LOCK_UN))
	return true
}

func requireUnlocked(t *testing.T, name string) {
	t.Helper()
	require.True(t, canLock(t, PathsFor(name).Log, unix.LOCK_EX), "log of %s is still locked", name)
}
