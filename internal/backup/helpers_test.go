package backup

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mailbackup/internal/chunk"
	"github.com/roach88/mailbackup/internal/index"
	"github.com/roach88/mailbackup/internal/payload"
)

// storeName returns a backup name inside a fresh temp dir.
func storeName(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "user.alice")
}

// writeLog appends each body to the backup's log as a raw chunk, creating
// the log if needed. Bodies are written as is, malformed or not.
func writeLog(t *testing.T, name string, bodies ...string) {
	t.Helper()
	f, err := os.OpenFile(PathsFor(name).Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600)
	require.NoError(t, err)
	defer f.Close()

	for _, body := range bodies {
		offset, err := f.Seek(0, io.SeekEnd)
		require.NoError(t, err)
		w := chunk.NewWriter(f, offset)
		_, err = io.WriteString(w, body)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
}

// writeIndex creates an empty index at the current version.
func writeIndex(t *testing.T, name string) {
	t.Helper()
	s, err := index.Open(PathsFor(name).Index)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

// readCommands returns the indexed commands of a backup.
func readCommands(t *testing.T, name string) []index.Command {
	t.Helper()
	b, err := OpenReader(name)
	require.NoError(t, err)
	defer b.Close()

	cmds, err := b.Index().Commands(context.Background())
	require.NoError(t, err)
	return cmds
}

func mustItem(t *testing.T, s string) payload.Item {
	t.Helper()
	it, err := payload.ParseItemString(s)
	require.NoError(t, err)
	return it
}

type hookState struct {
	opened   []*os.File
	acquired int
	released int
}

// trackHooks records every descriptor Open creates and counts lock
// acquisitions and releases. All hooks are restored when the test ends.
func trackHooks(t *testing.T) *hookState {
	t.Helper()
	saved := struct {
		openFile          func(string, int, os.FileMode) (*os.File, error)
		acquireLock       func(*os.File, LockKind, string) error
		releaseLock       func(*os.File, string) error
		renameFile        func(string, string) error
		removeFile        func(string) error
		openIndex         func(string) (*index.Store, error)
		openIndexExisting func(string) (*index.Store, error)
	}{openFile, acquireLock, releaseLock, renameFile, removeFile, openIndex, openIndexExisting}
	t.Cleanup(func() {
		openFile = saved.openFile
		acquireLock = saved.acquireLock
		releaseLock = saved.releaseLock
		renameFile = saved.renameFile
		removeFile = saved.removeFile
		openIndex = saved.openIndex
		openIndexExisting = saved.openIndexExisting
	})

	hs := &hookState{}
	openFile = func(name string, flag int, perm os.FileMode) (*os.File, error) {
		f, err := saved.openFile(name, flag, perm)
		if f != nil {
			hs.opened = append(hs.opened, f)
		}
		return f, err
	}
	acquireLock = func(f *os.File, k LockKind, path string) error {
		err := saved.acquireLock(f, k, path)
		if err == nil {
			hs.acquired++
		}
		return err
	}
	releaseLock = func(f *os.File, path string) error {
		hs.released++
		return saved.releaseLock(f, path)
	}
	return hs
}

// requireAllClosed checks that every descriptor Open created is closed and
// every lock it took was released.
func (hs *hookState) requireAllClosed(t *testing.T) {
	t.Helper()
	for _, f := range hs.opened {
		err := f.Close()
		require.ErrorIs(t, err, os.ErrClosed, "descriptor %s left open", f.Name())
	}
	require.Equal(t, hs.acquired, hs.released, "lock acquisitions and releases differ")
}
