package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/roach88/mailbackup/internal/index"
	"github.com/roach88/mailbackup/internal/lock"
)

// Each step of Open goes through one of these so tests can fail it.
var (
	openFile          = os.OpenFile
	acquireLock       = lock.Acquire
	releaseLock       = lock.Release
	renameFile        = os.Rename
	removeFile        = os.Remove
	openIndex         = index.Open
	openIndexExisting = index.OpenExisting
)

// Backup is an open backup. It owns the log descriptor, the lock on it and
// the index store until Close.
type Backup struct {
	id        string
	name      string
	paths     Paths
	f         *os.File
	lockKind  LockKind
	dataMode  DataMode
	indexMode IndexMode
	index     *index.Store
	closed    bool
}

// Open opens the backup called name.
//
// DataAppend, DataCreate, IndexWrite and IndexCreate all force an exclusive
// lock. IndexCreate moves an existing index to Paths.OldIndex before a new
// one is created. On any failure every resource acquired so far is released,
// in reverse order, and the error is returned. A log created by DataCreate
// is removed again. OS errors are wrapped so errors.Is(err, fs.ErrNotExist)
// and fs.ErrExist work.
//
// Lock acquisition blocks until granted.
func Open(name string, lk LockKind, dm DataMode, im IndexMode) (_ *Backup, err error) {
	paths := PathsFor(name)
	lk = effectiveLock(lk, dm, im)

	f, err := openFile(paths.Log, dm.openFlags(), 0o600)
	if err != nil {
		return nil, fmt.Errorf("open backup %s: %w", name, err)
	}
	defer func() {
		if err != nil {
			f.Close()
			if dm == DataCreate {
				// The log was created by this call.
				removeFile(paths.Log)
			}
		}
	}()

	if err := acquireLock(f, lk, paths.Log); err != nil {
		return nil, fmt.Errorf("open backup %s: %w", name, err)
	}
	defer func() {
		if err != nil {
			releaseLock(f, paths.Log)
		}
	}()

	if im == IndexCreate {
		if err := moveIndex(paths.Index, paths.OldIndex); err != nil {
			return nil, fmt.Errorf("open backup %s: %w", name, err)
		}
	}

	var idx *index.Store
	if im.writable() {
		idx, err = openIndex(paths.Index)
	} else {
		idx, err = openIndexExisting(paths.Index)
	}
	if err != nil {
		return nil, fmt.Errorf("open backup %s: %w", name, err)
	}

	b := &Backup{
		id:        uuid.Must(uuid.NewV7()).String(),
		name:      name,
		paths:     paths,
		f:         f,
		lockKind:  lk,
		dataMode:  dm,
		indexMode: im,
		index:     idx,
	}
	slog.Debug("backup opened",
		"backup", name,
		"session", b.id,
		"lock", lk.String(),
		"data", dm.String(),
		"index", im.String(),
	)
	return b, nil
}

// Create creates a new backup called name. Its log must not exist yet.
func Create(name string) (*Backup, error) {
	return Open(name, LockExclusive, DataCreate, IndexCreate)
}

// OpenReader opens an existing backup for reading under a shared lock.
func OpenReader(name string) (*Backup, error) {
	return Open(name, LockShared, DataNormal, IndexRead)
}

// OpenAppender opens an existing backup for appending chunks.
func OpenAppender(name string) (*Backup, error) {
	return Open(name, LockExclusive, DataAppend, IndexWrite)
}

// moveIndex renames the index at from, with its SQLite sidecars, to to.
// A missing index is fine.
func moveIndex(from, to string) error {
	for _, suffix := range sqliteSidecars {
		if err := removeFile(to + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale %s: %w", to+suffix, err)
		}
	}
	for _, suffix := range append([]string{""}, sqliteSidecars...) {
		err := renameFile(from+suffix, to+suffix)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("preserve index: %w", err)
		}
	}
	return nil
}

// Close closes the index, releases the lock and closes the log, in that
// order. All three are attempted even if one fails.
func (b *Backup) Close() error {
	if b.closed {
		return ErrClosed
	}
	b.closed = true

	var errs []error
	if err := b.index.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close index: %w", err))
	}
	if err := releaseLock(b.f, b.paths.Log); err != nil {
		errs = append(errs, err)
	}
	if err := b.f.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close log: %w", err))
	}
	slog.Debug("backup closed", "backup", b.name, "session", b.id)
	return errors.Join(errs...)
}

// Name returns the name the backup was opened with.
func (b *Backup) Name() string { return b.name }

// ID returns a per-handle session id, used to correlate log lines.
func (b *Backup) ID() string { return b.id }

// Paths returns the backup's artifact paths.
func (b *Backup) Paths() Paths { return b.paths }

// LockKind returns the lock actually held, which may be stronger than the
// one requested.
func (b *Backup) LockKind() LockKind { return b.lockKind }

func (b *Backup) DataMode() DataMode { return b.dataMode }

func (b *Backup) IndexMode() IndexMode { return b.indexMode }

// Index returns the backup's index store. It is closed by Close.
func (b *Backup) Index() *index.Store { return b.index }
