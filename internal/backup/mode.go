package backup

import (
	"os"

	"github.com/roach88/mailbackup/internal/lock"
)

// LockKind is the lock held on the log for the life of a handle.
type LockKind = lock.Kind

var (
	LockShared    = lock.Shared
	LockExclusive = lock.Exclusive
)

type dataMode uint8

const (
	dataNormal dataMode = iota
	dataAppend
	dataCreate
)

// DataMode selects how the log is opened. The zero value is DataNormal.
type DataMode struct {
	m dataMode
}

var (
	// DataNormal opens an existing log for reading and writing.
	DataNormal = DataMode{dataNormal}
	// DataAppend opens an existing log with every write going to its end.
	DataAppend = DataMode{dataAppend}
	// DataCreate creates the log; it must not exist yet.
	DataCreate = DataMode{dataCreate}
)

func (m DataMode) String() string {
	switch m.m {
	case dataAppend:
		return "append"
	case dataCreate:
		return "create"
	}
	return "normal"
}

// writable reports whether chunks may be appended in this mode.
func (m DataMode) writable() bool {
	return m.m != dataNormal
}

func (m DataMode) openFlags() int {
	switch m.m {
	case dataAppend:
		return os.O_RDWR | os.O_APPEND
	case dataCreate:
		return os.O_RDWR | os.O_CREATE | os.O_EXCL
	}
	return os.O_RDWR
}

type indexMode uint8

const (
	indexRead indexMode = iota
	indexWrite
	indexCreate
)

// IndexMode selects how the index is opened. The zero value is IndexRead.
type IndexMode struct {
	m indexMode
}

var (
	// IndexRead opens an existing index as is.
	IndexRead = IndexMode{indexRead}
	// IndexWrite opens the index for writing, creating or upgrading it.
	IndexWrite = IndexMode{indexWrite}
	// IndexCreate moves any existing index aside and starts a fresh one.
	IndexCreate = IndexMode{indexCreate}
)

func (m IndexMode) String() string {
	switch m.m {
	case indexWrite:
		return "write"
	case indexCreate:
		return "create"
	}
	return "read"
}

func (m IndexMode) writable() bool {
	return m.m != indexRead
}

// effectiveLock returns the lock a handle opened with these modes holds.
func effectiveLock(lk LockKind, dm DataMode, im IndexMode) LockKind {
	if dm.writable() || im.writable() {
		return LockExclusive
	}
	return lk
}
