package backup

const (
	LogSuffix      = ".gz"
	IndexSuffix    = ".index"
	OldIndexSuffix = ".old"
)

// sqliteSidecars are the files SQLite may keep next to an index in WAL mode.
var sqliteSidecars = []string{"-wal", "-shm"}

// Paths are the on-disk artifacts of a backup.
type Paths struct {
	Log   string
	Index string
	// OldIndex is where an IndexCreate open moves the previous index.
	OldIndex string
}

// PathsFor derives the artifact names of the backup called name.
func PathsFor(name string) Paths {
	return Paths{
		Log:      name + LogSuffix,
		Index:    name + IndexSuffix,
		OldIndex: name + IndexSuffix + OldIndexSuffix,
	}
}
