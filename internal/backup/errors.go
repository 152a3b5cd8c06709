package backup

import (
	"errors"
	"fmt"
)

var (
	ErrClosed        = errors.New("backup is closed")
	ErrReadOnlyLog   = errors.New("backup log is not open for writing")
	ErrReadOnlyIndex = errors.New("backup index is not open for writing")
	// ErrMalformed marks a command record that cannot be parsed. The rest of
	// its chunk is unusable.
	ErrMalformed = errors.New("malformed command")
)

// ConsistencyError reports a timestamp going backwards within one chunk.
type ConsistencyError struct {
	// Offset is the log offset of the chunk.
	Offset    int64
	Previous  int64
	Timestamp int64
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("chunk at offset %d: timestamp %d older than previous %d", e.Offset, e.Timestamp, e.Previous)
}

// IsConsistencyError reports whether err is or wraps a *ConsistencyError.
func IsConsistencyError(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
