//go:build !unix && !windows

package lock

import (
	"errors"
	"os"
)

var errUnsupported = errors.New("file locking not supported on this platform")

func lockFile(*os.File, Kind) error { return errUnsupported }

func unlockFile(*os.File) error { return errUnsupported }
