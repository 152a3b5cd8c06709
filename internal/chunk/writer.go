package chunk

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/zeebo/xxh3"
)

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Writer emits exactly one chunk. Close must be called to write the member
// trailer; Info is only complete after that.
type Writer struct {
	offset int64
	cw     *countingWriter
	zw     *gzip.Writer
	hash   *xxh3.Hasher
	closed bool
}

// NewWriter starts a chunk on w. offset is where the chunk begins in the log
// and is reported back through Info.
func NewWriter(w io.Writer, offset int64) *Writer {
	cw := &countingWriter{w: w}
	return &Writer{
		offset: offset,
		cw:     cw,
		zw:     gzip.NewWriter(cw),
		hash:   xxh3.New(),
	}
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	n, err := w.zw.Write(p)
	_, _ = w.hash.Write(p[:n])
	return n, err
}

// Close flushes the compressed stream and writes the member trailer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.zw.Close(); err != nil {
		return fmt.Errorf("close chunk at offset %d: %w", w.offset, err)
	}
	return nil
}

// Info describes the chunk written so far.
func (w *Writer) Info() Info {
	return Info{
		Offset: w.offset,
		Length: w.cw.n,
		Digest: w.hash.Sum64(),
	}
}
