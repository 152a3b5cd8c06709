package chunk

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/gzip"
	"github.com/zeebo/xxh3"
)

var (
	ErrNoChunk = errors.New("no chunk in progress")
	ErrInChunk = errors.New("chunk already in progress")
	ErrClosed  = errors.New("chunk is closed")
)

const readerBufLen = 64 << 10

// countingReader tracks how many compressed bytes have been consumed.
// It implements io.ByteReader so the gzip decoder never reads past the end
// of a member.
type countingReader struct {
	br *bufio.Reader
	n  int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.br.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.br.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

// Reader gives sequential access to the chunks of a log.
type Reader struct {
	src     *countingReader
	zr      *gzip.Reader
	hash    *xxh3.Hasher
	start   int64
	inChunk bool
	closed  bool
	err     error
}

// NewReader returns a Reader over the log in r, starting at offset 0. Reads
// go through ReadAt, so the offset of an *os.File passed here is untouched.
func NewReader(r io.ReaderAt) *Reader {
	sr := io.NewSectionReader(r, 0, math.MaxInt64)
	return &Reader{
		src:  &countingReader{br: bufio.NewReaderSize(sr, readerBufLen)},
		hash: xxh3.New(),
	}
}

// AtEnd reports whether no further chunk follows. A read error other than
// io.EOF also ends the log; Err returns it.
func (r *Reader) AtEnd() bool {
	if r.closed || r.err != nil {
		return true
	}
	if r.inChunk {
		return false
	}
	if _, err := r.src.br.Peek(1); err != nil {
		if !errors.Is(err, io.EOF) {
			r.err = err
		}
		return true
	}
	return false
}

// Err returns the first non-EOF error seen while probing for the next chunk.
func (r *Reader) Err() error {
	return r.err
}

// Begin positions the reader at the start of the next chunk and reads its
// gzip header.
func (r *Reader) Begin() error {
	if r.closed {
		return ErrClosed
	}
	if r.inChunk {
		return ErrInChunk
	}
	r.start = r.src.n
	var err error
	if r.zr == nil {
		r.zr, err = gzip.NewReader(r.src)
	} else {
		err = r.zr.Reset(r.src)
	}
	if err != nil {
		return fmt.Errorf("chunk at offset %d: %w", r.start, err)
	}
	r.zr.Multistream(false)
	r.hash.Reset()
	r.inChunk = true
	return nil
}

// Offset returns the log offset of the current (or last) chunk.
func (r *Reader) Offset() int64 {
	return r.start
}

// Read reads decompressed bytes of the current chunk. It returns io.EOF at
// the end of the chunk.
func (r *Reader) Read(p []byte) (int, error) {
	if !r.inChunk {
		return 0, ErrNoChunk
	}
	n, err := r.zr.Read(p)
	_, _ = r.hash.Write(p[:n])
	return n, err
}

// End consumes whatever is left of the current chunk, checks the member
// trailer and returns the chunk's Info. The next call to Begin starts on the
// following member.
func (r *Reader) End() (Info, error) {
	if !r.inChunk {
		return Info{}, ErrNoChunk
	}
	_, err := io.Copy(io.Discard, r)
	r.inChunk = false
	if err != nil {
		return Info{}, fmt.Errorf("chunk at offset %d: %w", r.start, err)
	}
	return Info{
		Offset: r.start,
		Length: r.src.n - r.start,
		Digest: r.hash.Sum64(),
	}, nil
}

// Close releases the decoder. The underlying log is not closed.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.inChunk = false
	if r.zr != nil {
		return r.zr.Close()
	}
	return nil
}
