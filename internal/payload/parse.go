package payload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// MaxDepth bounds list nesting.
	MaxDepth = 64
	// MaxLiteral bounds the size of a single literal or file blob.
	MaxLiteral = 64 << 20
)

// ErrSyntax marks malformed payload text.
var ErrSyntax = errors.New("payload syntax error")

func syntaxErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrSyntax}, args...)...)
}

// readByte is ReadByte with EOF reported as a syntax error: every caller is
// in the middle of a value.
func readByte(r *bufio.Reader) (byte, error) {
	c, err := r.ReadByte()
	if errors.Is(err, io.EOF) {
		return 0, syntaxErrorf("unexpected end of input")
	}
	return c, err
}

func peekByte(r *bufio.Reader) (byte, error) {
	b, err := r.Peek(1)
	if errors.Is(err, io.EOF) {
		return 0, syntaxErrorf("unexpected end of input")
	}
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func expect(r *bufio.Reader, want byte) error {
	c, err := readByte(r)
	if err != nil {
		return err
	}
	if c != want {
		return syntaxErrorf("expected %q, got %q", want, c)
	}
	return nil
}

// ParseItem reads "key SP value" from r. The byte following the value, the
// record terminator in a command, is left unread.
func ParseItem(r *bufio.Reader) (Item, error) {
	return parseItem(r, 0)
}

// ParseValue reads a single value from r.
func ParseValue(r *bufio.Reader) (Value, error) {
	return parseValue(r, 0)
}

// ParseItemString parses s, which must hold exactly one item.
func ParseItemString(s string) (Item, error) {
	r := bufio.NewReader(strings.NewReader(s))
	it, err := ParseItem(r)
	if err != nil {
		return Item{}, err
	}
	if _, err := r.Peek(1); !errors.Is(err, io.EOF) {
		return Item{}, syntaxErrorf("trailing data after item")
	}
	return it, nil
}

func parseItem(r *bufio.Reader, depth int) (Item, error) {
	key, _, err := parseString(r)
	if err != nil {
		return Item{}, fmt.Errorf("key: %w", err)
	}
	if err := expect(r, ' '); err != nil {
		return Item{}, fmt.Errorf("after key %q: %w", key, err)
	}
	v, err := parseValue(r, depth)
	if err != nil {
		return Item{}, fmt.Errorf("value of %q: %w", key, err)
	}
	return Item{Key: key, Value: v}, nil
}

func parseValue(r *bufio.Reader, depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, syntaxErrorf("nesting deeper than %d", MaxDepth)
	}
	c, err := peekByte(r)
	if err != nil {
		return nil, err
	}
	switch c {
	case '(':
		_, _ = r.ReadByte()
		return parseList(r, depth+1)
	case '%':
		_, _ = r.ReadByte()
		c, err := readByte(r)
		if err != nil {
			return nil, err
		}
		switch c {
		case '(':
			return parseKVList(r, depth+1)
		case '{':
			return parseFile(r)
		}
		return nil, syntaxErrorf("unexpected %q after '%%'", c)
	}
	s, bare, err := parseString(r)
	if err != nil {
		return nil, err
	}
	if bare && s == "NIL" {
		return Nil{}, nil
	}
	return Atom(s), nil
}

// endOfElement consumes the separator after a list element. It reports
// whether the list was closed.
func endOfElement(r *bufio.Reader) (bool, error) {
	c, err := readByte(r)
	if err != nil {
		return false, err
	}
	switch c {
	case ')':
		return true, nil
	case ' ':
		return false, nil
	}
	return false, syntaxErrorf("expected ' ' or ')' in list, got %q", c)
}

func parseList(r *bufio.Reader, depth int) (Value, error) {
	list := List{}
	if c, err := peekByte(r); err != nil {
		return nil, err
	} else if c == ')' {
		_, _ = r.ReadByte()
		return list, nil
	}
	for {
		v, err := parseValue(r, depth)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
		closed, err := endOfElement(r)
		if err != nil {
			return nil, err
		}
		if closed {
			return list, nil
		}
	}
}

func parseKVList(r *bufio.Reader, depth int) (Value, error) {
	kv := KVList{}
	if c, err := peekByte(r); err != nil {
		return nil, err
	} else if c == ')' {
		_, _ = r.ReadByte()
		return kv, nil
	}
	for {
		it, err := parseItem(r, depth)
		if err != nil {
			return nil, err
		}
		kv = append(kv, it)
		closed, err := endOfElement(r)
		if err != nil {
			return nil, err
		}
		if closed {
			return kv, nil
		}
	}
}

// parseFile reads the remainder of "%{partition guid size}\r\n<data>".
func parseFile(r *bufio.Reader) (Value, error) {
	head, err := r.ReadString('}')
	if errors.Is(err, io.EOF) {
		return nil, syntaxErrorf("unterminated file header")
	}
	if err != nil {
		return nil, err
	}
	fields := strings.Split(strings.TrimSuffix(head, "}"), " ")
	if len(fields) != 3 || fields[0] == "" || fields[1] == "" {
		return nil, syntaxErrorf("file header %q", head)
	}
	size, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || size < 0 || size > MaxLiteral {
		return nil, syntaxErrorf("file size %q", fields[2])
	}
	if err := literalNewline(r); err != nil {
		return nil, err
	}
	data, err := readN(r, size)
	if err != nil {
		return nil, err
	}
	return File{Partition: fields[0], GUID: fields[1], Data: data}, nil
}

// parseString reads an atom, quoted string or literal. bare is true for an
// atom, so callers can tell NIL from "NIL".
func parseString(r *bufio.Reader) (s string, bare bool, err error) {
	c, err := peekByte(r)
	if err != nil {
		return "", false, err
	}
	switch c {
	case '"':
		_, _ = r.ReadByte()
		s, err = parseQuoted(r)
		return s, false, err
	case '{':
		_, _ = r.ReadByte()
		s, err = parseLiteral(r)
		return s, false, err
	}
	s, err = parseAtom(r)
	return s, true, err
}

func isAtomDelimiter(c byte) bool {
	switch c {
	case ' ', '(', ')', '"', '\r', '\n':
		return true
	}
	return c < 0x20 || c == 0x7f
}

func parseAtom(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		buf, err := r.Peek(1)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if isAtomDelimiter(buf[0]) {
			break
		}
		_, _ = r.ReadByte()
		b.WriteByte(buf[0])
	}
	if b.Len() == 0 {
		c, err := peekByte(r)
		if err != nil {
			return "", err
		}
		return "", syntaxErrorf("expected atom, got %q", c)
	}
	return b.String(), nil
}

func parseQuoted(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		c, err := readByte(r)
		if err != nil {
			return "", err
		}
		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			c, err = readByte(r)
			if err != nil {
				return "", err
			}
		case '\r', '\n':
			return "", syntaxErrorf("newline in quoted string")
		}
		b.WriteByte(c)
	}
}

// parseLiteral reads the remainder of "{n}\r\n<n bytes>" or "{n+}\r\n...".
func parseLiteral(r *bufio.Reader) (string, error) {
	head, err := r.ReadString('}')
	if errors.Is(err, io.EOF) {
		return "", syntaxErrorf("unterminated literal header")
	}
	if err != nil {
		return "", err
	}
	digits := strings.TrimSuffix(strings.TrimSuffix(head, "}"), "+")
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 || n > MaxLiteral {
		return "", syntaxErrorf("literal size %q", head)
	}
	if err := literalNewline(r); err != nil {
		return "", err
	}
	data, err := readN(r, n)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// literalNewline consumes the CRLF (or bare LF) that introduces literal data.
func literalNewline(r *bufio.Reader) error {
	c, err := readByte(r)
	if err != nil {
		return err
	}
	if c == '\r' {
		if c, err = readByte(r); err != nil {
			return err
		}
	}
	if c != '\n' {
		return syntaxErrorf("expected newline before literal data, got %q", c)
	}
	return nil
}

func readN(r *bufio.Reader, n int64) ([]byte, error) {
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, syntaxErrorf("literal truncated")
		}
		return nil, err
	}
	return data, nil
}
