package backup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/mailbackup/internal/payload"
)

// VerbApply is the only verb whose commands are indexed.
const VerbApply = "APPLY"

// maxToken bounds the timestamp and verb tokens.
const maxToken = 256

// Command is one record of the log.
type Command struct {
	Timestamp int64
	Verb      string
	Payload   payload.Item
}

// IsApply reports whether c carries the APPLY verb, in any case.
func (c Command) IsApply() bool {
	return strings.EqualFold(c.Verb, VerbApply)
}

// Canonical returns c with its verb and payload name upper-cased, the form
// in which commands are indexed.
func (c Command) Canonical() Command {
	c.Verb = cases.Upper(language.Und).String(c.Verb)
	c.Payload.Key = cases.Upper(language.Und).String(c.Payload.Key)
	return c
}

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)
}

// ParseCommand reads the next command from r.
//
// A leading line starting with '#' is skipped. It returns io.EOF when r holds
// no further command, and an error wrapping ErrMalformed when the record
// cannot be parsed. After ErrMalformed the reader's position is undefined and
// the rest of the stream should be dropped.
func ParseCommand(r *bufio.Reader) (Command, error) {
	c, err := r.Peek(1)
	if errors.Is(err, io.EOF) {
		return Command{}, io.EOF
	}
	if err != nil {
		return Command{}, fmt.Errorf("read command: %w", err)
	}
	if c[0] == '#' {
		if _, err := r.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return Command{}, io.EOF
			}
			return Command{}, fmt.Errorf("read command: %w", err)
		}
		if _, err := r.Peek(1); errors.Is(err, io.EOF) {
			return Command{}, io.EOF
		}
	}

	tsText, err := readToken(r)
	if err != nil {
		return Command{}, fmt.Errorf("timestamp: %w", err)
	}
	ts, err := strconv.ParseInt(tsText, 10, 64)
	if err != nil || tsText[0] == '+' {
		return Command{}, malformedf("timestamp %q", tsText)
	}

	verb, err := readToken(r)
	if err != nil {
		return Command{}, fmt.Errorf("verb: %w", err)
	}

	item, err := payload.ParseItem(r)
	if err != nil {
		if errors.Is(err, payload.ErrSyntax) {
			return Command{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return Command{}, fmt.Errorf("read command: %w", err)
	}

	if err := readEOL(r); err != nil {
		return Command{}, err
	}

	return Command{Timestamp: ts, Verb: verb, Payload: item}, nil
}

// readToken reads up to and including the next space and returns what came
// before it.
func readToken(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		c, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			return "", malformedf("unexpected end of input")
		}
		if err != nil {
			return "", err
		}
		switch c {
		case ' ':
			if b.Len() == 0 {
				return "", malformedf("empty token")
			}
			return b.String(), nil
		case '\r', '\n':
			return "", malformedf("unexpected end of line")
		}
		if b.Len() == maxToken {
			return "", malformedf("token longer than %d bytes", maxToken)
		}
		b.WriteByte(c)
	}
}

func readEOL(r *bufio.Reader) error {
	c, err := r.ReadByte()
	if err == nil && c == '\r' {
		c, err = r.ReadByte()
	}
	if errors.Is(err, io.EOF) {
		return malformedf("missing newline at end of record")
	}
	if err != nil {
		return fmt.Errorf("read command: %w", err)
	}
	if c != '\n' {
		return malformedf("expected newline, got %q", c)
	}
	return nil
}

// FormatCommand writes c to w in log form.
func FormatCommand(w io.Writer, c Command) error {
	if err := validToken(c.Verb); err != nil {
		return fmt.Errorf("verb: %w", err)
	}
	_, err := fmt.Fprintf(w, "%d %s %s\n", c.Timestamp, c.Verb, payload.FormatItem(c.Payload))
	return err
}

func validToken(s string) error {
	if s == "" {
		return malformedf("empty token")
	}
	if len(s) > maxToken {
		return malformedf("token longer than %d bytes", maxToken)
	}
	if strings.ContainsAny(s, " \r\n") {
		return malformedf("token %q contains whitespace", s)
	}
	return nil
}
