package backup

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mailbackup/internal/payload"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Command
	}{
		{
			name: "simple",
			in:   "100 APPLY MAILBOX %(UNIQUEID u1)\n",
			want: Command{Timestamp: 100, Verb: "APPLY", Payload: payload.Item{Key: "MAILBOX", Value: payload.KVList{{Key: "UNIQUEID", Value: payload.Atom("u1")}}}},
		},
		{
			name: "crlf",
			in:   "101 apply MESSAGE (a b)\r\n",
			want: Command{Timestamp: 101, Verb: "apply", Payload: payload.Item{Key: "MESSAGE", Value: payload.List{payload.Atom("a"), payload.Atom("b")}}},
		},
		{
			name: "leading comment",
			in:   "# session 42 from replica\n-5 NOOP X NIL\n",
			want: Command{Timestamp: -5, Verb: "NOOP", Payload: payload.Item{Key: "X", Value: payload.Nil{}}},
		},
		{
			name: "literal spanning lines",
			in:   "7 APPLY SIEVE {6+}\r\nab\r\ncd\n",
			want: Command{Timestamp: 7, Verb: "APPLY", Payload: payload.Item{Key: "SIEVE", Value: payload.Atom("ab\r\ncd")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := reader(tt.in)
			got, err := ParseCommand(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			_, err = ParseCommand(r)
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestParseCommand_End(t *testing.T) {
	for _, in := range []string{"", "# only a comment\n", "# unterminated comment"} {
		_, err := ParseCommand(reader(in))
		assert.ErrorIs(t, err, io.EOF, "input %q", in)
	}
}

func TestParseCommand_Sequence(t *testing.T) {
	r := reader("1 APPLY A 1\n2 NOOP B 2\n3 APPLY C 3\n")

	var ts []int64
	for {
		cmd, err := ParseCommand(r)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		ts = append(ts, cmd.Timestamp)
	}
	assert.Equal(t, []int64{1, 2, 3}, ts)
}

func TestParseCommand_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"bad timestamp", "abc APPLY X 1\n"},
		{"signed timestamp", "+5 APPLY A 1\n"},
		{"timestamp overflow", "99999999999999999999 APPLY X 1\n"},
		{"missing verb", "100\n"},
		{"empty verb", "100  X 1\n"},
		{"truncated after verb", "100 APPLY"},
		{"missing newline", "100 APPLY X 1"},
		{"trailing junk", "100 APPLY X 1 junk\n"},
		{"bad payload", "100 APPLY X (a\n"},
		{"second comment", "# one\n# two\n100 APPLY X 1\n"},
		{"oversized token", strings.Repeat("9", maxToken+1) + " APPLY X 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCommand(reader(tt.in))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestCommand_Canonical(t *testing.T) {
	cmd := Command{Verb: "aPpLy", Payload: payload.Item{Key: "mailbox", Value: payload.Atom("user.alice")}}

	assert.True(t, cmd.IsApply())
	got := cmd.Canonical()
	assert.Equal(t, VerbApply, got.Verb)
	assert.Equal(t, "MAILBOX", got.Payload.Key)
	assert.Equal(t, payload.Atom("user.alice"), got.Payload.Value, "values keep their case")

	assert.False(t, Command{Verb: "APPLYX"}.IsApply())
	assert.False(t, Command{Verb: "NOOP"}.IsApply())
}

func TestFormatCommand_RoundTrip(t *testing.T) {
	cmds := []Command{
		{Timestamp: 1, Verb: "APPLY", Payload: payload.Item{Key: "MAILBOX", Value: payload.KVList{
			{Key: "UNIQUEID", Value: payload.Atom("u1")},
			{Key: "BODY", Value: payload.Atom("multi\r\nline")},
		}}},
		{Timestamp: 2, Verb: "GET", Payload: payload.Item{Key: "USER", Value: payload.Atom("alice")}},
	}

	var buf bytes.Buffer
	for _, c := range cmds {
		require.NoError(t, FormatCommand(&buf, c))
	}

	r := bufio.NewReader(&buf)
	for _, want := range cmds {
		got, err := ParseCommand(r)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCommand(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFormatCommand_InvalidVerb(t *testing.T) {
	for _, verb := range []string{"", "TWO WORDS", "LINE\n"} {
		var buf bytes.Buffer
		err := FormatCommand(&buf, Command{Verb: verb, Payload: payload.Item{Key: "X", Value: payload.Atom("1")}})
		assert.ErrorIs(t, err, ErrMalformed, "verb %q", verb)
		assert.Zero(t, buf.Len())
	}
}
