package payload

import (
	"bufio"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mailboxItem() Item {
	return Item{Key: "MAILBOX", Value: KVList{
		{Key: "UNIQUEID", Value: Atom("8a3c")},
		{Key: "MBOXNAME", Value: Atom("user.alice.INBOX")},
		{Key: "FLAGS", Value: List{Atom(`\Seen`), Atom(`\Flagged`)}},
		{Key: "SUBJECT", Value: Atom("hello world")},
		{Key: "EMPTY", Value: Atom("")},
		{Key: "ANNOT", Value: Nil{}},
		{Key: "BODY", Value: Atom("line1\r\nline2")},
		{Key: "LITERALNIL", Value: Atom("NIL")},
		{Key: "RECORD", Value: List{
			KVList{{Key: "UID", Value: Atom("1")}},
			KVList{},
			List{},
		}},
	}}
}

func TestParseItem(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Item
	}{
		{"atom", "UID 42", Item{Key: "UID", Value: Atom("42")}},
		{"nil", "ANNOT NIL", Item{Key: "ANNOT", Value: Nil{}}},
		{"quoted nil is a string", `ANNOT "NIL"`, Item{Key: "ANNOT", Value: Atom("NIL")}},
		{"quoted escapes", `S "a \"b\" \\c"`, Item{Key: "S", Value: Atom(`a "b" \c`)}},
		{"literal", "S {5+}\r\nhello", Item{Key: "S", Value: Atom("hello")}},
		{"literal without plus and bare LF", "S {2}\nhi", Item{Key: "S", Value: Atom("hi")}},
		{"empty list", "L ()", Item{Key: "L", Value: List{}}},
		{"flags", `FLAGS (\Seen \Answered)`, Item{Key: "FLAGS", Value: List{Atom(`\Seen`), Atom(`\Answered`)}}},
		{"empty kvlist", "K %()", Item{Key: "K", Value: KVList{}}},
		{"nested", "MAILBOX %(UID 1 RECORD (%(GUID g1) %(GUID g2)))", Item{Key: "MAILBOX", Value: KVList{
			{Key: "UID", Value: Atom("1")},
			{Key: "RECORD", Value: List{
				KVList{{Key: "GUID", Value: Atom("g1")}},
				KVList{{Key: "GUID", Value: Atom("g2")}},
			}},
		}}},
		{"file", "MESSAGE %{default 1a2b 3}\r\nabc", Item{Key: "MESSAGE", Value: File{Partition: "default", GUID: "1a2b", Data: []byte("abc")}}},
		{"quoted key", `"my key" v`, Item{Key: "my key", Value: Atom("v")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseItemString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseItem_LeavesTerminatorUnread(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("MAILBOX %(UID 1)\r\nnext"))
	it, err := ParseItem(r)
	require.NoError(t, err)
	assert.Equal(t, "MAILBOX", it.Key)

	rest, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "\r\n", rest)
}

func TestParseItem_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"key only", "UID"},
		{"missing value", "UID "},
		{"unclosed list", "L (a b"},
		{"bad separator", "L (a\tb)"},
		{"unclosed kvlist", "K %(A 1"},
		{"kvlist key without value", "K %(A)"},
		{"unknown percent form", "K %x"},
		{"unterminated quote", `S "abc`},
		{"newline in quote", "S \"a\nb\""},
		{"bad literal size", "S {x}\r\nabc"},
		{"truncated literal", "S {10}\r\nabc"},
		{"literal without newline", "S {3}abc"},
		{"bad file header", "F %{onlyone 3}\r\nabc"},
		{"truncated file", "F %{p g 9}\r\nabc"},
		{"trailing data", "UID 1 2"},
		{"list as key", "(a) b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseItemString(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestParseValue_DepthLimit(t *testing.T) {
	deep := strings.Repeat("(", MaxDepth+2) + strings.Repeat(")", MaxDepth+2)
	_, err := ParseValue(bufio.NewReader(strings.NewReader(deep)))
	assert.ErrorIs(t, err, ErrSyntax)

	ok := strings.Repeat("(", MaxDepth) + strings.Repeat(")", MaxDepth)
	_, err = ParseValue(bufio.NewReader(strings.NewReader(ok)))
	assert.NoError(t, err)
}

func TestFormatItem_RoundTrip(t *testing.T) {
	items := []Item{
		mailboxItem(),
		{Key: "MESSAGE", Value: List{File{Partition: "default", GUID: "ff00", Data: []byte("From: a\r\n\r\nbody")}}},
		{Key: "odd key", Value: Atom("{not a literal")},
		{Key: "PCT", Value: Atom("%notkv")},
		{Key: "UTF8", Value: Atom("grüße")},
	}

	for _, it := range items {
		t.Run(it.Key, func(t *testing.T) {
			text := FormatItem(it)
			got, err := ParseItemString(text)
			require.NoError(t, err, "text: %q", text)
			assert.Equal(t, it, got)
		})
	}
}

func TestFormat_NilInterface(t *testing.T) {
	assert.Equal(t, "NIL", Format(nil))
	assert.Equal(t, "X NIL", FormatItem(Item{Key: "X"}))
}

func TestKVList_Get(t *testing.T) {
	kv := mailboxItem().Value.(KVList)

	v, ok := kv.Get("MBOXNAME")
	require.True(t, ok)
	assert.Equal(t, Atom("user.alice.INBOX"), v)

	_, ok = kv.Get("MISSING")
	assert.False(t, ok)
}

func TestFormatItem_Golden(t *testing.T) {
	g := goldie.New(t)
	g.Assert(t, "mailbox_text", []byte(FormatItem(mailboxItem())))
}

func TestMarshalJSON_Golden(t *testing.T) {
	data, err := json.Marshal(mailboxItem())
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "mailbox_json", data)
}

func TestMarshalJSON_File(t *testing.T) {
	data, err := json.Marshal(File{Partition: "default", GUID: "ff00", Data: []byte("abcd")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"partition":"default","guid":"ff00","size":4}`, string(data))
}
