// Package payload implements the structured value carried by every replicated
// command: an arbitrarily nested mix of strings, ordered lists and ordered
// key/value lists, plus NIL and inline file blobs.
//
// Text form:
//
//	atom              user.alice.INBOX
//	quoted            "hello world"
//	literal           {5+}\r\nhello
//	nil               NIL
//	list              (a b "c d")
//	key/value list    %(UID 4 FLAGS (\Seen))
//	file              %{partition guid size}\r\n<size bytes>
//
// A command's payload is an Item: a key followed by a space and a value.
package payload

// Value is a sealed interface. Only Atom, Nil, List, KVList and File
// implement it.
type Value interface {
	payloadValue()
}

// Atom is a string value. It is written bare, quoted or as a literal
// depending on its content; the parsed form does not remember which.
type Atom string

func (Atom) payloadValue() {}

// Nil is the NIL value.
type Nil struct{}

func (Nil) payloadValue() {}

// List is an ordered list of values.
type List []Value

func (List) payloadValue() {}

// KVList is an ordered list of named values. Keys may repeat.
type KVList []Item

func (KVList) payloadValue() {}

// File is an inline message blob.
type File struct {
	Partition string
	GUID      string
	Data      []byte
}

func (File) payloadValue() {}

// Item is a named value.
type Item struct {
	Key   string
	Value Value
}

// Get returns the value of the first item named key.
func (kv KVList) Get(key string) (Value, bool) {
	for _, it := range kv {
		if it.Key == key {
			return it.Value, true
		}
	}
	return nil, false
}
