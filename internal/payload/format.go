package payload

import (
	"strconv"
	"strings"
)

// FormatItem returns the text form of it.
func FormatItem(it Item) string {
	var b strings.Builder
	writeItem(&b, it)
	return b.String()
}

// Format returns the text form of v.
func Format(v Value) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

func (it Item) String() string { return FormatItem(it) }

func writeItem(b *strings.Builder, it Item) {
	writeString(b, it.Key)
	b.WriteByte(' ')
	writeValue(b, it.Value)
}

func writeValue(b *strings.Builder, v Value) {
	switch v := v.(type) {
	case nil, Nil:
		b.WriteString("NIL")
	case Atom:
		if v == "NIL" {
			writeQuoted(b, string(v))
			return
		}
		writeString(b, string(v))
	case List:
		b.WriteByte('(')
		for i, e := range v {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeValue(b, e)
		}
		b.WriteByte(')')
	case KVList:
		b.WriteString("%(")
		for i, it := range v {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeItem(b, it)
		}
		b.WriteByte(')')
	case File:
		b.WriteString("%{")
		b.WriteString(v.Partition)
		b.WriteByte(' ')
		b.WriteString(v.GUID)
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(len(v.Data)))
		b.WriteString("}\r\n")
		b.Write(v.Data)
	}
}

func writeString(b *strings.Builder, s string) {
	switch {
	case isAtom(s):
		b.WriteString(s)
	case isQuotable(s):
		writeQuoted(b, s)
	default:
		b.WriteByte('{')
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteString("+}\r\n")
		b.WriteString(s)
	}
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
}

// isAtom reports whether s survives a round trip written bare.
func isAtom(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '{', '%':
		return false
	}
	for i := 0; i < len(s); i++ {
		if isAtomDelimiter(s[i]) || s[i] > 0x7e {
			return false
		}
	}
	return true
}

func isQuotable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '\r' || s[i] == '\n' || s[i] == 0 {
			return false
		}
	}
	return true
}
