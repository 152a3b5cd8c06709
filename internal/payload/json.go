package payload

import (
	"strconv"

	"github.com/goccy/go-json"
)

// JSON rendering keeps key order: a KVList becomes an object whose members
// appear in list order, and an Item becomes a single-member object.

func (it Item) MarshalJSON() ([]byte, error) {
	return appendItemObject(nil, it)
}

func (a Atom) MarshalJSON() ([]byte, error)    { return appendValue(nil, a) }
func (n Nil) MarshalJSON() ([]byte, error)     { return appendValue(nil, n) }
func (l List) MarshalJSON() ([]byte, error)    { return appendValue(nil, l) }
func (kv KVList) MarshalJSON() ([]byte, error) { return appendValue(nil, kv) }
func (f File) MarshalJSON() ([]byte, error)    { return appendValue(nil, f) }

func appendItemObject(dst []byte, it Item) ([]byte, error) {
	dst = append(dst, '{')
	dst, err := appendMember(dst, it)
	if err != nil {
		return nil, err
	}
	return append(dst, '}'), nil
}

func appendMember(dst []byte, it Item) ([]byte, error) {
	key, err := json.Marshal(it.Key)
	if err != nil {
		return nil, err
	}
	dst = append(dst, key...)
	dst = append(dst, ':')
	return appendValue(dst, it.Value)
}

func appendValue(dst []byte, v Value) ([]byte, error) {
	switch v := v.(type) {
	case nil, Nil:
		return append(dst, "null"...), nil
	case Atom:
		s, err := json.Marshal(string(v))
		if err != nil {
			return nil, err
		}
		return append(dst, s...), nil
	case List:
		dst = append(dst, '[')
		for i, e := range v {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			if dst, err = appendValue(dst, e); err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	case KVList:
		dst = append(dst, '{')
		for i, it := range v {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			if dst, err = appendMember(dst, it); err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil
	case File:
		part, err := json.Marshal(v.Partition)
		if err != nil {
			return nil, err
		}
		guid, err := json.Marshal(v.GUID)
		if err != nil {
			return nil, err
		}
		dst = append(dst, `{"partition":`...)
		dst = append(dst, part...)
		dst = append(dst, `,"guid":`...)
		dst = append(dst, guid...)
		dst = append(dst, `,"size":`...)
		dst = strconv.AppendInt(dst, int64(len(v.Data)), 10)
		return append(dst, '}'), nil
	}
	return dst, nil
}
