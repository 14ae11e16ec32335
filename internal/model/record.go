package model

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Record is an insertion-ordered mapping from field names to values. It is
// the shape of one uploaded invoice row and of every nested object in it.
type Record struct {
	keys   []string
	fields map[string]Value
}

// RecordSet is an ordered sequence of uploaded rows.
type RecordSet []*Record

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{fields: make(map[string]Value)}
}

// RecordOf builds a record from alternating key/value pairs. It panics on
// odd arguments and is intended for literals in tests and fixtures.
func RecordOf(kv ...any) *Record {
	if len(kv)%2 != 0 {
		panic("model: RecordOf requires key/value pairs")
	}
	r := NewRecord()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic("model: RecordOf keys must be strings")
		}
		r.Set(key, ValueOf(kv[i+1]))
	}
	return r
}

// ValueOf converts common Go literals into a Value.
func ValueOf(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case *Record:
		return ObjectValue(t)
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case []Value:
		return Array(t...)
	case []*Record:
		items := make([]Value, len(t))
		for i, r := range t {
			items[i] = ObjectValue(r)
		}
		return Array(items...)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = ValueOf(item)
		}
		return Array(items...)
	default:
		panic(eris.Errorf("model: unsupported literal %T", x))
	}
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns field names in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.fields[key]
	return v, ok
}

// Set stores v under key. Overwriting keeps the original position.
func (r *Record) Set(key string, v Value) {
	if r.fields == nil {
		r.fields = make(map[string]Value)
	}
	if _, exists := r.fields[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = v
}

// MarshalJSON writes fields in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, eris.Wrap(err, "model: marshal key")
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := r.fields[key].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	v, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	obj, ok := v.AsObject()
	if !ok {
		return eris.Errorf("model: record must be a JSON object, got %s", v.Kind())
	}
	*r = *obj
	return nil
}
