package stats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Value is a decoded JSON value. The concrete types are Number, String,
// Bool, Array, *Object and Null.
type Value interface {
	// String returns the textual form used as a metric value.
	String() string
	appendJSON(b []byte) []byte
}

// Number keeps the literal text of a JSON number so values are printed
// exactly as the firewall reported them.
type Number string

func (n Number) String() string { return string(n) }

// Float parses the number as a float64.
func (n Number) Float() (float64, error) { return strconv.ParseFloat(string(n), 64) }

func (n Number) appendJSON(b []byte) []byte { return append(b, string(n)...) }

type String string

func (s String) String() string { return string(s) }

func (s String) appendJSON(b []byte) []byte { return appendQuoted(b, string(s)) }

// appendQuoted appends s as a JSON string literal.
func appendQuoted(b []byte, s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return append(b, bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})...)
}

type Bool bool

func (v Bool) String() string { return strconv.FormatBool(bool(v)) }

func (v Bool) appendJSON(b []byte) []byte { return strconv.AppendBool(b, bool(v)) }

// Null stringifies to the empty string.
type Null struct{}

func (Null) String() string { return "" }

func (Null) appendJSON(b []byte) []byte { return append(b, "null"...) }

type Array []Value

// String renders the array as compact JSON.
func (a Array) String() string { return string(a.appendJSON(nil)) }

func (a Array) appendJSON(b []byte) []byte {
	b = append(b, '[')
	for i, v := range a {
		if i > 0 {
			b = append(b, ',')
		}
		b = v.appendJSON(b)
	}
	return append(b, ']')
}

// Member is a single key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// Object is a JSON object that remembers the order its members appeared in.
type Object struct {
	Members []Member
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	for _, m := range o.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Len returns the number of members.
func (o *Object) Len() int { return len(o.Members) }

// String renders the object as compact JSON.
func (o *Object) String() string { return string(o.appendJSON(nil)) }

func (o *Object) appendJSON(b []byte) []byte {
	b = append(b, '{')
	for i, m := range o.Members {
		if i > 0 {
			b = append(b, ',')
		}
		b = appendQuoted(b, m.Key)
		b = append(b, ':')
		b = m.Value.appendJSON(b)
	}
	return append(b, '}')
}

// set replaces an existing member in place or appends a new one.
func (o *Object) set(key string, v Value) {
	for i := range o.Members {
		if o.Members[i].Key == key {
			o.Members[i].Value = v
			return
		}
	}
	o.Members = append(o.Members, Member{Key: key, Value: v})
}

// ErrNotObject is returned by ParseObject when the document is valid JSON
// but not an object.
var ErrNotObject = errors.New("json value is not an object")

// Decode reads exactly one JSON value from r.
func Decode(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

// ParseObject decodes data, which must hold a JSON object.
func ParseObject(data []byte) (*Object, error) {
	v, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrNotObject, kind(v))
	}
	return obj, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null{}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func decodeObject(dec *json.Decoder) (*Object, error) {
	obj := &Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T, not string", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		obj.set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) (Array, error) {
	arr := Array{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", len(arr), err)
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

func kind(v Value) string {
	switch v.(type) {
	case Number:
		return "number"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Array:
		return "array"
	case *Object:
		return "object"
	case Null:
		return "null"
	}
	return strings.ToLower(fmt.Sprintf("%T", v))
}
