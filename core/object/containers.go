package object

import (
	"sort"
	"strings"

	"github.com/benedoc-inc/pdfcmp/core/filter"
)

// Array is an ordered PDF array.
type Array struct {
	items []Object
}

// NewArray returns an array holding items.
func NewArray(items ...Object) *Array {
	return &Array{items: append([]Object(nil), items...)}
}

func (*Array) Kind() Kind { return KindArray }
func (*Array) isObject()  {}

// Len returns the number of elements; a nil array is empty.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.items)
}

// At returns element i, or nil when i is out of range.
func (a *Array) At(i int) Object {
	if a == nil || i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// Append adds items to the end of the array.
func (a *Array) Append(items ...Object) *Array {
	a.items = append(a.items, items...)
	return a
}

// Items returns the backing slice. Callers must not modify it.
func (a *Array) Items() []Object {
	if a == nil {
		return nil
	}
	return a.items
}

func (a *Array) String() string {
	parts := make([]string, 0, a.Len())
	for _, it := range a.Items() {
		parts = append(parts, short(it))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Dict is a PDF dictionary. Iteration order is the sorted key order.
type Dict struct {
	entries map[Name]Object
}

// NewDict returns an empty dictionary.
func NewDict() *Dict {
	return &Dict{entries: make(map[Name]Object)}
}

func (*Dict) Kind() Kind { return KindDictionary }
func (*Dict) isObject()  {}

// Get returns the value stored under key, or nil when absent.
func (d *Dict) Get(key Name) Object {
	if d == nil {
		return nil
	}
	return d.entries[key]
}

// Has reports whether key is present.
func (d *Dict) Has(key Name) bool {
	if d == nil {
		return false
	}
	_, ok := d.entries[key]
	return ok
}

// Set stores value under key. Storing nil or Null removes the key, since a
// null-valued entry is equivalent to an absent one.
func (d *Dict) Set(key Name, value Object) *Dict {
	if value == nil {
		delete(d.entries, key)
		return d
	}
	if _, isNull := value.(Null); isNull {
		delete(d.entries, key)
		return d
	}
	d.entries[key] = value
	return d
}

// Delete removes key.
func (d *Dict) Delete(key Name) {
	delete(d.entries, key)
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Keys returns the keys in canonical (sorted) order.
func (d *Dict) Keys() []Name {
	if d == nil {
		return nil
	}
	keys := make([]Name, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Name returns the name stored under key.
func (d *Dict) Name(key Name) (Name, bool) {
	n, ok := d.Get(key).(Name)
	return n, ok
}

// Int returns the integer stored under key.
func (d *Dict) Int(key Name) (int64, bool) {
	switch v := d.Get(key).(type) {
	case Integer:
		return int64(v), true
	case Real:
		return int64(v), true
	}
	return 0, false
}

// IsType reports whether /Type is the given name.
func (d *Dict) IsType(t Name) bool {
	n, ok := d.Name("Type")
	return ok && n == t
}

// Clone returns a shallow copy.
func (d *Dict) Clone() *Dict {
	c := NewDict()
	if d != nil {
		for k, v := range d.entries {
			c.entries[k] = v
		}
	}
	return c
}

func (d *Dict) String() string {
	var b strings.Builder
	b.WriteString("<<")
	for _, k := range d.Keys() {
		b.WriteString(k.String())
		b.WriteByte(' ')
		b.WriteString(short(d.entries[k]))
		b.WriteByte(' ')
	}
	b.WriteString(">>")
	return b.String()
}

// Stream is a dictionary followed by a payload. Data is the raw, still
// encoded payload as stored in the file.
type Stream struct {
	Dict *Dict
	Data []byte
}

// NewStream returns a stream with the given dictionary (nil means empty).
func NewStream(dict *Dict, data []byte) *Stream {
	if dict == nil {
		dict = NewDict()
	}
	return &Stream{Dict: dict, Data: data}
}

func (*Stream) Kind() Kind { return KindStream }
func (*Stream) isObject()  {}

// Filters returns the stream's filter chain in application order.
func (s *Stream) Filters() []Name {
	switch f := s.Dict.Get("Filter").(type) {
	case Name:
		return []Name{f}
	case *Array:
		var out []Name
		for _, it := range f.Items() {
			if n, ok := it.(Name); ok {
				out = append(out, n)
			}
		}
		return out
	}
	return nil
}

// Bytes returns the payload, decoded through the full filter chain when
// decode is true. Image codecs (DCT, JPX, JBIG2, CCITT) stop the chain and
// the remaining data is returned as is.
func (s *Stream) Bytes(decode bool) ([]byte, error) {
	if !decode {
		return s.Data, nil
	}
	data := s.Data
	for i, name := range s.Filters() {
		if filter.IsImageCodec(string(name)) {
			break
		}
		var err error
		data, err = filter.Decode(data, string(name), decodeParams(s.Dict.Get("DecodeParms"), i))
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// PrimaryFilter returns the first filter of the chain, if any.
func (s *Stream) PrimaryFilter() (Name, bool) {
	f := s.Filters()
	if len(f) == 0 {
		return "", false
	}
	return f[0], true
}

// DecodeWith decodes only the named filter, which must be the primary one.
// Parameters come from the first DecodeParms entry.
func (s *Stream) DecodeWith(name Name) ([]byte, error) {
	return filter.Decode(s.Data, string(name), decodeParams(s.Dict.Get("DecodeParms"), 0))
}

func decodeParams(o Object, index int) filter.Params {
	var d *Dict
	switch v := o.(type) {
	case *Dict:
		if index == 0 {
			d = v
		}
	case *Array:
		d, _ = v.At(index).(*Dict)
	}
	var p filter.Params
	if d == nil {
		return p
	}
	get := func(key Name, def int) int {
		if n, ok := d.Int(key); ok {
			return int(n)
		}
		return def
	}
	p.Predictor = get("Predictor", 1)
	p.Colors = get("Colors", 1)
	p.BitsPerComponent = get("BitsPerComponent", 8)
	p.Columns = get("Columns", 1)
	return p
}

func (s *Stream) String() string {
	return s.Dict.String() + " stream"
}

// short renders o on one line for diagnostics. Nested containers are elided.
func short(o Object) string {
	switch v := o.(type) {
	case nil:
		return "null"
	case *Array:
		return "[...]"
	case *Dict:
		return "<<...>>"
	case *Stream:
		return "<<...>> stream"
	case interface{ String() string }:
		return v.String()
	}
	return "?"
}

// Short renders o for use in difference messages.
func Short(o Object) string {
	switch v := o.(type) {
	case *Array:
		return v.String()
	case *Dict:
		return v.String()
	}
	return short(o)
}
