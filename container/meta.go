package container

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/ggufkit/ggufkit/bytesio"
	"github.com/ggufkit/ggufkit/ggml"
)

// ArrayValue is a homogeneous GGUF metadata array: every element shares
// Elem's scalar type. Nested arrays are not represented, matching every
// known GGUF producer and reader.
type ArrayValue struct {
	Elem   ggml.MetaValueType
	Values []any
}

// MetaMap is the ordered key-value metadata table of a GGUF file.
// Iteration order matches on-disk order, backed by an insertion-ordered
// map so round-tripping a file preserves its key order.
type MetaMap struct {
	m *linkedhashmap.Map
}

// NewMetaMap returns an empty, insertion-ordered metadata table.
func NewMetaMap() *MetaMap {
	return &MetaMap{m: linkedhashmap.New()}
}

// Get returns the value stored under key, if any.
func (m *MetaMap) Get(key string) (any, bool) {
	return m.m.Get(key)
}

// Set stores v under key, overwriting any previous value but preserving
// its original insertion position if key already existed.
func (m *MetaMap) Set(key string, v any) {
	m.m.Put(key, v)
}

// Delete removes key, if present.
func (m *MetaMap) Delete(key string) {
	m.m.Remove(key)
}

// Keys returns every key in insertion order.
func (m *MetaMap) Keys() []string {
	raw := m.m.Keys()
	keys := make([]string, len(raw))
	for i, k := range raw {
		keys[i] = k.(string)
	}
	return keys
}

// Len returns the number of metadata entries.
func (m *MetaMap) Len() int { return m.m.Size() }

// Alignment returns the file's general.alignment value, or
// DefaultAlignment if absent or not a u32.
func (m *MetaMap) Alignment() uint32 {
	v, ok := m.Get("general.alignment")
	if !ok {
		return DefaultAlignment
	}
	a, ok := v.(uint32)
	if !ok {
		return DefaultAlignment
	}
	return a
}

// ScanMetaMap reads count key-value entries from r, in file order,
// erroring on a duplicate key or an unrecognized type tag.
func ScanMetaMap(r *bytesio.Reader, count uint64) (*MetaMap, error) {
	m := NewMetaMap()
	for i := uint64(0); i < count; i++ {
		key, err := r.ReadStr()
		if err != nil {
			return nil, err
		}
		if _, exists := m.Get(key); exists {
			return nil, &DuplicateKeyError{Key: key}
		}
		v, err := readMetaValue(r, key)
		if err != nil {
			return nil, err
		}
		m.Set(key, v)
	}
	return m, nil
}

func readMetaValueScalar(r *bytesio.Reader, tag ggml.MetaValueType, key string) (any, error) {
	switch tag {
	case ggml.MetaU8:
		return r.ReadU8()
	case ggml.MetaI8:
		return r.ReadI8()
	case ggml.MetaU16:
		return r.ReadU16()
	case ggml.MetaI16:
		return r.ReadI16()
	case ggml.MetaU32:
		return r.ReadU32()
	case ggml.MetaI32:
		return r.ReadI32()
	case ggml.MetaF32:
		return r.ReadF32()
	case ggml.MetaBool:
		return r.ReadBool()
	case ggml.MetaString:
		return r.ReadStr()
	case ggml.MetaU64:
		return r.ReadU64()
	case ggml.MetaI64:
		return r.ReadI64()
	case ggml.MetaF64:
		return r.ReadF64()
	default:
		return nil, &UnknownMetaTypeError{Key: key, Tag: uint32(tag)}
	}
}

func readMetaValue(r *bytesio.Reader, key string) (any, error) {
	rawTag, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	tag := ggml.MetaValueType(rawTag)
	if tag == ggml.MetaArray {
		return readMetaArray(r, key)
	}
	if !tag.Valid() {
		return nil, &UnknownMetaTypeError{Key: key, Tag: rawTag}
	}
	return readMetaValueScalar(r, tag, key)
}

func readMetaArray(r *bytesio.Reader, key string) (ArrayValue, error) {
	rawElem, err := r.ReadU32()
	if err != nil {
		return ArrayValue{}, err
	}
	elem := ggml.MetaValueType(rawElem)
	if !elem.Valid() {
		return ArrayValue{}, &UnknownMetaTypeError{Key: key, Tag: rawElem}
	}
	n, err := r.ReadU64()
	if err != nil {
		return ArrayValue{}, err
	}
	if n > uint64(r.Len()) {
		return ArrayValue{}, bytesio.ErrEOS // every element takes at least one byte
	}
	values := make([]any, n)
	for i := uint64(0); i < n; i++ {
		v, err := readMetaValueScalar(r, elem, key)
		if err != nil {
			return ArrayValue{}, err
		}
		values[i] = v
	}
	return ArrayValue{Elem: elem, Values: values}, nil
}

// WriteMetaMap writes every entry of m to w in m's iteration order.
func WriteMetaMap(w *bytesio.Writer, m *MetaMap) error {
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		if err := w.WriteStr(k); err != nil {
			return err
		}
		if err := writeMetaValue(w, v); err != nil {
			return err
		}
	}
	return nil
}

func writeMetaValue(w *bytesio.Writer, v any) error {
	switch val := v.(type) {
	case uint8:
		return writeTaggedScalar(w, ggml.MetaU8, func() error { return w.WriteU8(val) })
	case int8:
		return writeTaggedScalar(w, ggml.MetaI8, func() error { return w.WriteI8(val) })
	case uint16:
		return writeTaggedScalar(w, ggml.MetaU16, func() error { return w.WriteU16(val) })
	case int16:
		return writeTaggedScalar(w, ggml.MetaI16, func() error { return w.WriteI16(val) })
	case uint32:
		return writeTaggedScalar(w, ggml.MetaU32, func() error { return w.WriteU32(val) })
	case int32:
		return writeTaggedScalar(w, ggml.MetaI32, func() error { return w.WriteI32(val) })
	case float32:
		return writeTaggedScalar(w, ggml.MetaF32, func() error { return w.WriteF32(val) })
	case bool:
		return writeTaggedScalar(w, ggml.MetaBool, func() error { return w.WriteBool(val) })
	case string:
		return writeTaggedScalar(w, ggml.MetaString, func() error { return w.WriteStr(val) })
	case uint64:
		return writeTaggedScalar(w, ggml.MetaU64, func() error { return w.WriteU64(val) })
	case int64:
		return writeTaggedScalar(w, ggml.MetaI64, func() error { return w.WriteI64(val) })
	case float64:
		return writeTaggedScalar(w, ggml.MetaF64, func() error { return w.WriteF64(val) })
	case ArrayValue:
		return writeMetaArray(w, val)
	default:
		return &UnknownMetaTypeError{Tag: 0xffffffff}
	}
}

func writeTaggedScalar(w *bytesio.Writer, tag ggml.MetaValueType, write func() error) error {
	if err := w.WriteU32(uint32(tag)); err != nil {
		return err
	}
	return write()
}

func writeMetaArray(w *bytesio.Writer, a ArrayValue) error {
	if err := w.WriteU32(uint32(ggml.MetaArray)); err != nil {
		return err
	}
	if err := w.WriteU32(uint32(a.Elem)); err != nil {
		return err
	}
	if err := w.WriteU64(uint64(len(a.Values))); err != nil {
		return err
	}
	for _, v := range a.Values {
		if err := writeScalarBody(w, a.Elem, v); err != nil {
			return err
		}
	}
	return nil
}

func writeScalarBody(w *bytesio.Writer, tag ggml.MetaValueType, v any) error {
	switch tag {
	case ggml.MetaU8:
		return w.WriteU8(v.(uint8))
	case ggml.MetaI8:
		return w.WriteI8(v.(int8))
	case ggml.MetaU16:
		return w.WriteU16(v.(uint16))
	case ggml.MetaI16:
		return w.WriteI16(v.(int16))
	case ggml.MetaU32:
		return w.WriteU32(v.(uint32))
	case ggml.MetaI32:
		return w.WriteI32(v.(int32))
	case ggml.MetaF32:
		return w.WriteF32(v.(float32))
	case ggml.MetaBool:
		return w.WriteBool(v.(bool))
	case ggml.MetaString:
		return w.WriteStr(v.(string))
	case ggml.MetaU64:
		return w.WriteU64(v.(uint64))
	case ggml.MetaI64:
		return w.WriteI64(v.(int64))
	case ggml.MetaF64:
		return w.WriteF64(v.(float64))
	default:
		return &UnknownMetaTypeError{Tag: uint32(tag)}
	}
}
