package container

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/ggufkit/ggufkit/bytesio"
	"github.com/ggufkit/ggufkit/ggml"
)

// TensorInfo is a tensor's descriptor as recorded in the file's tensor
// section: name, shape, element type, and the byte offset of its data
// relative to the start of the (aligned) data region.
type TensorInfo struct {
	Name   string
	Shape  []uint64
	Type   ggml.GGmlType
	Offset uint64
}

// NElements returns the product of Shape.
func (t TensorInfo) NElements() uint64 {
	var n uint64 = 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Size returns the raw byte length of t's data.
func (t TensorInfo) Size() (uint64, error) {
	return ggml.NBytes(t.Shape, t.Type)
}

// TensorIndex is the ordered collection of a file's tensor descriptors,
// keyed by name, preserving on-disk order.
type TensorIndex struct {
	m *linkedhashmap.Map
}

// NewTensorIndex returns an empty tensor index.
func NewTensorIndex() *TensorIndex {
	return &TensorIndex{m: linkedhashmap.New()}
}

// Get returns the descriptor for name, if present.
func (idx *TensorIndex) Get(name string) (TensorInfo, bool) {
	v, ok := idx.m.Get(name)
	if !ok {
		return TensorInfo{}, false
	}
	return v.(TensorInfo), true
}

// Put inserts or replaces the descriptor for t.Name.
func (idx *TensorIndex) Put(t TensorInfo) {
	idx.m.Put(t.Name, t)
}

// Names returns every tensor name in on-disk order.
func (idx *TensorIndex) Names() []string {
	raw := idx.m.Keys()
	names := make([]string, len(raw))
	for i, k := range raw {
		names[i] = k.(string)
	}
	return names
}

// List returns every descriptor in on-disk order.
func (idx *TensorIndex) List() []TensorInfo {
	raw := idx.m.Values()
	out := make([]TensorInfo, len(raw))
	for i, v := range raw {
		out[i] = v.(TensorInfo)
	}
	return out
}

// Len returns the number of tensors indexed.
func (idx *TensorIndex) Len() int { return idx.m.Size() }

// ScanTensorIndex reads count tensor descriptors from r, erroring on a
// duplicate name or an unrecognized ggml type tag.
func ScanTensorIndex(r *bytesio.Reader, count uint64) (*TensorIndex, error) {
	idx := NewTensorIndex()
	for i := uint64(0); i < count; i++ {
		name, err := r.ReadStr()
		if err != nil {
			return nil, err
		}
		if _, exists := idx.Get(name); exists {
			return nil, &DuplicateTensorNameError{Name: name}
		}
		nDims, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		if uint64(nDims)*8 > uint64(r.Len()) {
			return nil, bytesio.ErrEOS
		}
		shape := make([]uint64, nDims)
		for d := range shape {
			shape[d], err = r.ReadU64()
			if err != nil {
				return nil, err
			}
		}
		rawType, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		ty := ggml.GGmlType(rawType)
		if !ty.Valid() {
			return nil, &UnknownTensorTypeError{Name: name, Tag: rawType}
		}
		offset, err := r.ReadU64()
		if err != nil {
			return nil, err
		}
		idx.Put(TensorInfo{Name: name, Shape: shape, Type: ty, Offset: offset})
	}
	return idx, nil
}

// WriteTensorInfo writes a single tensor descriptor. Shape dimensions
// are written in the same order ScanTensorIndex reads them (Shape[0]
// first), the inverse of that scan.
func WriteTensorInfo(w *bytesio.Writer, t TensorInfo) error {
	if err := w.WriteStr(t.Name); err != nil {
		return err
	}
	if err := w.WriteU32(uint32(len(t.Shape))); err != nil {
		return err
	}
	for i := range t.Shape {
		if err := w.WriteU64(t.Shape[i]); err != nil {
			return err
		}
	}
	if err := w.WriteU32(uint32(t.Type)); err != nil {
		return err
	}
	return w.WriteU64(t.Offset)
}
