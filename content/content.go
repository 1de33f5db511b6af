// Package content holds the in-memory, mutable GGUF model that pipeline
// operators transform: an ordered metadata table and tensor table built
// by merging one or more scanned container files, with tensor payloads
// kept as lazily-materialized promises so an operator that only touches
// metadata never has to pay for a data copy.
package content

import (
	"fmt"
	"sync"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/ggufkit/ggufkit/container"
	"github.com/ggufkit/ggufkit/ggml"
)

// DuplicateMetaKeyError reports two input files defining the same
// metadata key after general.alignment/split.* keys are dropped.
type DuplicateMetaKeyError struct{ Key string }

func (e *DuplicateMetaKeyError) Error() string {
	return fmt.Sprintf("content: duplicate metadata key %q across input files", e.Key)
}

// DuplicateTensorError reports two input files defining the same
// tensor name.
type DuplicateTensorError struct{ Name string }

func (e *DuplicateTensorError) Error() string {
	return fmt.Sprintf("content: duplicate tensor %q across input files", e.Name)
}

// DataPromise is a tensor's payload: either a slice borrowed directly
// from a scanned input file, or a computation deferred until the data
// is actually needed (e.g. the output of a cast or merge), memoized on
// first access so repeated reads never recompute.
type DataPromise interface {
	Get() ([]byte, error)
}

// Borrowed wraps a byte slice that already exists in memory, typically
// a tensor's bytes straight out of a scanned container's Data region.
type Borrowed []byte

// Get implements DataPromise.
func (b Borrowed) Get() ([]byte, error) { return []byte(b), nil }

// Lazy wraps a computation that produces tensor bytes, run at most
// once; concurrent callers block on the first call rather than racing.
type Lazy struct {
	once sync.Once
	fn   func() ([]byte, error)
	val  []byte
	err  error
}

// NewLazy wraps fn as a memoized DataPromise.
func NewLazy(fn func() ([]byte, error)) *Lazy {
	return &Lazy{fn: fn}
}

// Get implements DataPromise.
func (l *Lazy) Get() ([]byte, error) {
	l.once.Do(func() { l.val, l.err = l.fn() })
	return l.val, l.err
}

// Tensor is a mutable tensor entry: type and shape plus a deferred
// handle to its payload bytes.
type Tensor struct {
	Type  ggml.GGmlType
	Shape []uint64
	Data  DataPromise
}

// Content is the mutable, in-memory GGUF model that pipeline operators
// read and rewrite. Both tables are insertion-ordered so output files
// preserve a deterministic, input-derived key/tensor order absent an
// operator like SortTensors that imposes its own.
type Content struct {
	Alignment uint64
	meta      *linkedhashmap.Map // string -> container metadata value (scalar or container.ArrayValue)
	tensors   *linkedhashmap.Map // string -> *Tensor
}

// New returns an empty Content with the default alignment.
func New() *Content {
	return &Content{
		Alignment: uint64(container.DefaultAlignment),
		meta:      linkedhashmap.New(),
		tensors:   linkedhashmap.New(),
	}
}

// FromFiles merges one or more already-scanned files into a single
// Content. general.alignment and split.* keys are dropped from each
// file's metadata (they describe the input shard, not the merged
// model); every other key and every tensor name must be unique across
// the whole input set.
func FromFiles(files []*container.File) (*Content, error) {
	c := New()
	for _, f := range files {
		if err := c.mergeFile(f); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Content) mergeFile(f *container.File) error {
	if a := uint64(f.Meta.Alignment()); a > c.Alignment {
		c.Alignment = a
	}

	for _, k := range f.Meta.Keys() {
		if k == "general.alignment" || hasSplitPrefix(k) {
			continue
		}
		v, _ := f.Meta.Get(k)
		if _, exists := c.meta.Get(k); exists {
			return &DuplicateMetaKeyError{Key: k}
		}
		c.meta.Put(k, v)
	}

	for _, info := range f.Tensors.List() {
		if _, exists := c.tensors.Get(info.Name); exists {
			return &DuplicateTensorError{Name: info.Name}
		}
		raw, err := f.TensorBytes(info.Name)
		if err != nil {
			return err
		}
		c.tensors.Put(info.Name, &Tensor{
			Type:  info.Type,
			Shape: append([]uint64(nil), info.Shape...),
			Data:  Borrowed(raw),
		})
	}
	return nil
}

func hasSplitPrefix(k string) bool {
	return len(k) >= len("split.") && k[:len("split.")] == "split."
}

// MetaGet returns the metadata value stored under key.
func (c *Content) MetaGet(key string) (any, bool) { return c.meta.Get(key) }

// MetaSet stores v under key.
func (c *Content) MetaSet(key string, v any) { c.meta.Put(key, v) }

// MetaDelete removes key.
func (c *Content) MetaDelete(key string) { c.meta.Remove(key) }

// MetaKeys returns every metadata key in table order.
func (c *Content) MetaKeys() []string {
	raw := c.meta.Keys()
	out := make([]string, len(raw))
	for i, k := range raw {
		out[i] = k.(string)
	}
	return out
}

// TensorGet returns the tensor entry for name.
func (c *Content) TensorGet(name string) (*Tensor, bool) {
	v, ok := c.tensors.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*Tensor), true
}

// TensorSet inserts or replaces the tensor entry for name.
func (c *Content) TensorSet(name string, t *Tensor) { c.tensors.Put(name, t) }

// TensorDelete removes name from the tensor table.
func (c *Content) TensorDelete(name string) { c.tensors.Remove(name) }

// TensorNames returns every tensor name in table order.
func (c *Content) TensorNames() []string {
	raw := c.tensors.Keys()
	out := make([]string, len(raw))
	for i, k := range raw {
		out[i] = k.(string)
	}
	return out
}

// Reorder replaces the tensor table's iteration order with names,
// which must be a permutation of the table's current keys (used by
// operator.SortTensors).
func (c *Content) Reorder(names []string) error {
	if len(names) != c.tensors.Size() {
		return fmt.Errorf("content: reorder given %d names, table has %d tensors", len(names), c.tensors.Size())
	}
	next := linkedhashmap.New()
	for _, name := range names {
		v, ok := c.tensors.Get(name)
		if !ok {
			return fmt.Errorf("content: reorder references unknown tensor %q", name)
		}
		next.Put(name, v)
	}
	c.tensors = next
	return nil
}
