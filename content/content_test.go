package content

import (
	"bytes"
	"testing"

	"github.com/ggufkit/ggufkit/bytesio"
	"github.com/ggufkit/ggufkit/container"
	"github.com/ggufkit/ggufkit/ggml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFile(t *testing.T, arch string, tensorName string) *container.File {
	t.Helper()
	var buf bytes.Buffer
	w := bytesio.NewWriter(&buf)

	meta := container.NewMetaMap()
	if arch != "" {
		meta.Set("general.architecture", arch)
	}
	meta.Set("split.no", uint32(0))

	tensors := container.NewTensorIndex()
	tensors.Put(container.TensorInfo{Name: tensorName, Shape: []uint64{4}, Type: ggml.TypeF32, Offset: 0})

	require.NoError(t, container.WriteHeader(w, 1, uint64(meta.Len())))
	require.NoError(t, container.WriteMetaMap(w, meta))
	ti, _ := tensors.Get(tensorName)
	require.NoError(t, container.WriteTensorInfo(w, ti))
	require.NoError(t, w.WritePadding(32))
	require.NoError(t, w.WriteBytes(make([]byte, 16)))
	require.NoError(t, w.Flush())

	f, err := container.Scan(buf.Bytes())
	require.NoError(t, err)
	return f
}

func TestLazyMemoizes(t *testing.T) {
	calls := 0
	l := NewLazy(func() ([]byte, error) {
		calls++
		return []byte{1, 2, 3}, nil
	})
	b1, err := l.Get()
	require.NoError(t, err)
	b2, err := l.Get()
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
	assert.Equal(t, 1, calls)
}

func TestBorrowedGet(t *testing.T) {
	b := Borrowed([]byte{9, 8, 7})
	v, err := b.Get()
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7}, v)
}

func TestContentMetaAndTensorOrder(t *testing.T) {
	c := New()
	c.MetaSet("general.architecture", "llama")
	c.MetaSet("llama.block_count", uint32(4))
	assert.Equal(t, []string{"general.architecture", "llama.block_count"}, c.MetaKeys())

	c.TensorSet("b", &Tensor{Type: ggml.TypeF32, Shape: []uint64{1}, Data: Borrowed{}})
	c.TensorSet("a", &Tensor{Type: ggml.TypeF32, Shape: []uint64{1}, Data: Borrowed{}})
	assert.Equal(t, []string{"b", "a"}, c.TensorNames())

	require.NoError(t, c.Reorder([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, c.TensorNames())
}

func TestReorderRejectsNonPermutation(t *testing.T) {
	c := New()
	c.TensorSet("a", &Tensor{})
	err := c.Reorder([]string{"a", "b"})
	require.Error(t, err)
}

func TestFromFilesMergesAndDropsSplitKeys(t *testing.T) {
	f1 := buildFile(t, "llama", "blk.0.weight")
	f2 := buildFile(t, "", "blk.1.weight")

	c, err := FromFiles([]*container.File{f1, f2})
	require.NoError(t, err)

	_, ok := c.MetaGet("split.no")
	assert.False(t, ok)
	assert.Len(t, c.TensorNames(), 2)
}

func TestFromFilesDuplicateTensor(t *testing.T) {
	f1 := buildFile(t, "llama", "blk.0.weight")
	f2 := buildFile(t, "", "blk.0.weight")

	_, err := FromFiles([]*container.File{f1, f2})
	require.Error(t, err)
	var dup *DuplicateTensorError
	require.ErrorAs(t, err, &dup)
}
