package operator

import (
	"strings"
	"testing"

	"github.com/ggufkit/ggufkit/content"
	"github.com/ggufkit/ggufkit/ggml"
	"github.com/ggufkit/ggufkit/quant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f32Bytes(t *testing.T, row []float32) []byte {
	t.Helper()
	b, err := quant.Quantize(ggml.TypeF32, row)
	require.NoError(t, err)
	return b
}

func newTestContent(t *testing.T) *content.Content {
	t.Helper()
	c := content.New()
	c.MetaSet("general.architecture", "llama")

	q := make([]float32, 4*4)
	k := make([]float32, 4*4)
	v := make([]float32, 4*4)
	for i := range q {
		q[i], k[i], v[i] = float32(i), float32(i+1), float32(i+2)
	}
	c.TensorSet("blk.0.attn_q.weight", &content.Tensor{Type: ggml.TypeF32, Shape: []uint64{4, 4}, Data: content.Borrowed(f32Bytes(t, q))})
	c.TensorSet("blk.0.attn_k.weight", &content.Tensor{Type: ggml.TypeF32, Shape: []uint64{4, 4}, Data: content.Borrowed(f32Bytes(t, k))})
	c.TensorSet("blk.0.attn_v.weight", &content.Tensor{Type: ggml.TypeF32, Shape: []uint64{4, 4}, Data: content.Borrowed(f32Bytes(t, v))})
	c.TensorSet("token_embd.weight", &content.Tensor{Type: ggml.TypeF32, Shape: []uint64{4, 4}, Data: content.Borrowed(f32Bytes(t, q))})
	c.TensorSet("output_norm.weight", &content.Tensor{Type: ggml.TypeF32, Shape: []uint64{4}, Data: content.Borrowed(f32Bytes(t, q[:4]))})
	return c
}

func TestFilterTensor(t *testing.T) {
	c := newTestContent(t)
	FilterTensor(c, func(name string) bool { return !strings.Contains(name, "attn_k") })
	_, ok := c.TensorGet("blk.0.attn_k.weight")
	assert.False(t, ok)
	_, ok = c.TensorGet("blk.0.attn_q.weight")
	assert.True(t, ok)
}

func TestMergeLinearRoundTrip(t *testing.T) {
	c := newTestContent(t)
	require.False(t, IsLinearMerged(c))

	require.NoError(t, MergeLinear(c, true))
	require.True(t, IsLinearMerged(c))
	merged, ok := c.TensorGet("blk.0.attn_qkv.weight")
	require.True(t, ok)
	assert.Equal(t, []uint64{4, 12}, merged.Shape)

	require.NoError(t, MergeLinear(c, false))
	require.False(t, IsLinearMerged(c))

	q, ok := c.TensorGet("blk.0.attn_q.weight")
	require.True(t, ok)
	qBytes, err := q.Data.Get()
	require.NoError(t, err)
	qFloats, err := quant.Dequantize(ggml.TypeF32, qBytes)
	require.NoError(t, err)
	assert.Equal(t, float32(0), qFloats[0])
}

func TestMergeLinearNoop(t *testing.T) {
	c := newTestContent(t)
	require.NoError(t, MergeLinear(c, false)) // already split
	_, ok := c.TensorGet("blk.0.attn_q.weight")
	assert.True(t, ok)
}

func TestCastF32ToQ8_0(t *testing.T) {
	c := content.New()
	c.MetaSet("general.architecture", "llama")
	row := make([]float32, 32)
	for i := range row {
		row[i] = float32(i)
	}
	c.TensorSet("blk.0.attn_q.weight", &content.Tensor{Type: ggml.TypeF32, Shape: []uint64{32, 1}, Data: content.Borrowed(f32Bytes(t, row))})

	plan := CastPlan{Mat: ggml.TypeQ8_0, HasMat: true}
	require.NoError(t, Cast(c, plan))

	tn, ok := c.TensorGet("blk.0.attn_q.weight")
	require.True(t, ok)
	assert.Equal(t, ggml.TypeQ8_0, tn.Type)
	raw, err := tn.Data.Get()
	require.NoError(t, err)
	layout, ok := ggml.TypeQ8_0.Layout()
	require.True(t, ok)
	assert.Len(t, raw, layout.BlockBytes)
}

func TestSetArchRenamesPrefixedKeys(t *testing.T) {
	c := newTestContent(t)
	c.MetaSet("llama.block_count", uint32(1))
	require.NoError(t, SetArch(c, "minicpm"))

	_, ok := c.MetaGet("llama.block_count")
	assert.False(t, ok)
	v, ok := c.MetaGet("minicpm.block_count")
	require.True(t, ok)
	assert.Equal(t, uint32(1), v)

	arch, _ := c.MetaGet("general.architecture")
	assert.Equal(t, "minicpm", arch)
}

func TestDistributeRejectsMergedLinear(t *testing.T) {
	c := newTestContent(t)
	require.NoError(t, MergeLinear(c, true))
	err := Distribute(c, "llama", 4)
	require.Error(t, err)
	var merr *MergedLinearDisallowedError
	require.ErrorAs(t, err, &merr)
}

func TestDistributeNoop(t *testing.T) {
	c := newTestContent(t)
	require.NoError(t, Distribute(c, "llama", 1))
	assert.Equal(t, uint32(1), DistributeCount(c, "llama"))
}

func TestSortTensorsOrder(t *testing.T) {
	c := newTestContent(t)
	require.NoError(t, SortTensors(c))
	names := c.TensorNames()
	require.Equal(t, []string{
		"token_embd.weight",
		"output_norm.weight",
		"blk.0.attn_q.weight", "blk.0.attn_k.weight", "blk.0.attn_v.weight",
	}, names)
}

// TestMergeLinearRoundTripGQA exercises a grouped-query-attention shape
// where attn_q's row count differs from attn_k/attn_v's, so an equal
// three-way split of attn_qkv would silently corrupt the weights.
func TestMergeLinearRoundTripGQA(t *testing.T) {
	c := content.New()
	c.MetaSet("general.architecture", "llama")

	cols := uint64(8)
	qRows, kvRows := uint64(8), uint64(2)
	q := make([]float32, cols*qRows)
	k := make([]float32, cols*kvRows)
	v := make([]float32, cols*kvRows)
	for i := range q {
		q[i] = float32(i)
	}
	for i := range k {
		k[i], v[i] = float32(i+100), float32(i+200)
	}
	c.TensorSet("blk.0.attn_q.weight", &content.Tensor{Type: ggml.TypeF32, Shape: []uint64{cols, qRows}, Data: content.Borrowed(f32Bytes(t, q))})
	c.TensorSet("blk.0.attn_k.weight", &content.Tensor{Type: ggml.TypeF32, Shape: []uint64{cols, kvRows}, Data: content.Borrowed(f32Bytes(t, k))})
	c.TensorSet("blk.0.attn_v.weight", &content.Tensor{Type: ggml.TypeF32, Shape: []uint64{cols, kvRows}, Data: content.Borrowed(f32Bytes(t, v))})

	require.NoError(t, MergeLinear(c, true))
	merged, ok := c.TensorGet("blk.0.attn_qkv.weight")
	require.True(t, ok)
	assert.Equal(t, []uint64{cols, qRows + 2*kvRows}, merged.Shape)

	require.NoError(t, MergeLinear(c, false))

	qOut, ok := c.TensorGet("blk.0.attn_q.weight")
	require.True(t, ok)
	assert.Equal(t, []uint64{cols, qRows}, qOut.Shape)
	kOut, ok := c.TensorGet("blk.0.attn_k.weight")
	require.True(t, ok)
	assert.Equal(t, []uint64{cols, kvRows}, kOut.Shape)
	vOut, ok := c.TensorGet("blk.0.attn_v.weight")
	require.True(t, ok)
	assert.Equal(t, []uint64{cols, kvRows}, vOut.Shape)

	qBytes, err := qOut.Data.Get()
	require.NoError(t, err)
	qFloats, err := quant.Dequantize(ggml.TypeF32, qBytes)
	require.NoError(t, err)
	assert.Equal(t, q, qFloats)

	kBytes, err := kOut.Data.Get()
	require.NoError(t, err)
	kFloats, err := quant.Dequantize(ggml.TypeF32, kBytes)
	require.NoError(t, err)
	assert.Equal(t, k, kFloats)
}

func TestRescale(t *testing.T) {
	c := newTestContent(t)
	require.NoError(t, Rescale(c, "output_norm.weight", 2))
	tn, _ := c.TensorGet("output_norm.weight")
	raw, err := tn.Data.Get()
	require.NoError(t, err)
	row, err := quant.Dequantize(ggml.TypeF32, raw)
	require.NoError(t, err)
	assert.Equal(t, float32(2), row[1])
}
