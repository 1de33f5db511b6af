package shard

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ggufkit/ggufkit/container"
	"github.com/ggufkit/ggufkit/content"
	"github.com/ggufkit/ggufkit/ggml"
	"github.com/ggufkit/ggufkit/name"
	"github.com/ggufkit/ggufkit/quant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildContent(t *testing.T, alignment uint64, rows int) *content.Content {
	t.Helper()
	c := content.New()
	c.Alignment = alignment
	c.MetaSet("general.architecture", "llama")
	c.MetaSet("general.name", "test-model")

	row := make([]float32, rows)
	for i := range row {
		row[i] = float32(i)
	}
	raw, err := quant.Quantize(ggml.TypeF32, row)
	require.NoError(t, err)
	c.TensorSet("blk.0.attn_q.weight", &content.Tensor{Type: ggml.TypeF32, Shape: []uint64{uint64(rows)}, Data: content.Borrowed(raw)})
	c.TensorSet("blk.0.attn_k.weight", &content.Tensor{Type: ggml.TypeF32, Shape: []uint64{uint64(rows)}, Data: content.Borrowed(raw)})
	return c
}

func TestPlanSingleShardNoLimits(t *testing.T) {
	c := buildContent(t, 32, 16)
	shards, err := Plan(c, OutputConfig{})
	require.NoError(t, err)
	require.Len(t, shards, 1)
	assert.True(t, shards[0].HasMeta)
	assert.ElementsMatch(t, []string{"blk.0.attn_q.weight", "blk.0.attn_k.weight"}, shards[0].Tensors)
}

func TestPlanSplitsOnMaxTensors(t *testing.T) {
	c := buildContent(t, 32, 16)
	shards, err := Plan(c, OutputConfig{MaxTensors: 1})
	require.NoError(t, err)
	require.Len(t, shards, 2)
	assert.Len(t, shards[0].Tensors, 1)
	assert.Len(t, shards[1].Tensors, 1)
	assert.True(t, shards[0].HasMeta)
	assert.False(t, shards[1].HasMeta)
}

func TestPlanNoTensorFirst(t *testing.T) {
	c := buildContent(t, 32, 16)
	shards, err := Plan(c, OutputConfig{MaxTensors: 1, NoTensorFirst: true})
	require.NoError(t, err)
	require.Len(t, shards, 3)
	assert.Empty(t, shards[0].Tensors)
	assert.True(t, shards[0].HasMeta)
	assert.Len(t, shards[1].Tensors, 1)
	assert.Len(t, shards[2].Tensors, 1)
}

func TestPlanMonotonicity(t *testing.T) {
	c := buildContent(t, 32, 16)
	loose, err := Plan(c, OutputConfig{MaxTensors: 2})
	require.NoError(t, err)
	tight, err := Plan(c, OutputConfig{MaxTensors: 1})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(loose), len(tight))
}

func TestWriteAndScanRoundTrip(t *testing.T) {
	c := buildContent(t, 64, 16)
	dir := t.TempDir()
	base, err := name.Parse("test-model-7B-v1.0-F32.gguf")
	require.NoError(t, err)

	paths, err := Write(context.Background(), c, base, OutputConfig{OutputDir: dir, MaxTensors: 1})
	require.NoError(t, err)
	require.Len(t, paths, 2)

	var files []*container.File
	for _, p := range paths {
		buf, err := os.ReadFile(p)
		require.NoError(t, err)
		f, err := container.Scan(buf)
		require.NoError(t, err)
		files = append(files, f)
	}

	merged, err := content.FromFiles(files)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"blk.0.attn_q.weight", "blk.0.attn_k.weight"}, merged.TensorNames())
	arch, ok := merged.MetaGet("general.architecture")
	require.True(t, ok)
	assert.Equal(t, "llama", arch)
}

func TestUniquePathSuffixesOnCollision(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.gguf"), []byte("x"), 0o644))

	p, err := uniquePath(dir, "model.gguf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "model (1).gguf"), p)
}
