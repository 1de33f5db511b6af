package name

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasic(t *testing.T) {
	fn, err := Parse("llama-2-7B-Instruct-v2.1-Q4_K_M.gguf")
	require.NoError(t, err)
	assert.Equal(t, "llama-2", fn.BaseName)
	assert.Equal(t, "7B", fn.SizeLabel)
	assert.Equal(t, "Instruct", fn.FineTune)
	assert.Equal(t, "2.1", fn.Version)
	assert.Equal(t, "Q4_K_M", fn.Encoding)
	assert.Equal(t, KindDefault, fn.Kind)
	assert.True(t, fn.Shard.IsSingle())
}

func TestParseSharded(t *testing.T) {
	fn, err := Parse("mixtral-8x7B-Q8_0-00002-of-00005.gguf")
	require.NoError(t, err)
	assert.Equal(t, "mixtral", fn.BaseName)
	assert.Equal(t, "8x7B", fn.SizeLabel)
	assert.Equal(t, "Q8_0", fn.Encoding)
	assert.Equal(t, Shard{Index: 2, Count: 5}, fn.Shard)
}

func TestParseLoRA(t *testing.T) {
	fn, err := Parse("llama-7B-LoRA.gguf")
	require.NoError(t, err)
	assert.Equal(t, KindLoRA, fn.Kind)
	assert.Equal(t, "7B", fn.SizeLabel)
}

func TestRoundTrip(t *testing.T) {
	in := "mixtral-8x7B-Instruct-v0.1-Q4_K_M-00001-of-00003.gguf"
	fn, err := Parse(in)
	require.NoError(t, err)
	assert.Equal(t, in, fn.String())
}

func TestSiblingPaths(t *testing.T) {
	paths, err := SiblingPaths("/models/mixtral-8x7B-Q8_0-00002-of-00003.gguf")
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, "/models/mixtral-8x7B-Q8_0-00001-of-00003.gguf", paths[0])
	assert.Equal(t, "/models/mixtral-8x7B-Q8_0-00003-of-00003.gguf", paths[2])
}

func TestSiblingPathsSingle(t *testing.T) {
	paths, err := SiblingPaths("/models/llama-7B.gguf")
	require.NoError(t, err)
	assert.Equal(t, []string{"/models/llama-7B.gguf"}, paths)
}

func TestParseEmptyBase(t *testing.T) {
	_, err := Parse(".gguf")
	require.Error(t, err)
	var ine *InvalidNameError
	require.ErrorAs(t, err, &ine)
}
