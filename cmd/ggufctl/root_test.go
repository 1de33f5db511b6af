package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggufkit/ggufkit/ggml"
)

func TestParseMemSize(t *testing.T) {
	cases := map[string]uint64{
		"":     ^uint64(0),
		"512":  512,
		"4K":   4 << 10,
		"4k":   4 << 10,
		"2M":   2 << 20,
		"1G":   1 << 30,
		" 8M ": 8 << 20,
	}
	for in, want := range cases {
		got, err := parseMemSize(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestParseMemSizeInvalid(t *testing.T) {
	_, err := parseMemSize("abc")
	assert.Error(t, err)
}

func TestParseGGmlType(t *testing.T) {
	got, err := parseGGmlType("q4_k")
	require.NoError(t, err)
	assert.Equal(t, ggml.TypeQ4_K, got)

	_, err = parseGGmlType("not-a-type")
	assert.Error(t, err)
}

func TestCompilePatterns(t *testing.T) {
	keep := compilePatterns("blk.0.*,output.weight")
	assert.True(t, keep("blk.0.attn_q.weight"))
	assert.True(t, keep("output.weight"))
	assert.False(t, keep("blk.1.attn_q.weight"))
}

func TestCompilePatternsDefault(t *testing.T) {
	keep := compilePatterns("")
	assert.True(t, keep("anything.at.all"))
}
