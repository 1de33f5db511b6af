package convert

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTensorName(t *testing.T) {
	cases := map[string]string{
		"model.embed_tokens.weight":               "token_embd.weight",
		"lm_head.weight":                           "output.weight",
		"model.norm.weight":                        "output_norm.weight",
		"model.layers.0.input_layernorm.weight":     "blk.0.attn_norm.weight",
		"model.layers.12.self_attn.q_proj.weight":   "blk.12.attn_q.weight",
		"model.layers.12.self_attn.o_proj.weight":   "blk.12.attn_output.weight",
		"model.layers.3.mlp.down_proj.weight":       "blk.3.ffn_down.weight",
	}
	for in, want := range cases {
		got, err := GetTensorName(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestGetTensorNameUnrecognized(t *testing.T) {
	_, err := GetTensorName("some.unknown.tensor")
	assert.Error(t, err)
}

func TestArchDefaultsLlama(t *testing.T) {
	params := &Params{
		Architectures:    []string{"LlamaForCausalLM"},
		HiddenSize:       4096,
		HiddenLayers:     32,
		AttentionHeads:   32,
		KeyValHeads:      32,
		IntermediateSize: 11008,
		ContextSize:      4096,
	}
	kv, err := ArchDefaults("test-model", params)
	require.NoError(t, err)
	assert.Equal(t, "llama", kv["general.architecture"])
	assert.Equal(t, uint32(32), kv["llama.block_count"])
	assert.Equal(t, uint32(128), kv["llama.rope.dimension_count"])
}

func TestArchDefaultsUnsupported(t *testing.T) {
	_, err := ArchDefaults("m", &Params{Architectures: []string{"GPT2LMHeadModel"}})
	assert.Error(t, err)
}

func TestGetParams(t *testing.T) {
	dir := t.TempDir()
	cfg := map[string]any{
		"architectures":     []string{"LlamaForCausalLM"},
		"vocab_size":        32000,
		"hidden_size":       4096,
		"num_hidden_layers": 32,
	}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), raw, 0o644))

	params, err := GetParams(dir)
	require.NoError(t, err)
	assert.Equal(t, 32000, params.VocabSize)
	assert.Equal(t, 4096, params.HiddenSize)
}

func TestLoadTokensWithExtras(t *testing.T) {
	dir := t.TempDir()
	tok := map[string]any{
		"model": map[string]any{
			"vocab": map[string]int{"a": 0, "b": 1, "c": 2},
		},
	}
	raw, err := json.Marshal(tok)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokenizer.json"), raw, 0o644))

	extra := map[string]int{"<special1>": 3}
	rawExtra, err := json.Marshal(extra)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "added_tokens.json"), rawExtra, 0o644))

	v, err := LoadTokens(dir, &Params{VocabSize: 5})
	require.NoError(t, err)
	require.Len(t, v.Tokens, 5)
	assert.Equal(t, []string{"a", "b", "c"}, v.Tokens[:3])
	assert.Equal(t, "<special1>", v.Tokens[3])
	assert.Equal(t, int32(TokenTypeUserDefined), v.Types[3])
	assert.Contains(t, v.Tokens[4], "<dummy")
}
