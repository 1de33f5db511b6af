// Package convert supplies the architecture-metadata and tensor-naming
// tables a from-scratch GGUF build needs: the same `llama`/`gemma` KV
// tables and layer-name regex table the teacher's safetensors importer
// built inline, generalized here into standalone, reusable lookups for
// cmd/ggufctl's convert subcommand.
package convert

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Params mirrors the subset of a HuggingFace config.json this toolkit
// needs to synthesize GGUF metadata for a model.
type Params struct {
	Architectures    []string `json:"architectures"`
	VocabSize        int      `json:"vocab_size"`
	HiddenSize       int      `json:"hidden_size"`
	HiddenLayers     int      `json:"num_hidden_layers"`
	ContextSize      int      `json:"max_position_embeddings"`
	IntermediateSize int      `json:"intermediate_size"`
	AttentionHeads   int      `json:"num_attention_heads"`
	KeyValHeads      int      `json:"num_key_value_heads"`
	NormEPS          float64  `json:"rms_norm_eps"`
	RopeFreqBase     float64  `json:"rope_theta"`
	BoSTokenID       int      `json:"bos_token_id"`
	EoSTokenID       int      `json:"eos_token_id"`
	HeadDimension    int      `json:"head_dim"`
	PaddingTokenID   int      `json:"pad_token_id"`

	ByteOrder
}

// ByteOrder is the subset of encoding/binary's byte-order interfaces
// Params needs; config.json carries no byte-order information, so
// GetParams always sets this to binary.LittleEndian.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetParams reads and decodes dirpath/config.json.
func GetParams(dirpath string) (*Params, error) {
	f, err := os.Open(filepath.Join(dirpath, "config.json"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var params Params
	if err := json.NewDecoder(f).Decode(&params); err != nil {
		return nil, err
	}
	params.ByteOrder = binary.LittleEndian
	return &params, nil
}

// arch resolves params to the single architecture tag this toolkit
// knows how to build metadata for.
func arch(params *Params) (string, error) {
	switch len(params.Architectures) {
	case 0:
		return "", fmt.Errorf("convert: no architecture specified")
	case 1:
		switch params.Architectures[0] {
		case "MistralForCausalLM", "LlamaForCausalLM":
			return "llama", nil
		case "GemmaForCausalLM":
			return "gemma", nil
		default:
			return "", fmt.Errorf("convert: architecture %q is not supported", params.Architectures[0])
		}
	default:
		return "", fmt.Errorf("convert: multi-architecture models are not supported")
	}
}

// ArchDefaults builds the general.*/<arch>.* metadata key set a
// from-scratch GGUF build needs, the same table the teacher's
// WriteGGUF assembled inline before handing it to its encoder.
func ArchDefaults(name string, params *Params) (map[string]any, error) {
	a, err := arch(params)
	if err != nil {
		return nil, err
	}

	kv := map[string]any{
		"general.architecture": a,
		"general.name":         name,
		"general.file_type":    uint32(1),
	}

	switch a {
	case "llama":
		kv["llama.context_length"] = uint32(params.ContextSize)
		kv["llama.embedding_length"] = uint32(params.HiddenSize)
		kv["llama.block_count"] = uint32(params.HiddenLayers)
		kv["llama.feed_forward_length"] = uint32(params.IntermediateSize)
		if params.AttentionHeads != 0 {
			kv["llama.rope.dimension_count"] = uint32(params.HiddenSize / params.AttentionHeads)
		}
		kv["llama.attention.head_count"] = uint32(params.AttentionHeads)
		kv["llama.attention.head_count_kv"] = uint32(params.KeyValHeads)
		kv["llama.attention.layer_norm_rms_epsilon"] = float32(params.NormEPS)
		kv["llama.rope.freq_base"] = float32(params.RopeFreqBase)
		kv["tokenizer.ggml.unknown_token_id"] = uint32(0)
	case "gemma":
		kv["gemma.context_length"] = uint32(params.ContextSize)
		kv["gemma.embedding_length"] = uint32(params.HiddenSize)
		kv["gemma.block_count"] = uint32(params.HiddenLayers)
		kv["gemma.feed_forward_length"] = uint32(params.IntermediateSize)
		kv["gemma.attention.head_count"] = uint32(params.AttentionHeads)
		kv["gemma.attention.head_count_kv"] = uint32(params.KeyValHeads)
		kv["gemma.attention.layer_norm_rms_epsilon"] = float32(params.NormEPS)
		kv["gemma.attention.key_length"] = uint32(params.HeadDimension)
		kv["gemma.attention.value_length"] = uint32(params.HeadDimension)
		kv["tokenizer.ggml.padding_token_id"] = uint32(params.PaddingTokenID)
		kv["tokenizer.ggml.unknown_token_id"] = uint32(3)
	}

	kv["tokenizer.ggml.model"] = "llama"
	kv["tokenizer.ggml.bos_token_id"] = uint32(params.BoSTokenID)
	kv["tokenizer.ggml.eos_token_id"] = uint32(params.EoSTokenID)
	kv["tokenizer.ggml.add_bos_token"] = true
	kv["tokenizer.ggml.add_eos_token"] = false

	return kv, nil
}

// nameRules maps a HuggingFace layer-name pattern to its GGUF
// counterpart, generalized from the teacher's single-purpose
// safetensors table to the token embedding, output projection, final
// norm, and the per-block attention/feed-forward norms, Q/K/V/output
// projections and gate/up/down projections.
var nameRules = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`^model\.embed_tokens\.weight$`), "token_embd.weight"},
	{regexp.MustCompile(`^lm_head\.weight$`), "output.weight"},
	{regexp.MustCompile(`^model\.norm\.weight$`), "output_norm.weight"},
	{regexp.MustCompile(`^model\.layers\.(\d+)\.input_layernorm\.weight$`), "blk.$1.attn_norm.weight"},
	{regexp.MustCompile(`^model\.layers\.(\d+)\.post_attention_layernorm\.weight$`), "blk.$1.ffn_norm.weight"},
	{regexp.MustCompile(`^model\.layers\.(\d+)\.self_attn\.q_proj\.weight$`), "blk.$1.attn_q.weight"},
	{regexp.MustCompile(`^model\.layers\.(\d+)\.self_attn\.k_proj\.weight$`), "blk.$1.attn_k.weight"},
	{regexp.MustCompile(`^model\.layers\.(\d+)\.self_attn\.v_proj\.weight$`), "blk.$1.attn_v.weight"},
	{regexp.MustCompile(`^model\.layers\.(\d+)\.self_attn\.o_proj\.weight$`), "blk.$1.attn_output.weight"},
	{regexp.MustCompile(`^model\.layers\.(\d+)\.mlp\.gate_proj\.weight$`), "blk.$1.ffn_gate.weight"},
	{regexp.MustCompile(`^model\.layers\.(\d+)\.mlp\.up_proj\.weight$`), "blk.$1.ffn_up.weight"},
	{regexp.MustCompile(`^model\.layers\.(\d+)\.mlp\.down_proj\.weight$`), "blk.$1.ffn_down.weight"},
}

// GetTensorName translates a HuggingFace-convention tensor name n into
// its GGUF/llama.cpp counterpart.
func GetTensorName(n string) (string, error) {
	for _, rule := range nameRules {
		if rule.pattern.MatchString(n) {
			return rule.pattern.ReplaceAllString(n, rule.replace), nil
		}
	}
	return "", fmt.Errorf("convert: no GGUF name mapping for %q", n)
}
