package operator

import (
	"github.com/ggufkit/ggufkit/content"
	"github.com/mitchellh/mapstructure"
)

// MinicpmExtra carries the architecture-specific rescale factors a
// minicpm-family model needs before it can be reinterpreted as llama:
// minicpm scales its embedding, attention output, and feed-forward-down
// projections by constants folded into the architecture definition
// rather than stored per-tensor.
type MinicpmExtra struct {
	EmbeddingScale float32 `mapstructure:"embedding_scale"`
	ResidualScale  float32 `mapstructure:"residual_scale"`
	LogitsScale    float32 `mapstructure:"logits_scale"`
}

// DecodeMinicpmExtra decodes a loosely-typed extras map (as decoded from
// the CLI's --extra JSON) into a MinicpmExtra.
func DecodeMinicpmExtra(extra map[string]any) (MinicpmExtra, error) {
	var out MinicpmExtra
	err := mapstructure.Decode(extra, &out)
	return out, err
}

// ToLlama reinterprets minicpm-architecture content as llama: it folds
// minicpm's constant rescale factors into the token embedding and
// attention-output/feed-forward-down projection weights, then renames
// every `minicpm.*` metadata key to `llama.*` via SetArch.
func ToLlama(c *content.Content, extra MinicpmExtra) error {
	arch, ok := c.MetaGet("general.architecture")
	if !ok {
		return &MissingMetaError{Key: "general.architecture"}
	}
	if arch != "minicpm" {
		return &UnsupportedArchError{Op: "ToLlama", Arch: fallbackString(arch)}
	}

	if err := Rescale(c, "token_embd.weight", extra.EmbeddingScale); err != nil {
		return err
	}
	for _, name := range c.TensorNames() {
		if !blkRe.MatchString(name) {
			continue
		}
		m := blkRe.FindStringSubmatch(name)
		switch m[2] {
		case "attn_output", "ffn_down":
			if err := Rescale(c, name, extra.ResidualScale); err != nil {
				return err
			}
		}
	}
	if _, hasOutput := c.TensorGet("output.weight"); hasOutput {
		if err := Rescale(c, "output.weight", extra.LogitsScale); err != nil {
			return err
		}
	}

	return SetArch(c, "llama")
}

func fallbackString(v any) string {
	s, _ := v.(string)
	return s
}
